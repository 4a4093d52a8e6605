package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

func TestReportService_Lifecycle(t *testing.T) {
	f := newMarketFixture(t, "testdb_reports")
	ctx := context.Background()
	notifier := new(mockNotifier)
	reports := NewReportService(f.db, notifier)
	ad := f.approvedAd(t, "Suspiciously cheap iPhone")

	_, err := reports.Create(ctx, f.buyer.ID, ad.ID, ReportInput{Reason: "nonsense"})
	_, ok := IsValidationError(err)
	assert.True(t, ok)

	report, err := reports.Create(ctx, f.buyer.ID, ad.ID, ReportInput{Reason: "fraud", Description: "asks for advance"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportReasonFraud, report.Reason)
	assert.Equal(t, models.ReportStatusPending, report.Status)

	_, err = reports.Create(ctx, f.buyer.ID, ad.ID, ReportInput{Reason: "SPAM"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = reports.Create(ctx, f.buyer.ID, primitive.NewObjectID(), ReportInput{Reason: "SPAM"})
	assert.ErrorIs(t, err, ErrNotFound)

	notifier.On("Notify", mock.Anything, f.buyer.Email, TemplateReportResolved, mock.Anything).Return(nil).Once()
	resolved, err := reports.Resolve(ctx, report.ID, f.admin.ID, "ad removed")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, resolved.Status)
	assert.Equal(t, "ad removed", resolved.AdminNote)
	notifier.AssertExpectations(t)

	_, err = reports.Dismiss(ctx, report.ID, f.admin.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	pending, _, err := reports.List(ctx, models.ReportStatusPending, models.Page{})
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, page, err := reports.List(ctx, "", models.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, f.users.Ban(ctx, f.buyer.ID, f.admin.ID))
	other := f.approvedAd(t, "Another ad to report")
	_, err = reports.Create(ctx, f.buyer.ID, other.ID, ReportInput{Reason: "SPAM"})
	assert.ErrorIs(t, err, ErrUserBanned)
}

func TestStoreService_OnePerUserAndSlug(t *testing.T) {
	f := newMarketFixture(t, "testdb_stores")
	ctx := context.Background()
	ad := f.approvedAd(t, "Ad created before the store")

	store, err := f.stores.Create(ctx, f.seller.ID, StoreInput{Name: "Ali's Mobile Zone", City: "Karachi"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.Slug, "ali-s-mobile-zone-"), store.Slug)

	_, err = f.stores.Create(ctx, f.seller.ID, StoreInput{Name: "Second store"})
	assert.ErrorIs(t, err, ErrConflict)

	linked, err := f.ads.FindByID(ctx, ad.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.StoreID)
	assert.Equal(t, store.ID, *linked.StoreID)

	other, err := f.stores.Create(ctx, f.buyer.ID, StoreInput{Name: "Ali's Mobile Zone"})
	require.NoError(t, err)
	assert.NotEqual(t, store.Slug, other.Slug)

	updated, err := f.stores.Update(ctx, store.ID, f.seller.ID, StoreInput{Name: "Renamed Zone", City: "Lahore"})
	require.NoError(t, err)
	assert.Equal(t, store.Slug, updated.Slug, "slug is stable")
	assert.Equal(t, "Renamed Zone", updated.Name)

	_, err = f.stores.Update(ctx, store.ID, f.buyer.ID, StoreInput{Name: "Hijacked"})
	assert.ErrorIs(t, err, ErrForbidden)

	found, err := f.stores.FindBySlug(ctx, strings.ToUpper(store.Slug))
	require.NoError(t, err)
	assert.Equal(t, store.ID, found.ID)

	byCity, _, err := f.stores.List(ctx, "", "lahore", models.Page{})
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	assert.Equal(t, store.ID, byCity[0].ID)

	require.NoError(t, f.users.Ban(ctx, f.seller.ID, f.admin.ID))
	_, err = f.stores.FindBySlug(ctx, store.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	listed, _, err := f.stores.List(ctx, "", "", models.Page{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestStoreService_DeleteUnlinksAds(t *testing.T) {
	f := newMarketFixture(t, "testdb_store_delete")
	ctx := context.Background()
	store, err := f.stores.Create(ctx, f.seller.ID, StoreInput{Name: "Furniture House"})
	require.NoError(t, err)
	ad := f.approvedAd(t, "Bed king size with mattress")
	require.NotNil(t, ad.StoreID)

	conv, err := f.chat.Start(ctx, f.buyer.ID, nil, &store.ID, "Open on Sunday?")
	require.NoError(t, err)

	assert.ErrorIs(t, f.stores.Delete(ctx, store.ID, f.buyer.ID, false), ErrForbidden)
	require.NoError(t, f.stores.Delete(ctx, store.ID, f.seller.ID, false))

	reloaded, err := f.ads.FindByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.StoreID)
	n, err := f.db.Collection(db.MessagesCollection).CountDocuments(ctx, bson.M{"conversation_id": conv.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.stores.Delete(ctx, store.ID, f.admin.ID, true), ErrNotFound)
}

func TestFavoriteService(t *testing.T) {
	f := newMarketFixture(t, "testdb_favorites")
	ctx := context.Background()
	first := f.approvedAd(t, "First favourite item")
	second := f.approvedAd(t, "Second favourite item")
	pending, err := f.ads.Create(ctx, f.seller.ID, adInput(f.category.ID, "Pending, not favouritable"), testSettings())
	require.NoError(t, err)

	require.NoError(t, f.favorites.Add(ctx, f.buyer.ID, first.ID))
	require.NoError(t, f.favorites.Add(ctx, f.buyer.ID, second.ID))
	require.NoError(t, f.favorites.Add(ctx, f.buyer.ID, first.ID))
	assert.ErrorIs(t, f.favorites.Add(ctx, f.buyer.ID, pending.ID), ErrNotFound)

	n, err := f.db.Collection(db.FavoritesCollection).CountDocuments(ctx, bson.M{"user_id": f.buyer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ads, err := f.favorites.List(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, ads, 2)

	require.NoError(t, f.favorites.Remove(ctx, f.buyer.ID, first.ID))
	ads, err = f.favorites.List(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, second.ID, ads[0].ID)

	// Ads of banned owners drop out of the list.
	require.NoError(t, f.users.Ban(ctx, f.seller.ID, f.admin.ID))
	ads, err = f.favorites.List(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, ads)
}

func TestCategoryService(t *testing.T) {
	f := newMarketFixture(t, "testdb_categories")
	ctx := context.Background()

	created, err := f.categories.Create(ctx, CategoryInput{Name: "Vehicles", Order: 2}, []models.SubCategory{{Name: "Cars"}})
	require.NoError(t, err)
	assert.Equal(t, "vehicles", created.Slug)
	require.Len(t, created.SubCategories, 1)
	assert.Equal(t, "cars", created.SubCategories[0].Slug)

	_, err = f.categories.Create(ctx, CategoryInput{Name: "Vehicles"}, nil)
	assert.ErrorIs(t, err, ErrConflict)

	withBikes, err := f.categories.AddSubCategory(ctx, created.ID, "Bikes", "")
	require.NoError(t, err)
	assert.Len(t, withBikes.SubCategories, 2)

	in := adInput(f.category.ID, "Phone in the phones sub")
	in.SubCategory = "phones"
	_, err = f.ads.Create(ctx, f.seller.ID, in, testSettings())
	require.NoError(t, err)

	_, err = f.categories.RemoveSubCategory(ctx, f.category.ID, "phones")
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, f.categories.Delete(ctx, f.category.ID), ErrConflict)
	require.NoError(t, f.categories.Delete(ctx, created.ID))

	inserted, err := f.categories.Ensure(ctx, models.Category{Name: "Mobiles", Slug: "mobiles"})
	require.NoError(t, err)
	assert.False(t, inserted)

	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStatsService_Dashboard(t *testing.T) {
	f := newMarketFixture(t, "testdb_stats")
	ctx := context.Background()
	stats := NewStatsService(f.db)

	ad := f.approvedAd(t, "Counted approved ad")
	_, err := f.ads.Create(ctx, f.seller.ID, adInput(f.category.ID, "Counted pending ad"), testSettings())
	require.NoError(t, err)
	_, err = f.reports.Create(ctx, f.buyer.ID, ad.ID, ReportInput{Reason: "OTHER"})
	require.NoError(t, err)
	require.NoError(t, f.users.Ban(ctx, f.buyer.ID, f.admin.ID))

	got, err := stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PendingAds)
	assert.Equal(t, int64(1), got.ApprovedAds)
	assert.Equal(t, int64(1), got.PendingReports)
	assert.Equal(t, int64(3), got.Users)
	assert.Equal(t, int64(1), got.BannedUsers)
}
