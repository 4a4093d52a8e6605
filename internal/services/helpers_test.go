package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pakolx/market/internal/auth"
	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
	"pakolx/market/internal/utils"
)

var allCollections = []string{
	db.UsersCollection,
	db.AdsCollection,
	db.CategoriesCollection,
	db.FeatureRequestsCollection,
	db.ReportsCollection,
	db.ConversationsCollection,
	db.MessagesCollection,
	db.StoresCollection,
	db.FavoritesCollection,
	db.SiteConfigCollection,
	db.BankDetailsCollection,
	db.EmailTemplatesCollection,
	db.RateLimitRulesCollection,
}

// setupServiceDB returns a clean test database with every index in place.
func setupServiceDB(t *testing.T, dbName string) *mongo.Database {
	t.Helper()
	database := utils.SetupTestDB(t, dbName, allCollections...)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:           "TestMarket",
		PasswordMinLength: 8,
		ViewDedupTTL:      time.Hour,
	}
}

func testSettings() models.SiteSettings {
	return models.DefaultSiteSettings()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, to string, templateID string, data map[string]interface{}) error {
	args := m.Called(ctx, to, templateID, data)
	return args.Error(0)
}

type mockViewTracker struct {
	mock.Mock
}

func (m *mockViewTracker) FirstView(ctx context.Context, adID, viewerKey string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, adID, viewerKey, ttl)
	return args.Bool(0), args.Error(1)
}

func insertUser(t *testing.T, database *mongo.Database, email string, role models.Role, banned bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{
		Name:         "User " + email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsBanned:     banned,
	}
	user.GenIDIfEmpty()
	user.Touch(time.Now().UTC())
	_, err = database.Collection(db.UsersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user
}

func insertCategory(t *testing.T, database *mongo.Database, slug string, subSlugs ...string) *models.Category {
	t.Helper()
	category := &models.Category{Name: slug, Slug: slug}
	for _, s := range subSlugs {
		category.SubCategories = append(category.SubCategories, models.SubCategory{Name: s, Slug: s})
	}
	category.GenIDIfEmpty()
	_, err := database.Collection(db.CategoriesCollection).InsertOne(context.Background(), category)
	require.NoError(t, err)
	return category
}

func adInput(categoryID primitive.ObjectID, title string) AdInput {
	return AdInput{
		Title:       title,
		Description: "A perfectly described item in great shape.",
		Price:       1500,
		Condition:   "USED",
		Images:      []string{"https://cdn.example.com/ads/a.jpg", "https://cdn.example.com/ads/b.jpg"},
		City:        "Karachi",
		CategoryID:  categoryID.Hex(),
	}
}

// marketFixture wires the services the way main does, without notifications.
type marketFixture struct {
	db         *mongo.Database
	users      IUserService
	categories ICategoryService
	ads        IAdService
	features   IFeatureRequestService
	reports    IReportService
	chat       IChatService
	stores     IStoreService
	favorites  IFavoriteService
	category   *models.Category
	seller     *models.User
	buyer      *models.User
	admin      *models.User
}

func newMarketFixture(t *testing.T, dbName string) *marketFixture {
	t.Helper()
	database := setupServiceDB(t, dbName)
	cfg := testConfig()
	categories := NewCategoryService(database)
	f := &marketFixture{
		db:         database,
		users:      NewUserService(database, cfg, nil),
		categories: categories,
		ads:        NewAdService(database, cfg, categories, nil, nil),
		features:   NewFeatureRequestService(database, nil),
		reports:    NewReportService(database, nil),
		chat:       NewChatService(database),
		stores:     NewStoreService(database),
		favorites:  NewFavoriteService(database),
	}
	f.category = insertCategory(t, database, "mobiles", "phones", "tablets")
	f.seller = insertUser(t, database, "seller@example.com", models.RoleUser, false)
	f.buyer = insertUser(t, database, "buyer@example.com", models.RoleUser, false)
	f.admin = insertUser(t, database, "admin@example.com", models.RoleAdmin, false)
	return f
}

// approvedAd creates an ad for the seller and approves it.
func (f *marketFixture) approvedAd(t *testing.T, title string) *models.Ad {
	t.Helper()
	ctx := context.Background()
	ad, err := f.ads.Create(ctx, f.seller.ID, adInput(f.category.ID, title), testSettings())
	require.NoError(t, err)
	ad, err = f.ads.Approve(ctx, ad.ID, f.admin.ID)
	require.NoError(t, err)
	return ad
}
