package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/cache"
	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = 100000
)

// AdPatch carries the fields of an edit. Nil fields keep their current value.
type AdPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Condition   *string   `json:"condition"`
	Images      *[]string `json:"images"`
	City        *string   `json:"city"`
	Area        *string   `json:"area"`
	CategoryID  *string   `json:"category_id"`
	SubCategory *string   `json:"sub_category"`
	Phone       *string   `json:"phone"`
}

// IAdService defines the interface for ad lifecycle operations.
type IAdService interface {
	Create(ctx context.Context, userID primitive.ObjectID, in AdInput, settings models.SiteSettings) (*models.Ad, error)
	FindByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error)
	FindPublicByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error)
	FindOwned(ctx context.Context, adID, userID primitive.ObjectID) (*models.Ad, error)
	Update(ctx context.Context, adID, userID primitive.ObjectID, patch AdPatch, settings models.SiteSettings) (*models.Ad, error)
	Delete(ctx context.Context, adID, actorID primitive.ObjectID, isAdmin bool) error
	Search(ctx context.Context, q models.AdSearch) ([]models.Ad, models.Page, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error)
	AdminList(ctx context.Context, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error)
	Approve(ctx context.Context, adID, adminID primitive.ObjectID) (*models.Ad, error)
	Reject(ctx context.Context, adID, adminID primitive.ObjectID, reason string) (*models.Ad, error)
	RecordView(ctx context.Context, adID primitive.ObjectID, viewerKey string, settings models.SiteSettings) error
	Related(ctx context.Context, ad *models.Ad, limit int) ([]models.Ad, error)
}

// adService implements IAdService.
type adService struct {
	db         *mongo.Database
	cfg        *config.Config
	categories ICategoryService
	views      cache.ViewTracker
	notifier   Notifier
}

// NewAdService creates a new AdService. views and notifier may be nil.
func NewAdService(db *mongo.Database, cfg *config.Config, categories ICategoryService, views cache.ViewTracker, notifier Notifier) IAdService {
	return &adService{db: db, cfg: cfg, categories: categories, views: views, notifier: notifier}
}

func (s *adService) collection() *mongo.Collection {
	return s.db.Collection(db.AdsCollection)
}

// checkCategory validates the category reference of in.
func (s *adService) checkCategory(ctx context.Context, in *AdInput) (primitive.ObjectID, error) {
	categoryID, err := primitive.ObjectIDFromHex(in.CategoryID)
	if err != nil {
		return primitive.NilObjectID, fieldError("category_id", "category not found")
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return primitive.NilObjectID, fieldError("category_id", "category not found")
		}
		return primitive.NilObjectID, err
	}
	if in.SubCategory != "" && !category.HasSubCategory(in.SubCategory) {
		return primitive.NilObjectID, fieldError("sub_category", "subcategory does not belong to category")
	}
	return categoryID, nil
}

// Create stores a new PENDING ad for an active user.
func (s *adService) Create(ctx context.Context, userID primitive.ObjectID, in AdInput, settings models.SiteSettings) (*models.Ad, error) {
	if _, err := requireActiveUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	if err := ValidateAdInput(&in, settings.MaxImagesPerAd); err != nil {
		return nil, err
	}
	categoryID, err := s.checkCategory(ctx, &in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ad := &models.Ad{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Condition:   models.Condition(in.Condition),
		Images:      in.Images,
		City:        in.City,
		Area:        in.Area,
		CategoryID:  categoryID,
		SubCategory: in.SubCategory,
		Phone:       in.Phone,
		IsApproved:  false,
		Status:      models.AdStatusPending,
		Views:       0,
	}
	ad.GenIDIfEmpty()
	ad.Touch(now)

	storeID, err := ownerStoreID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	ad.StoreID = storeID

	if _, err := s.collection().InsertOne(ctx, ad); err != nil {
		return nil, fmt.Errorf("failed to insert ad for user %s: %w", userID.Hex(), err)
	}
	log.WithFields(log.Fields{"ad_id": ad.ID.Hex(), "user_id": userID.Hex()}).Info("Ad created, pending moderation")
	return ad, nil
}

func ownerStoreID(ctx context.Context, database *mongo.Database, userID primitive.ObjectID) (*primitive.ObjectID, error) {
	var store models.Store
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := database.Collection(db.StoresCollection).FindOne(ctx, bson.M{"owner_id": userID}, opts).Decode(&store)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up store of %s: %w", userID.Hex(), err)
	}
	return &store.ID, nil
}

// FindByID returns the ad in any state. It does NOT check visibility.
func (s *adService) FindByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error) {
	var ad models.Ad
	if err := s.collection().FindOne(ctx, bson.M{"_id": adID}).Decode(&ad); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding ad by ID %s: %w", adID.Hex(), err)
	}
	presentAd(&ad, time.Now())
	return &ad, nil
}

// FindPublicByID returns the ad only when it is publicly visible.
func (s *adService) FindPublicByID(ctx context.Context, adID primitive.ObjectID) (*models.Ad, error) {
	filter, err := s.publicFilter(ctx)
	if err != nil {
		return nil, err
	}
	filter["_id"] = adID
	var ad models.Ad
	if err := s.collection().FindOne(ctx, filter).Decode(&ad); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding public ad %s: %w", adID.Hex(), err)
	}
	presentAd(&ad, time.Now())
	return &ad, nil
}

// FindOwned returns an ad of userID in any state.
func (s *adService) FindOwned(ctx context.Context, adID, userID primitive.ObjectID) (*models.Ad, error) {
	ad, err := s.FindByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	if !ad.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return ad, nil
}

// publicFilter matches approved ads whose owner is not banned.
func (s *adService) publicFilter(ctx context.Context) (bson.M, error) {
	return publicAdFilter(ctx, s.db)
}

func publicAdFilter(ctx context.Context, database *mongo.Database) (bson.M, error) {
	filter := bson.M{"is_approved": true, "status": models.AdStatusApproved}
	banned, err := bannedUserIDs(ctx, database)
	if err != nil {
		return nil, err
	}
	if len(banned) > 0 {
		filter["user_id"] = bson.M{"$nin": banned}
	}
	return filter, nil
}

// presentAd clears an expired feature boost on the returned copy.
func presentAd(ad *models.Ad, now time.Time) {
	if ad.IsFeatured && !ad.IsFeaturedAt(now) {
		ad.IsFeatured = false
	}
	if ad.Images == nil {
		ad.Images = []string{}
	}
}

func inputFromAd(ad *models.Ad) AdInput {
	images := make([]string, len(ad.Images))
	copy(images, ad.Images)
	return AdInput{
		Title:       ad.Title,
		Description: ad.Description,
		Price:       ad.Price,
		Condition:   string(ad.Condition),
		Images:      images,
		City:        ad.City,
		Area:        ad.Area,
		CategoryID:  ad.CategoryID.Hex(),
		SubCategory: ad.SubCategory,
		Phone:       ad.Phone,
	}
}

func (p AdPatch) apply(in *AdInput) {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Condition != nil {
		in.Condition = *p.Condition
	}
	if p.Images != nil {
		in.Images = *p.Images
	}
	if p.City != nil {
		in.City = *p.City
	}
	if p.Area != nil {
		in.Area = *p.Area
	}
	if p.CategoryID != nil {
		in.CategoryID = *p.CategoryID
		if p.SubCategory == nil {
			in.SubCategory = ""
		}
	}
	if p.SubCategory != nil {
		in.SubCategory = *p.SubCategory
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
}

// Update applies an owner edit in any status. With RemoderateOnEdit the ad
// goes back to PENDING.
func (s *adService) Update(ctx context.Context, adID, userID primitive.ObjectID, patch AdPatch, settings models.SiteSettings) (*models.Ad, error) {
	if _, err := requireActiveUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	ad, err := s.FindOwned(ctx, adID, userID)
	if err != nil {
		return nil, err
	}

	in := inputFromAd(ad)
	patch.apply(&in)
	if err := ValidateAdInput(&in, settings.MaxImagesPerAd); err != nil {
		return nil, err
	}
	categoryID, err := s.checkCategory(ctx, &in)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"title":        in.Title,
		"description":  in.Description,
		"price":        in.Price,
		"condition":    models.Condition(in.Condition),
		"images":       in.Images,
		"city":         in.City,
		"area":         in.Area,
		"category_id":  categoryID,
		"sub_category": in.SubCategory,
		"phone":        in.Phone,
		"updated_at":   time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if settings.RemoderateOnEdit && ad.Status != models.AdStatusPending {
		set["status"] = models.AdStatusPending
		set["is_approved"] = false
		update["$unset"] = bson.M{"approved_at": "", "rejection_reason": ""}
	}

	// The status guard keeps a concurrent moderation decision from being overwritten.
	filter := bson.M{"_id": adID, "user_id": userID, "status": ad.Status}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Ad
	if err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, errCheck := s.FindOwned(ctx, adID, userID); errCheck != nil {
				return nil, errCheck
			}
			return nil, fmt.Errorf("ad %s changed status during edit: %w", adID.Hex(), ErrConflict)
		}
		return nil, fmt.Errorf("failed to update ad %s: %w", adID.Hex(), err)
	}
	presentAd(&updated, time.Now())
	return &updated, nil
}

// Delete removes the ad and everything hanging off it. Owners may delete
// their own ads, admins any ad.
func (s *adService) Delete(ctx context.Context, adID, actorID primitive.ObjectID, isAdmin bool) error {
	filter := bson.M{"_id": adID}
	if !isAdmin {
		if _, err := requireActiveUser(ctx, s.db, actorID); err != nil {
			return err
		}
		filter["user_id"] = actorID
	}
	result, err := s.collection().DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("db error deleting ad %s: %w", adID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		if _, errCheck := s.FindByID(ctx, adID); errCheck != nil {
			return errCheck
		}
		return ErrForbidden
	}
	if err := cascadeAdDeletion(ctx, s.db, []primitive.ObjectID{adID}); err != nil {
		return err
	}
	log.WithFields(log.Fields{"ad_id": adID.Hex(), "actor_id": actorID.Hex(), "admin": isAdmin}).Info("Ad deleted")
	return nil
}

// cascadeAdDeletion removes the conversations, messages, favorites, reports
// and feature requests of deleted ads.
func cascadeAdDeletion(ctx context.Context, database *mongo.Database, adIDs []primitive.ObjectID) error {
	if len(adIDs) == 0 {
		return nil
	}
	inAds := bson.M{"$in": adIDs}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := database.Collection(db.ConversationsCollection).Find(ctx, bson.M{"ad_id": inAds}, opts)
	if err != nil {
		return fmt.Errorf("failed to find conversations of deleted ads: %w", err)
	}
	var convs []models.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return fmt.Errorf("failed to decode conversations of deleted ads: %w", err)
	}
	if len(convs) > 0 {
		convIDs := make([]primitive.ObjectID, 0, len(convs))
		for _, c := range convs {
			convIDs = append(convIDs, c.ID)
		}
		if _, err := database.Collection(db.MessagesCollection).DeleteMany(ctx, bson.M{"conversation_id": bson.M{"$in": convIDs}}); err != nil {
			return fmt.Errorf("failed to delete messages of deleted ads: %w", err)
		}
		if _, err := database.Collection(db.ConversationsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": convIDs}}); err != nil {
			return fmt.Errorf("failed to delete conversations of deleted ads: %w", err)
		}
	}

	for _, name := range []string{db.FavoritesCollection, db.ReportsCollection, db.FeatureRequestsCollection} {
		if _, err := database.Collection(name).DeleteMany(ctx, bson.M{"ad_id": inAds}); err != nil {
			return fmt.Errorf("failed to delete %s of deleted ads: %w", name, err)
		}
	}
	return nil
}

func normalizePage(page, limit int) models.Page {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return models.Page{Page: page, Limit: limit}
}

// Search lists public ads matching q.
func (s *adService) Search(ctx context.Context, q models.AdSearch) ([]models.Ad, models.Page, error) {
	page := normalizePage(q.Page, q.Limit)
	now := time.Now().UTC()

	filter, err := s.publicFilter(ctx)
	if err != nil {
		return nil, page, err
	}
	if q.Query != "" {
		filter["$text"] = bson.M{"$search": q.Query}
	}
	if q.CategoryID != nil {
		filter["category_id"] = *q.CategoryID
	} else if q.CategorySlug != "" {
		category, err := s.categories.FindBySlug(ctx, q.CategorySlug)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return []models.Ad{}, page, nil
			}
			return nil, page, err
		}
		filter["category_id"] = category.ID
	}
	if q.SubCategory != "" {
		filter["sub_category"] = q.SubCategory
	}
	if q.City != "" {
		filter["city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.City) + "$", Options: "i"}
	}
	if q.Condition != "" {
		filter["condition"] = q.Condition
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		filter["price"] = price
	}
	if q.FeaturedOnly {
		filter["is_featured"] = true
		filter["featured_until"] = bson.M{"$gt": now}
	}
	if q.UserID != nil {
		if existing, ok := filter["user_id"].(bson.M); ok {
			existing["$eq"] = *q.UserID
		} else {
			filter["user_id"] = *q.UserID
		}
	}
	if q.StoreID != nil {
		filter["store_id"] = *q.StoreID
	}
	if q.ExcludeID != nil {
		filter["_id"] = bson.M{"$ne": *q.ExcludeID}
	}

	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count ads: %w", err)
	}
	page.Total = total

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{"featured_active": bson.M{"$and": bson.A{
			"$is_featured",
			bson.M{"$gt": bson.A{"$featured_until", now}},
		}}}}},
		{{Key: "$sort", Value: searchSort(q.Sort)}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
		{{Key: "$project", Value: bson.M{"featured_active": 0}}},
	}
	cursor, err := s.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, page, fmt.Errorf("failed to search ads: %w", err)
	}
	ads := []models.Ad{}
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, page, fmt.Errorf("failed to decode ads: %w", err)
	}
	for i := range ads {
		presentAd(&ads[i], now)
	}
	return ads, page, nil
}

// searchSort maps an AdSort to a stable sort document. Active featured ads
// lead the default ordering.
func searchSort(sort models.AdSort) bson.D {
	switch sort {
	case models.AdSortOldest:
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	case models.AdSortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: -1}}
	case models.AdSortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}
	case models.AdSortPopular:
		return bson.D{{Key: "views", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "featured_active", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (s *adService) list(ctx context.Context, filter bson.M, page models.Page) ([]models.Ad, models.Page, error) {
	page = normalizePage(page.Page, page.Limit)
	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count ads: %w", err)
	}
	page.Total = total

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, page, fmt.Errorf("failed to list ads: %w", err)
	}
	ads := []models.Ad{}
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, page, fmt.Errorf("failed to decode ads: %w", err)
	}
	now := time.Now()
	for i := range ads {
		presentAd(&ads[i], now)
	}
	return ads, page, nil
}

// ListByUser lists the owner's ads in every state, optionally filtered by status.
func (s *adService) ListByUser(ctx context.Context, userID primitive.ObjectID, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page)
}

// AdminList lists ads of any owner, optionally filtered by status.
func (s *adService) AdminList(ctx context.Context, status models.AdStatus, page models.Page) ([]models.Ad, models.Page, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page)
}

// decide moves a PENDING ad to APPROVED or REJECTED. Only one decision wins.
func (s *adService) decide(ctx context.Context, adID primitive.ObjectID, set bson.M, unset bson.M) (*models.Ad, error) {
	filter := bson.M{"_id": adID, "status": models.AdStatusPending}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ad models.Ad
	if err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&ad); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, errCheck := s.FindByID(ctx, adID); errCheck != nil {
				return nil, errCheck
			}
			return nil, fmt.Errorf("ad %s: %w", adID.Hex(), ErrAlreadyProcessed)
		}
		return nil, fmt.Errorf("db error moderating ad %s: %w", adID.Hex(), err)
	}
	presentAd(&ad, time.Now())
	return &ad, nil
}

// Approve publishes a PENDING ad.
func (s *adService) Approve(ctx context.Context, adID, adminID primitive.ObjectID) (*models.Ad, error) {
	now := time.Now().UTC()
	ad, err := s.decide(ctx, adID,
		bson.M{"status": models.AdStatusApproved, "is_approved": true, "approved_at": now, "updated_at": now},
		bson.M{"rejection_reason": ""})
	if err != nil {
		return nil, err
	}
	metrics.RecordDecision("ad", "approved")
	log.WithFields(log.Fields{"ad_id": adID.Hex(), "admin_id": adminID.Hex()}).Info("Ad approved")
	notifyUser(ctx, s.db, s.notifier, ad.UserID, TemplateAdApproved, map[string]interface{}{
		"AdID":    ad.ID.Hex(),
		"AdTitle": ad.Title,
	})
	return ad, nil
}

// Reject refuses a PENDING ad with an optional reason.
func (s *adService) Reject(ctx context.Context, adID, adminID primitive.ObjectID, reason string) (*models.Ad, error) {
	now := time.Now().UTC()
	ad, err := s.decide(ctx, adID,
		bson.M{"status": models.AdStatusRejected, "is_approved": false, "rejection_reason": reason, "updated_at": now},
		bson.M{"approved_at": ""})
	if err != nil {
		return nil, err
	}
	metrics.RecordDecision("ad", "rejected")
	log.WithFields(log.Fields{"ad_id": adID.Hex(), "admin_id": adminID.Hex()}).Info("Ad rejected")
	notifyUser(ctx, s.db, s.notifier, ad.UserID, TemplateAdRejected, map[string]interface{}{
		"AdID":    ad.ID.Hex(),
		"AdTitle": ad.Title,
		"Reason":  reason,
	})
	return ad, nil
}

// RecordView increments the view counter according to the configured policy.
func (s *adService) RecordView(ctx context.Context, adID primitive.ObjectID, viewerKey string, settings models.SiteSettings) error {
	if settings.ViewCountPolicy == models.ViewPolicyPerViewer && s.views != nil && viewerKey != "" {
		first, err := s.views.FirstView(ctx, adID.Hex(), viewerKey, s.cfg.ViewDedupTTL)
		if err != nil {
			log.WithError(err).Warn("View dedup unavailable, counting the view")
		} else if !first {
			return nil
		}
	}
	_, err := s.collection().UpdateOne(ctx, bson.M{"_id": adID}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment views of %s: %w", adID.Hex(), err)
	}
	return nil
}

// Related returns public ads from the same category.
func (s *adService) Related(ctx context.Context, ad *models.Ad, limit int) ([]models.Ad, error) {
	if limit < 1 || limit > 24 {
		limit = 8
	}
	categoryID := ad.CategoryID
	adID := ad.ID
	ads, _, err := s.Search(ctx, models.AdSearch{CategoryID: &categoryID, ExcludeID: &adID, Page: 1, Limit: limit})
	return ads, err
}
