package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
	"pakolx/market/internal/utils"
)

// IStoreService manages seller stores.
type IStoreService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, in StoreInput) (*models.Store, error)
	Update(ctx context.Context, storeID, ownerID primitive.ObjectID, in StoreInput) (*models.Store, error)
	FindBySlug(ctx context.Context, slug string) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Store, error)
	List(ctx context.Context, query, city string, page models.Page) ([]models.Store, models.Page, error)
	Delete(ctx context.Context, storeID, actorID primitive.ObjectID, isAdmin bool) error
}

type storeService struct {
	db *mongo.Database
}

// NewStoreService creates a new StoreService.
func NewStoreService(db *mongo.Database) IStoreService {
	return &storeService{db: db}
}

func (s *storeService) collection() *mongo.Collection {
	return s.db.Collection(db.StoresCollection)
}

// Create opens the single store of ownerID. The slug is derived from the
// name plus a random suffix, regenerated when it collides.
func (s *storeService) Create(ctx context.Context, ownerID primitive.ObjectID, in StoreInput) (*models.Store, error) {
	if _, err := requireActiveUser(ctx, s.db, ownerID); err != nil {
		return nil, err
	}
	if err := ValidateStoreInput(&in); err != nil {
		return nil, err
	}
	if existing, err := ownerStoreID(ctx, s.db, ownerID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("user %s already has a store: %w", ownerID.Hex(), ErrConflict)
	}

	now := time.Now().UTC()
	base := utils.Slugify(in.Name)
	var store *models.Store
	err := db.Try(func(attempt int) error {
		store = &models.Store{
			OwnerID:     ownerID,
			Name:        in.Name,
			Slug:        utils.SlugWithSuffix(base),
			Description: in.Description,
			LogoURL:     in.LogoURL,
			BannerURL:   in.BannerURL,
			City:        in.City,
			Phone:       in.Phone,
		}
		store.GenIDIfEmpty()
		store.Touch(now)
		_, insertErr := s.collection().InsertOne(ctx, store)
		if insertErr != nil && db.IsMongoDuplicateKeyError(insertErr) {
			// Lost a race on owner_id: retrying cannot help.
			if existing, _ := ownerStoreID(ctx, s.db, ownerID); existing != nil {
				return fmt.Errorf("user %s already has a store: %w", ownerID.Hex(), ErrConflict)
			}
		}
		return insertErr
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		slug := "<unknown>"
		if store != nil {
			slug = store.Slug
		}
		return nil, fmt.Errorf("failed to insert store for user %s (last attempted slug: %s): %w", ownerID.Hex(), slug, err)
	}

	_, err = s.db.Collection(db.AdsCollection).UpdateMany(ctx,
		bson.M{"user_id": ownerID, "store_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"store_id": store.ID}})
	if err != nil {
		log.WithError(err).WithField("store_id", store.ID.Hex()).Warn("Failed to link existing ads to new store")
	}
	log.WithFields(log.Fields{"store_id": store.ID.Hex(), "slug": store.Slug}).Info("Store created")
	return store, nil
}

// Update edits the store of ownerID. The slug never changes.
func (s *storeService) Update(ctx context.Context, storeID, ownerID primitive.ObjectID, in StoreInput) (*models.Store, error) {
	if _, err := requireActiveUser(ctx, s.db, ownerID); err != nil {
		return nil, err
	}
	if err := ValidateStoreInput(&in); err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"name":        in.Name,
		"description": in.Description,
		"logo_url":    in.LogoURL,
		"banner_url":  in.BannerURL,
		"city":        in.City,
		"phone":       in.Phone,
		"updated_at":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Store
	err := s.collection().FindOneAndUpdate(ctx, bson.M{"_id": storeID, "owner_id": ownerID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			var store models.Store
			if errCheck := s.collection().FindOne(ctx, bson.M{"_id": storeID}).Decode(&store); errCheck != nil {
				return nil, ErrNotFound
			}
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to update store %s: %w", storeID.Hex(), err)
	}
	return &updated, nil
}

// FindBySlug returns a store whose owner is not banned.
func (s *storeService) FindBySlug(ctx context.Context, slug string) (*models.Store, error) {
	var store models.Store
	if err := s.collection().FindOne(ctx, bson.M{"slug": strings.ToLower(slug)}).Decode(&store); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding store %s: %w", slug, err)
	}
	if _, err := requireActiveUser(ctx, s.db, store.OwnerID); err != nil {
		if errors.Is(err, ErrUserBanned) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

func (s *storeService) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Store, error) {
	var store models.Store
	if err := s.collection().FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&store); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding store of %s: %w", ownerID.Hex(), err)
	}
	return &store, nil
}

// List returns stores of non-banned owners, optionally matching a name
// fragment and a city.
func (s *storeService) List(ctx context.Context, query, city string, page models.Page) ([]models.Store, models.Page, error) {
	page = normalizePage(page.Page, page.Limit)
	filter := bson.M{}
	banned, err := bannedUserIDs(ctx, s.db)
	if err != nil {
		return nil, page, err
	}
	if len(banned) > 0 {
		filter["owner_id"] = bson.M{"$nin": banned}
	}
	if q := strings.TrimSpace(query); q != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	}
	if c := strings.TrimSpace(city); c != "" {
		filter["city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(c) + "$", Options: "i"}
	}

	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count stores: %w", err)
	}
	page.Total = total
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, page, fmt.Errorf("failed to list stores: %w", err)
	}
	stores := []models.Store{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, page, fmt.Errorf("failed to decode stores: %w", err)
	}
	return stores, page, nil
}

// Delete removes the store. Its ads stay and lose the store link; store
// conversations are removed.
func (s *storeService) Delete(ctx context.Context, storeID, actorID primitive.ObjectID, isAdmin bool) error {
	filter := bson.M{"_id": storeID}
	if !isAdmin {
		if _, err := requireActiveUser(ctx, s.db, actorID); err != nil {
			return err
		}
		filter["owner_id"] = actorID
	}
	result, err := s.collection().DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("db error deleting store %s: %w", storeID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		count, errCheck := s.collection().CountDocuments(ctx, bson.M{"_id": storeID})
		if errCheck == nil && count > 0 {
			return ErrForbidden
		}
		return ErrNotFound
	}

	if _, err := s.db.Collection(db.AdsCollection).UpdateMany(ctx,
		bson.M{"store_id": storeID},
		bson.M{"$unset": bson.M{"store_id": ""}}); err != nil {
		return fmt.Errorf("failed to unlink ads of store %s: %w", storeID.Hex(), err)
	}

	cursor, err := s.db.Collection(db.ConversationsCollection).Find(ctx,
		bson.M{"store_id": storeID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return fmt.Errorf("failed to find conversations of store %s: %w", storeID.Hex(), err)
	}
	var convs []models.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return fmt.Errorf("failed to decode conversations of store %s: %w", storeID.Hex(), err)
	}
	if len(convs) > 0 {
		ids := make([]primitive.ObjectID, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.ID)
		}
		if _, err := s.db.Collection(db.MessagesCollection).DeleteMany(ctx, bson.M{"conversation_id": bson.M{"$in": ids}}); err != nil {
			return fmt.Errorf("failed to delete store messages: %w", err)
		}
		if _, err := s.db.Collection(db.ConversationsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
			return fmt.Errorf("failed to delete store conversations: %w", err)
		}
	}
	log.WithFields(log.Fields{"store_id": storeID.Hex(), "actor_id": actorID.Hex()}).Info("Store deleted")
	return nil
}
