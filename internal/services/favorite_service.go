package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// IFavoriteService manages users' bookmarked ads.
type IFavoriteService interface {
	Add(ctx context.Context, userID, adID primitive.ObjectID) error
	Remove(ctx context.Context, userID, adID primitive.ObjectID) error
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Ad, error)
}

type favoriteService struct {
	db *mongo.Database
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(db *mongo.Database) IFavoriteService {
	return &favoriteService{db: db}
}

// Add bookmarks a public ad. Adding twice is a no-op.
func (s *favoriteService) Add(ctx context.Context, userID, adID primitive.ObjectID) error {
	if _, err := requireActiveUser(ctx, s.db, userID); err != nil {
		return err
	}
	filter, err := publicAdFilter(ctx, s.db)
	if err != nil {
		return err
	}
	filter["_id"] = adID
	count, err := s.db.Collection(db.AdsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("error checking ad %s: %w", adID.Hex(), err)
	}
	if count == 0 {
		return ErrNotFound
	}

	update := bson.M{"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "created_at": time.Now().UTC()}}
	err = db.Try(func(attempt int) error {
		_, err := s.db.Collection(db.FavoritesCollection).UpdateOne(ctx,
			bson.M{"user_id": userID, "ad_id": adID}, update, options.Update().SetUpsert(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add favorite %s for %s: %w", adID.Hex(), userID.Hex(), err)
	}
	return nil
}

// Remove deletes the bookmark if present.
func (s *favoriteService) Remove(ctx context.Context, userID, adID primitive.ObjectID) error {
	if _, err := s.db.Collection(db.FavoritesCollection).DeleteOne(ctx, bson.M{"user_id": userID, "ad_id": adID}); err != nil {
		return fmt.Errorf("failed to remove favorite %s for %s: %w", adID.Hex(), userID.Hex(), err)
	}
	return nil
}

// List returns the bookmarked ads that are still public, most recently bookmarked first.
func (s *favoriteService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Ad, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(maxPageLimit)
	cursor, err := s.db.Collection(db.FavoritesCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites of %s: %w", userID.Hex(), err)
	}
	var favorites []models.Favorite
	if err := cursor.All(ctx, &favorites); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}
	if len(favorites) == 0 {
		return []models.Ad{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.AdID)
	}
	filter, err := publicAdFilter(ctx, s.db)
	if err != nil {
		return nil, err
	}
	filter["_id"] = bson.M{"$in": ids}
	adCursor, err := s.db.Collection(db.AdsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite ads: %w", err)
	}
	var found []models.Ad
	if err := adCursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode favorite ads: %w", err)
	}

	byID := make(map[primitive.ObjectID]models.Ad, len(found))
	for _, ad := range found {
		byID[ad.ID] = ad
	}
	now := time.Now()
	ads := make([]models.Ad, 0, len(found))
	for _, id := range ids {
		if ad, ok := byID[id]; ok {
			presentAd(&ad, now)
			ads = append(ads, ad)
		}
	}
	return ads, nil
}
