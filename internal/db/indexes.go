package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection           = "users"
	AdsCollection             = "ads"
	CategoriesCollection      = "categories"
	FeatureRequestsCollection = "feature_requests"
	ReportsCollection         = "reports"
	ConversationsCollection   = "conversations"
	MessagesCollection        = "messages"
	StoresCollection          = "stores"
	FavoritesCollection       = "favorites"
	SiteConfigCollection      = "site_config"
	BankDetailsCollection     = "bank_details"
	EmailTemplatesCollection  = "email_templates"
	RateLimitRulesCollection  = "rate_limit_rules"
)

var indexes = map[string][]mongo.IndexModel{
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_banned", Value: 1}}},
	},
	AdsCollection: {
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}, Options: options.Index().SetName("ads_text")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "is_approved", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "sub_category", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{{Key: "is_featured", Value: 1}, {Key: "featured_until", Value: -1}}},
	},
	CategoriesCollection: {
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	FeatureRequestsCollection: {
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{
			Keys: bson.D{{Key: "ad_id", Value: 1}},
			Options: options.Index().SetName("one_pending_per_ad").SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "PENDING"}),
		},
	},
	ReportsCollection: {
		{Keys: bson.D{{Key: "ad_id", Value: 1}, {Key: "reporter_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	},
	ConversationsCollection: {
		{
			Keys: bson.D{{Key: "ad_id", Value: 1}, {Key: "store_id", Value: 1}, {Key: "buyer_id", Value: 1}, {Key: "seller_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "last_message_at", Value: -1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "last_message_at", Value: -1}}},
	},
	MessagesCollection: {
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_seen", Value: 1}}},
	},
	StoresCollection: {
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
	},
	FavoritesCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ad_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	SiteConfigCollection: {
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	RateLimitRulesCollection: {
		{Keys: bson.D{{Key: "route", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	EmailTemplatesCollection: {
		{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates the indexes every service relies on for uniqueness
// and query shape. CreateMany is idempotent for identical definitions.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, models := range indexes {
		names, err := database.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		log.WithField("collection", collection).Debugf("Ensured indexes %v", names)
	}
	return nil
}
