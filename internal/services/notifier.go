package services

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// Notification template ids.
const (
	TemplateWelcome         = "welcome"
	TemplateAdApproved      = "ad_approved"
	TemplateAdRejected      = "ad_rejected"
	TemplateFeatureApproved = "feature_approved"
	TemplateFeatureRejected = "feature_rejected"
	TemplateReportResolved  = "report_resolved"
)

// Notifier delivers a templated e-mail out of band.
// The asynq backed implementation lives in the tasks package.
type Notifier interface {
	Notify(ctx context.Context, to string, templateID string, data map[string]interface{}) error
}

// notifyUser looks up the recipient and hands the message to n.
// Failures are logged; a notification never fails the operation that triggered it.
func notifyUser(ctx context.Context, database *mongo.Database, n Notifier, userID primitive.ObjectID, templateID string, data map[string]interface{}) {
	if n == nil {
		return
	}
	var user models.User
	opts := options.FindOne().SetProjection(bson.M{"email": 1, "name": 1})
	if err := database.Collection(db.UsersCollection).FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user); err != nil {
		log.WithError(err).WithField("user_id", userID.Hex()).Warnf("Cannot notify user, lookup failed (%s)", templateID)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Name"] = user.Name
	if err := n.Notify(ctx, user.Email, templateID, data); err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": userID.Hex(), "template": templateID}).Error("Failed to enqueue notification")
	}
}
