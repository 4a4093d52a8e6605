package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/models"
)

// IFeatureRequestService handles paid boosts of ads.
type IFeatureRequestService interface {
	Submit(ctx context.Context, userID, adID primitive.ObjectID, screenshotURL string, settings models.SiteSettings) (*models.FeatureRequest, error)
	Approve(ctx context.Context, requestID, adminID primitive.ObjectID) (*models.FeatureRequest, error)
	Reject(ctx context.Context, requestID, adminID primitive.ObjectID, reason string) (*models.FeatureRequest, error)
	AdminList(ctx context.Context, status models.RequestStatus, page models.Page) ([]models.FeatureRequest, models.Page, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page models.Page) ([]models.FeatureRequest, models.Page, error)
}

type featureRequestService struct {
	db       *mongo.Database
	notifier Notifier
}

// NewFeatureRequestService creates a new FeatureRequestService. notifier may be nil.
func NewFeatureRequestService(db *mongo.Database, notifier Notifier) IFeatureRequestService {
	return &featureRequestService{db: db, notifier: notifier}
}

func (s *featureRequestService) collection() *mongo.Collection {
	return s.db.Collection(db.FeatureRequestsCollection)
}

// Submit records a PENDING request for an approved, not currently featured ad
// of the caller. Price and duration come from settings.
func (s *featureRequestService) Submit(ctx context.Context, userID, adID primitive.ObjectID, screenshotURL string, settings models.SiteSettings) (*models.FeatureRequest, error) {
	if _, err := requireActiveUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	screenshotURL = strings.TrimSpace(screenshotURL)
	if screenshotURL == "" {
		return nil, fieldError("screenshot_url", "payment screenshot is required")
	}

	var ad models.Ad
	if err := s.db.Collection(db.AdsCollection).FindOne(ctx, bson.M{"_id": adID}).Decode(&ad); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading ad %s: %w", adID.Hex(), err)
	}
	if !ad.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	now := time.Now().UTC()
	if !ad.IsPublished() {
		return nil, fmt.Errorf("ad %s is not approved: %w", adID.Hex(), ErrInvalidState)
	}
	if ad.IsFeaturedAt(now) {
		return nil, fmt.Errorf("ad %s is already featured: %w", adID.Hex(), ErrInvalidState)
	}

	request := &models.FeatureRequest{
		AdID:          adID,
		UserID:        userID,
		ScreenshotURL: screenshotURL,
		Status:        models.RequestStatusPending,
		Amount:        settings.FeaturedPrice,
		DurationDays:  settings.FeaturedDurationDays,
		CreatedAt:     now,
	}
	request.GenIDIfEmpty()

	if _, err := s.collection().InsertOne(ctx, request); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("a feature request for ad %s is already pending: %w", adID.Hex(), ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert feature request for ad %s: %w", adID.Hex(), err)
	}
	log.WithFields(log.Fields{"request_id": request.ID.Hex(), "ad_id": adID.Hex()}).Info("Feature request submitted")
	return request, nil
}

// review moves a PENDING request to its final status.
func (s *featureRequestService) review(ctx context.Context, requestID primitive.ObjectID, set bson.M) (*models.FeatureRequest, error) {
	filter := bson.M{"_id": requestID, "status": models.RequestStatusPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var request models.FeatureRequest
	err := s.collection().FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			count, errCheck := s.collection().CountDocuments(ctx, bson.M{"_id": requestID})
			if errCheck != nil {
				return nil, fmt.Errorf("error checking feature request %s: %w", requestID.Hex(), errCheck)
			}
			if count == 0 {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("feature request %s: %w", requestID.Hex(), ErrAlreadyProcessed)
		}
		return nil, fmt.Errorf("db error reviewing feature request %s: %w", requestID.Hex(), err)
	}
	return &request, nil
}

// Approve accepts the payment and features the ad for the request's duration,
// counted from the review time. The ad must still be published; otherwise, or
// when the ad write fails, the request goes back to PENDING.
func (s *featureRequestService) Approve(ctx context.Context, requestID, adminID primitive.ObjectID) (*models.FeatureRequest, error) {
	now := time.Now().UTC()
	request, err := s.review(ctx, requestID, bson.M{
		"status":      models.RequestStatusApproved,
		"reviewed_at": now,
		"reviewed_by": adminID,
	})
	if err != nil {
		return nil, err
	}

	until := request.FeaturedUntil(now)
	result, err := s.db.Collection(db.AdsCollection).UpdateOne(ctx,
		bson.M{"_id": request.AdID, "is_approved": true, "status": models.AdStatusApproved},
		bson.M{"$set": bson.M{"is_featured": true, "featured_until": until, "updated_at": now}})
	if err == nil && result.MatchedCount == 0 {
		err = fmt.Errorf("ad %s is no longer published: %w", request.AdID.Hex(), ErrInvalidState)
	}
	if err != nil {
		s.reopen(ctx, request.ID, now)
		if errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		return nil, fmt.Errorf("featuring ad %s for request %s failed: %w", request.AdID.Hex(), requestID.Hex(), err)
	}

	metrics.RecordDecision("feature_request", "approved")
	log.WithFields(log.Fields{"request_id": requestID.Hex(), "ad_id": request.AdID.Hex(), "until": until}).Info("Feature request approved")
	notifyUser(ctx, s.db, s.notifier, request.UserID, TemplateFeatureApproved, map[string]interface{}{
		"AdID":          request.AdID.Hex(),
		"FeaturedUntil": until.Format("2006-01-02"),
		"DurationDays":  request.DurationDays,
	})
	return request, nil
}

// reopen undoes an approval that could not feature the ad. Only the review
// stamped at reviewedAt is reverted.
func (s *featureRequestService) reopen(ctx context.Context, requestID primitive.ObjectID, reviewedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": requestID, "status": models.RequestStatusApproved, "reviewed_at": reviewedAt},
		bson.M{
			"$set":   bson.M{"status": models.RequestStatusPending},
			"$unset": bson.M{"reviewed_at": "", "reviewed_by": ""},
		})
	if err != nil {
		log.WithField("request_id", requestID.Hex()).Errorf("Failed to reopen feature request: %v", err)
	}
}

// Reject refuses the payment with a mandatory reason. The ad is not touched.
func (s *featureRequestService) Reject(ctx context.Context, requestID, adminID primitive.ObjectID, reason string) (*models.FeatureRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fieldError("reason", "rejection reason is required")
	}
	request, err := s.review(ctx, requestID, bson.M{
		"status":           models.RequestStatusRejected,
		"rejection_reason": reason,
		"reviewed_at":      time.Now().UTC(),
		"reviewed_by":      adminID,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordDecision("feature_request", "rejected")
	notifyUser(ctx, s.db, s.notifier, request.UserID, TemplateFeatureRejected, map[string]interface{}{
		"AdID":   request.AdID.Hex(),
		"Reason": reason,
	})
	return request, nil
}

func (s *featureRequestService) list(ctx context.Context, filter bson.M, page models.Page) ([]models.FeatureRequest, models.Page, error) {
	page = normalizePage(page.Page, page.Limit)
	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count feature requests: %w", err)
	}
	page.Total = total
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, page, fmt.Errorf("failed to list feature requests: %w", err)
	}
	requests := []models.FeatureRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, page, fmt.Errorf("failed to decode feature requests: %w", err)
	}
	return requests, page, nil
}

func (s *featureRequestService) AdminList(ctx context.Context, status models.RequestStatus, page models.Page) ([]models.FeatureRequest, models.Page, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page)
}

func (s *featureRequestService) ListByUser(ctx context.Context, userID primitive.ObjectID, page models.Page) ([]models.FeatureRequest, models.Page, error) {
	return s.list(ctx, bson.M{"user_id": userID}, page)
}
