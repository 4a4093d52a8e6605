package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pakolx/market/internal/db"
	"pakolx/market/internal/models"
)

// DashboardStats are the counters on the admin dashboard.
type DashboardStats struct {
	PendingAds             int64 `json:"pending_ads"`
	ApprovedAds            int64 `json:"approved_ads"`
	ActiveFeaturedAds      int64 `json:"active_featured_ads"`
	PendingFeatureRequests int64 `json:"pending_feature_requests"`
	PendingReports         int64 `json:"pending_reports"`
	Users                  int64 `json:"users"`
	BannedUsers            int64 `json:"banned_users"`
	Stores                 int64 `json:"stores"`
}

// IStatsService computes the admin dashboard counters.
type IStatsService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type statsService struct {
	db *mongo.Database
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *mongo.Database) IStatsService {
	return &statsService{db: db}
}

func (s *statsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now().UTC()
	stats := &DashboardStats{}
	counts := []struct {
		collection string
		filter     bson.M
		dst        *int64
	}{
		{db.AdsCollection, bson.M{"status": models.AdStatusPending}, &stats.PendingAds},
		{db.AdsCollection, bson.M{"status": models.AdStatusApproved}, &stats.ApprovedAds},
		{db.AdsCollection, bson.M{"is_featured": true, "featured_until": bson.M{"$gt": now}}, &stats.ActiveFeaturedAds},
		{db.FeatureRequestsCollection, bson.M{"status": models.RequestStatusPending}, &stats.PendingFeatureRequests},
		{db.ReportsCollection, bson.M{"status": models.ReportStatusPending}, &stats.PendingReports},
		{db.UsersCollection, bson.M{}, &stats.Users},
		{db.UsersCollection, bson.M{"is_banned": true}, &stats.BannedUsers},
		{db.StoresCollection, bson.M{}, &stats.Stores},
	}
	for _, c := range counts {
		n, err := s.db.Collection(c.collection).CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.collection, err)
		}
		*c.dst = n
	}
	return stats, nil
}
