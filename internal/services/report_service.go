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

// IReportService is the human review queue for reported ads.
type IReportService interface {
	Create(ctx context.Context, reporterID, adID primitive.ObjectID, in ReportInput) (*models.Report, error)
	List(ctx context.Context, status models.ReportStatus, page models.Page) ([]models.Report, models.Page, error)
	Resolve(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error)
	Dismiss(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error)
}

type reportService struct {
	db       *mongo.Database
	notifier Notifier
}

// NewReportService creates a new ReportService. notifier may be nil.
func NewReportService(db *mongo.Database, notifier Notifier) IReportService {
	return &reportService{db: db, notifier: notifier}
}

func (s *reportService) collection() *mongo.Collection {
	return s.db.Collection(db.ReportsCollection)
}

// Create files one report per (ad, reporter).
func (s *reportService) Create(ctx context.Context, reporterID, adID primitive.ObjectID, in ReportInput) (*models.Report, error) {
	if _, err := requireActiveUser(ctx, s.db, reporterID); err != nil {
		return nil, err
	}
	if err := ValidateReportInput(&in); err != nil {
		return nil, err
	}
	count, err := s.db.Collection(db.AdsCollection).CountDocuments(ctx, bson.M{"_id": adID})
	if err != nil {
		return nil, fmt.Errorf("error checking ad %s: %w", adID.Hex(), err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	report := &models.Report{
		AdID:        adID,
		ReporterID:  reporterID,
		Reason:      models.ReportReason(in.Reason),
		Description: in.Description,
		Status:      models.ReportStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	report.GenIDIfEmpty()
	if _, err := s.collection().InsertOne(ctx, report); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("ad %s already reported by %s: %w", adID.Hex(), reporterID.Hex(), ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}
	log.WithFields(log.Fields{"report_id": report.ID.Hex(), "ad_id": adID.Hex(), "reason": report.Reason}).Info("Ad reported")
	return report, nil
}

func (s *reportService) List(ctx context.Context, status models.ReportStatus, page models.Page) ([]models.Report, models.Page, error) {
	page = normalizePage(page.Page, page.Limit)
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, page, fmt.Errorf("failed to count reports: %w", err)
	}
	page.Total = total
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, page, fmt.Errorf("failed to list reports: %w", err)
	}
	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, page, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, page, nil
}

func (s *reportService) close(ctx context.Context, reportID, adminID primitive.ObjectID, status models.ReportStatus, note string) (*models.Report, error) {
	set := bson.M{
		"status":      status,
		"resolved_at": time.Now().UTC(),
		"resolved_by": adminID,
	}
	if note = strings.TrimSpace(note); note != "" {
		set["admin_note"] = note
	}
	filter := bson.M{"_id": reportID, "status": models.ReportStatusPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.Report
	if err := s.collection().FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			count, errCheck := s.collection().CountDocuments(ctx, bson.M{"_id": reportID})
			if errCheck != nil {
				return nil, fmt.Errorf("error checking report %s: %w", reportID.Hex(), errCheck)
			}
			if count == 0 {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("report %s: %w", reportID.Hex(), ErrAlreadyProcessed)
		}
		return nil, fmt.Errorf("db error closing report %s: %w", reportID.Hex(), err)
	}
	metrics.RecordDecision("report", strings.ToLower(string(status)))
	return &report, nil
}

// Resolve closes the report as acted upon and lets the reporter know.
func (s *reportService) Resolve(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error) {
	report, err := s.close(ctx, reportID, adminID, models.ReportStatusResolved, note)
	if err != nil {
		return nil, err
	}
	notifyUser(ctx, s.db, s.notifier, report.ReporterID, TemplateReportResolved, map[string]interface{}{
		"AdID": report.AdID.Hex(),
		"Note": report.AdminNote,
	})
	return report, nil
}

// Dismiss closes the report without action.
func (s *reportService) Dismiss(ctx context.Context, reportID, adminID primitive.ObjectID, note string) (*models.Report, error) {
	return s.close(ctx, reportID, adminID, models.ReportStatusDismissed, note)
}
