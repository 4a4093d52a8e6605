package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is shared by feature requests: pending until an admin decides.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// FeatureRequest is a paid request to boost an ad, backed by a bank transfer screenshot.
type FeatureRequest struct {
	Base            `bson:",inline"`
	AdID            primitive.ObjectID  `bson:"ad_id" json:"ad_id"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"user_id"`
	ScreenshotURL   string              `bson:"screenshot_url" json:"screenshot_url"`
	Status          RequestStatus       `bson:"status" json:"status"`
	Amount          float64             `bson:"amount" json:"amount"`
	DurationDays    int                 `bson:"duration_days" json:"duration_days"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
}

// FeaturedUntil is the end of the boost window when approved at t.
func (r *FeatureRequest) FeaturedUntil(t time.Time) time.Time {
	return t.Add(time.Duration(r.DurationDays) * 24 * time.Hour)
}
