package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportReason enumerates why an ad was reported.
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "SPAM"
	ReportReasonFraud         ReportReason = "FRAUD"
	ReportReasonInappropriate ReportReason = "INAPPROPRIATE"
	ReportReasonDuplicate     ReportReason = "DUPLICATE"
	ReportReasonOther         ReportReason = "OTHER"
)

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusResolved  ReportStatus = "RESOLVED"
	ReportStatusDismissed ReportStatus = "DISMISSED"
)

// Report is a user complaint about an ad, reviewed by an admin.
type Report struct {
	Base        `bson:",inline"`
	AdID        primitive.ObjectID  `bson:"ad_id" json:"ad_id"`
	ReporterID  primitive.ObjectID  `bson:"reporter_id" json:"reporter_id"`
	Reason      ReportReason        `bson:"reason" json:"reason"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Status      ReportStatus        `bson:"status" json:"status"`
	AdminNote   string              `bson:"admin_note,omitempty" json:"admin_note,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	ResolvedAt  *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy  *primitive.ObjectID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
}
