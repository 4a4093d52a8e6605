package models

import (
	"time"
)

// Known SiteConfig keys.
const (
	ConfigFeaturedPrice        = "featured_price"
	ConfigFeaturedDurationDays = "featured_duration_days"
	ConfigCommissionPercent    = "commission_percent"
	ConfigCommissionEnabled    = "commission_enabled"
	ConfigSiteName             = "site_name"
	ConfigSupportEmail         = "support_email"
	ConfigSupportPhone         = "support_phone"
	ConfigMaxImagesPerAd       = "max_images_per_ad"
	ConfigViewCountPolicy      = "view_count_policy"
	ConfigRemoderateOnEdit     = "remoderate_on_edit"
)

// View counting policies.
const (
	ViewPolicyEvery     = "every"
	ViewPolicyPerViewer = "per_viewer"
)

// ConfigEntry represents a document in the site_config collection.
type ConfigEntry struct {
	Key       string      `bson:"key" json:"key"`
	Value     interface{} `bson:"value" json:"value"`
	Public    bool        `bson:"public" json:"public"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updated_at"`
}

// SiteSettings is an immutable snapshot of the business settings taken once
// per request.
type SiteSettings struct {
	SiteName             string  `json:"site_name"`
	SupportEmail         string  `json:"support_email"`
	SupportPhone         string  `json:"support_phone"`
	FeaturedPrice        float64 `json:"featured_price"`
	FeaturedDurationDays int     `json:"featured_duration_days"`
	CommissionPercent    float64 `json:"commission_percent"`
	CommissionEnabled    bool    `json:"commission_enabled"`
	MaxImagesPerAd       int     `json:"max_images_per_ad"`
	ViewCountPolicy      string  `json:"view_count_policy"`
	RemoderateOnEdit     bool    `json:"remoderate_on_edit"`
}

// DefaultSiteSettings are used for keys missing from the DB.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		SiteName:             "Market",
		FeaturedPrice:        2000,
		FeaturedDurationDays: 7,
		CommissionPercent:    0,
		CommissionEnabled:    false,
		MaxImagesPerAd:       10,
		ViewCountPolicy:      ViewPolicyEvery,
		RemoderateOnEdit:     false,
	}
}

// BankDetails is the singleton with the bank transfer instructions shown to
// users paying for a feature request.
type BankDetails struct {
	BankName      string    `bson:"bank_name" json:"bank_name" validate:"required,max=100"`
	AccountTitle  string    `bson:"account_title" json:"account_title" validate:"required,max=100"`
	AccountNumber string    `bson:"account_number" json:"account_number" validate:"required,max=50"`
	IBAN          string    `bson:"iban,omitempty" json:"iban,omitempty" validate:"max=40"`
	Branch        string    `bson:"branch,omitempty" json:"branch,omitempty" validate:"max=100"`
	Instructions  string    `bson:"instructions,omitempty" json:"instructions,omitempty" validate:"max=2000"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// RateLimitConfig holds token bucket parameters.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // tokens per second
}

// RateLimitRule overrides the default buckets for one route.
// Stored in the rate_limit_rules collection.
type RateLimitRule struct {
	Route string           `bson:"route" json:"route"` // gin full path, e.g. /v1/ads/:id/reports
	Guest *RateLimitConfig `bson:"guest,omitempty" json:"guest,omitempty"`
	User  *RateLimitConfig `bson:"user,omitempty" json:"user,omitempty"`
}
