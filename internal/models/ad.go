package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdStatus is the moderation state of an ad.
type AdStatus string

const (
	AdStatusPending  AdStatus = "PENDING"
	AdStatusApproved AdStatus = "APPROVED"
	AdStatusRejected AdStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s AdStatus) Valid() bool {
	switch s {
	case AdStatusPending, AdStatusApproved, AdStatusRejected:
		return true
	}
	return false
}

// Condition of the advertised item.
type Condition string

const (
	ConditionNew  Condition = "NEW"
	ConditionUsed Condition = "USED"
)

// Ad is a single marketplace listing.
type Ad struct {
	Base            `bson:",inline"`
	Timestamps      `bson:",inline"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"user_id"`
	StoreID         *primitive.ObjectID `bson:"store_id,omitempty" json:"store_id,omitempty"`
	Title           string              `bson:"title" json:"title"`
	Description     string              `bson:"description" json:"description"`
	Price           float64             `bson:"price" json:"price"`
	Condition       Condition           `bson:"condition" json:"condition"`
	Images          []string            `bson:"images" json:"images"`
	City            string              `bson:"city" json:"city"`
	Area            string              `bson:"area,omitempty" json:"area,omitempty"`
	CategoryID      primitive.ObjectID  `bson:"category_id" json:"category_id"`
	SubCategory     string              `bson:"sub_category,omitempty" json:"sub_category,omitempty"`
	Phone           string              `bson:"phone,omitempty" json:"phone,omitempty"`
	IsApproved      bool                `bson:"is_approved" json:"is_approved"`
	Status          AdStatus            `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	IsFeatured      bool                `bson:"is_featured" json:"is_featured"`
	FeaturedUntil   *time.Time          `bson:"featured_until,omitempty" json:"featured_until,omitempty"`
	Views           int64               `bson:"views" json:"views"`
}

// IsPublished reports whether moderation has let the ad through.
// Owner bans are applied separately at query time.
func (a *Ad) IsPublished() bool {
	return a.IsApproved && a.Status == AdStatusApproved
}

// IsFeaturedAt reports whether the feature boost is active at t.
func (a *Ad) IsFeaturedAt(t time.Time) bool {
	return a.IsFeatured && a.FeaturedUntil != nil && a.FeaturedUntil.After(t)
}

// OwnedBy reports whether userID owns the ad.
func (a *Ad) OwnedBy(userID primitive.ObjectID) bool {
	return a.UserID == userID
}

// AdSort enumerates the supported search orderings.
type AdSort string

const (
	AdSortNewest    AdSort = "newest"
	AdSortOldest    AdSort = "oldest"
	AdSortPriceAsc  AdSort = "price_asc"
	AdSortPriceDesc AdSort = "price_desc"
	AdSortPopular   AdSort = "popular"
)

// AdSearch holds public search criteria. Zero values mean "no filter".
type AdSearch struct {
	Query        string
	CategoryID   *primitive.ObjectID
	CategorySlug string
	SubCategory  string
	City         string
	Condition    Condition
	MinPrice     *float64
	MaxPrice     *float64
	FeaturedOnly bool
	UserID       *primitive.ObjectID
	StoreID      *primitive.ObjectID
	ExcludeID    *primitive.ObjectID
	Sort         AdSort
	Page         int
	Limit        int
}
