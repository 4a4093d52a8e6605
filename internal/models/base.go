package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the document id shared by every persisted entity.
type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
}

// GenIDIfEmpty assigns a fresh ObjectID when none is set.
func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
}

// Timestamps are maintained by the services on every write.
type Timestamps struct {
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Touch stamps UpdatedAt, and CreatedAt on first save.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// Page describes one page of a paginated listing.
type Page struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Skip returns the number of documents preceding the page.
func (p Page) Skip() int64 {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	pages := int64(p.Page - 1)
	if pages > math.MaxInt64/int64(p.Limit) {
		return math.MaxInt64
	}
	return pages * int64(p.Limit)
}
