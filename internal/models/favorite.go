package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorite is a user's bookmark of an ad.
type Favorite struct {
	Base      `bson:",inline"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	AdID      primitive.ObjectID `bson:"ad_id" json:"ad_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
