package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is a seller's branded profile aggregating their ads.
type Store struct {
	Base        `bson:",inline"`
	Timestamps  `bson:",inline"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	LogoURL     string             `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	BannerURL   string             `bson:"banner_url,omitempty" json:"banner_url,omitempty"`
	City        string             `bson:"city,omitempty" json:"city,omitempty"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
}
