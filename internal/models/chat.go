package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation links a buyer and a seller around one ad or one store.
type Conversation struct {
	Base          `bson:",inline"`
	AdID          *primitive.ObjectID `bson:"ad_id" json:"ad_id,omitempty"`
	StoreID       *primitive.ObjectID `bson:"store_id" json:"store_id,omitempty"`
	BuyerID       primitive.ObjectID  `bson:"buyer_id" json:"buyer_id"`
	SellerID      primitive.ObjectID  `bson:"seller_id" json:"seller_id"`
	LastMessage   string              `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt *time.Time          `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// Counterpart returns the other participant.
func (c *Conversation) Counterpart(userID primitive.ObjectID) primitive.ObjectID {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// ConversationSummary is a conversation plus the caller's unread count.
type ConversationSummary struct {
	Conversation `bson:",inline"`
	Unread       int64 `bson:"unread" json:"unread"`
}

// Message is a single chat entry.
type Message struct {
	Base           `bson:",inline"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID     primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	Content        string             `bson:"content" json:"content"`
	IsSeen         bool               `bson:"is_seen" json:"is_seen"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
