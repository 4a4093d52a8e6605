package models

import (
	"time"
)

// Role of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a marketplace account.
type User struct {
	Base         `bson:",inline"`
	Timestamps   `bson:",inline"`
	Name         string     `bson:"name" json:"name"`
	Email        string     `bson:"email" json:"email"`
	Phone        string     `bson:"phone,omitempty" json:"phone,omitempty"`
	City         string     `bson:"city,omitempty" json:"city,omitempty"`
	AvatarURL    string     `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	PasswordHash string     `bson:"password" json:"-"`
	Role         Role       `bson:"role" json:"role"`
	IsBanned     bool       `bson:"is_banned" json:"is_banned"`
	BannedAt     *time.Time `bson:"banned_at,omitempty" json:"banned_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile is the subset of a user shown to other users.
type PublicProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	City       string    `json:"city,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	MemberFrom time.Time `json:"member_from"`
	AdCount    int64     `json:"ad_count"`
}
