// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account created from the external identity provider.
//
// NOTE:
//   - Community/space membership is not embedded on User.
//     Use the memberships collection to discover a user's entities.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Subject    string             `bson:"subject" json:"-"` // stable id from the identity provider
	Email      string             `bson:"email" json:"email"`
	FullName   string             `bson:"full_name" json:"full_name"`
	PhotoURL   string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Bio        string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`
	Prefs      UserPrefs          `bson:"prefs" json:"prefs"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
	LastSeenAt time.Time          `bson:"last_seen_at,omitempty" json:"-"`
}

// UserPrefs holds client preferences the app restores after a reinstall.
type UserPrefs struct {
	DarkMode bool `bson:"dark_mode" json:"dark_mode"`
}
