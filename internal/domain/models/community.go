// internal/domain/models/community.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Community is the top-level organizing unit. Spaces, events, and
// articles all hang off a community.
//
// Member/leader lists are not embedded here; the memberships collection
// is the single source of truth for who belongs and with what role.
type Community struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	PhotoPath   string             `bson:"photo_path,omitempty" json:"photo_path,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
