// internal/domain/models/space.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approval states for spaces and for space memberships.
const (
	ApprovalPending  = "pending"
	ApprovalLive     = "live"
	ApprovalRejected = "rejected"
)

// Space is a sub-group inside a community. A new space starts pending
// and becomes live (or rejected) when a community leader reviews it.
type Space struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	CommunityID    primitive.ObjectID `bson:"community_id" json:"community_id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	Description    string             `bson:"description" json:"description"`
	PhotoPath      string             `bson:"photo_path,omitempty" json:"photo_path,omitempty"`
	CreatedBy      primitive.ObjectID `bson:"created_by" json:"created_by"`
	ApprovalStatus string             `bson:"approval_status" json:"approval_status"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
