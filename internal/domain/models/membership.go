// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles, lowest to highest.
const (
	RoleMember = "member"
	RoleEditor = "editor"
	RoleLeader = "leader"
)

// Entity types a membership can point at.
const (
	EntityCommunity = "community"
	EntitySpace     = "space"
)

// Membership is the authoritative join between users and
// communities/spaces. Exactly one document per (entity_type, entity_id,
// user_id); role is a scalar. Because both "sides" of the relation live
// in this one document, entity member lists and user membership lists
// can never disagree on role.
type Membership struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityType string             `bson:"entity_type" json:"entity_type"` // "community" | "space"
	EntityID   primitive.ObjectID `bson:"entity_id" json:"entity_id"`
	// CommunityID is the parent community: equal to EntityID for
	// community memberships, the space's parent for space memberships.
	CommunityID primitive.ObjectID `bson:"community_id" json:"community_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"`
	// ApprovalStatus applies to space memberships only ("" for communities).
	ApprovalStatus string    `bson:"approval_status,omitempty" json:"approval_status,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// ValidRole reports whether role is one of the recognized membership roles.
func ValidRole(role string) bool {
	return role == RoleMember || role == RoleEditor || role == RoleLeader
}
