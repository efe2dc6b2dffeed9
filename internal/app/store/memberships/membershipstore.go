// internal/app/store/memberships/membershipstore.go
package membershipstore

// The memberships collection is the single source of truth for who
// belongs to a community or space and with what role. There is no
// second copy on the user or entity documents, so the two "sides" of
// the relation cannot drift apart; the unique (entity_type, entity_id,
// user_id) index makes Add naturally idempotent.

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gatherhub/internal/app/system/txn"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrBadRole rejects roles outside leader/editor/member.
	ErrBadRole = errors.New(`role must be "leader", "editor", or "member"`)

	// ErrLastLeader rejects demoting or removing the sole remaining
	// leader of an entity.
	ErrLastLeader = errors.New("cannot demote or remove the last leader")

	// ErrNotMember is returned when the target has no membership in the
	// entity.
	ErrNotMember = errors.New("user is not a member of this entity")
)

type Store struct {
	c           *mongo.Collection
	communities *mongo.Collection
	spaces      *mongo.Collection
	log         *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		c:           db.Collection("memberships"),
		communities: db.Collection("communities"),
		spaces:      db.Collection("spaces"),
		log:         logger,
	}
}

// Add joins a user to an entity. Semantics:
//   - the entity must exist (mongo.ErrNoDocuments otherwise, nothing written)
//   - a fresh membership is inserted with the given role
//   - an existing plain membership may be upgraded by re-adding with a
//     higher role
//   - an existing leader/editor membership is left untouched (Add never
//     downgrades)
//
// Calling Add twice with the same arguments leaves the same state as
// calling it once. Space memberships start pending; community
// memberships carry no approval status.
func (s *Store) Add(ctx context.Context, entityType string, entityID, userID primitive.ObjectID, role string) error {
	if !models.ValidRole(role) {
		return ErrBadRole
	}

	communityID, err := s.resolveCommunity(ctx, entityType, entityID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := bson.M{
		"entity_type":  entityType,
		"entity_id":    entityID,
		"community_id": communityID,
		"user_id":      userID,
		"role":         role,
		"created_at":   now,
		"updated_at":   now,
	}
	if entityType == models.EntitySpace {
		doc["approval_status"] = models.ApprovalPending
	}

	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if !wafflemongo.IsDup(err) {
			return err
		}
		// Already a member: upgrade from plain member only, never
		// downgrade an existing leader/editor.
		if role == models.RoleMember {
			return nil
		}
		_, err = s.c.UpdateOne(ctx,
			bson.M{"entity_type": entityType, "entity_id": entityID, "user_id": userID, "role": models.RoleMember},
			bson.M{"$set": bson.M{"role": role, "updated_at": now}},
		)
		return err
	}
	return nil
}

// Promote overwrites the membership role on the single authoritative
// document. Taking the leader role away routes through the sole-leader
// guard like Demote does.
func (s *Store) Promote(ctx context.Context, entityType string, entityID, userID primitive.ObjectID, newRole string) error {
	if !models.ValidRole(newRole) {
		return ErrBadRole
	}
	return s.changeRole(ctx, entityType, entityID, userID, newRole)
}

// Demote rewrites the role to member. Refused with ErrLastLeader when
// the target is the only leader left.
func (s *Store) Demote(ctx context.Context, entityType string, entityID, userID primitive.ObjectID) error {
	return s.changeRole(ctx, entityType, entityID, userID, models.RoleMember)
}

// changeRole runs the read-check-write under a transaction so two
// concurrent demotions of different leaders cannot both pass the
// sole-leader guard on stale counts.
func (s *Store) changeRole(ctx context.Context, entityType string, entityID, userID primitive.ObjectID, newRole string) error {
	return txn.WithTransaction(ctx, s.c.Database().Client(), s.log, func(ctx context.Context) error {
		var m models.Membership
		filter := bson.M{"entity_type": entityType, "entity_id": entityID, "user_id": userID}
		if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrNotMember
			}
			return err
		}
		if m.Role == newRole {
			return nil
		}
		if m.Role == models.RoleLeader && newRole != models.RoleLeader {
			n, err := s.CountByEntity(ctx, entityType, entityID, models.RoleLeader)
			if err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastLeader
			}
		}
		_, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
			"role":       newRole,
			"updated_at": time.Now().UTC(),
		}})
		return err
	})
}

// Remove deletes the membership. Same sole-leader guard as Demote.
func (s *Store) Remove(ctx context.Context, entityType string, entityID, userID primitive.ObjectID) error {
	return txn.WithTransaction(ctx, s.c.Database().Client(), s.log, func(ctx context.Context) error {
		var m models.Membership
		filter := bson.M{"entity_type": entityType, "entity_id": entityID, "user_id": userID}
		if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrNotMember
			}
			return err
		}
		if m.Role == models.RoleLeader {
			n, err := s.CountByEntity(ctx, entityType, entityID, models.RoleLeader)
			if err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastLeader
			}
		}
		_, err := s.c.DeleteOne(ctx, filter)
		return err
	})
}

// SetApprovalStatus approves or rejects a pending space membership.
func (s *Store) SetApprovalStatus(ctx context.Context, spaceID, userID primitive.ObjectID, status string) error {
	if status != models.ApprovalLive && status != models.ApprovalRejected {
		return errors.New("approval status must be live or rejected")
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"entity_type": models.EntitySpace, "entity_id": spaceID, "user_id": userID},
		bson.M{"$set": bson.M{"approval_status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotMember
	}
	return nil
}

// Get returns the membership for (entityType, entityID, userID).
func (s *Store) Get(ctx context.Context, entityType string, entityID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{
		"entity_type": entityType, "entity_id": entityID, "user_id": userID,
	}).Decode(&m)
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Role returns the caller's role in the entity, or "" when not a member.
func (s *Store) Role(ctx context.Context, entityType string, entityID, userID primitive.ObjectID) (string, error) {
	m, err := s.Get(ctx, entityType, entityID, userID)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// CountByEntity counts memberships, optionally filtered by role.
func (s *Store) CountByEntity(ctx context.Context, entityType string, entityID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}

// ListByEntity returns all memberships of an entity, optionally
// filtered by role.
func (s *Store) ListByEntity(ctx context.Context, entityType string, entityID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByUser returns a user's memberships, optionally filtered by
// entity type. This replaces the denormalized per-user index lists.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, entityType string) ([]models.Membership, error) {
	filter := bson.M{"user_id": userID}
	if entityType != "" {
		filter["entity_type"] = entityType
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// DeleteByEntity removes all memberships of one entity. Returns the
// number deleted.
func (s *Store) DeleteByEntity(ctx context.Context, entityType string, entityID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"entity_type": entityType, "entity_id": entityID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByCommunity removes the community's memberships and those of
// every space inside it in one sweep (spaces carry community_id).
func (s *Store) DeleteByCommunity(ctx context.Context, communityID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"community_id": communityID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships of a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DistinctUserIDs returns every user id holding at least one
// membership. The janitor cross-checks these against the users
// collection to sweep rows left behind by account deletions.
func (s *Store) DistinctUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// resolveCommunity checks the entity exists and returns its parent
// community id (the entity's own id for communities).
func (s *Store) resolveCommunity(ctx context.Context, entityType string, entityID primitive.ObjectID) (primitive.ObjectID, error) {
	switch entityType {
	case models.EntityCommunity:
		err := s.communities.FindOne(ctx, bson.M{"_id": entityID}).Err()
		if err != nil {
			return primitive.NilObjectID, err
		}
		return entityID, nil
	case models.EntitySpace:
		var sp models.Space
		if err := s.spaces.FindOne(ctx, bson.M{"_id": entityID}).Decode(&sp); err != nil {
			return primitive.NilObjectID, err
		}
		return sp.CommunityID, nil
	default:
		return primitive.NilObjectID, errors.New("unknown entity type: " + entityType)
	}
}
