// internal/app/store/spaces/spacestore.go
package spacestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNameTaken is returned when the community already has a space with
// this name (case-insensitive, per-community).
var ErrNameTaken = errors.New("a space with this name already exists in the community")

type Store struct {
	c           *mongo.Collection
	communities *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("spaces"),
		communities: db.Collection("communities"),
	}
}

// Create inserts a space in pending state. Community leaders approve or
// reject it before it goes live. The parent community must exist.
func (s *Store) Create(ctx context.Context, communityID primitive.ObjectID, name, description string, createdBy primitive.ObjectID) (models.Space, error) {
	if err := s.communities.FindOne(ctx, bson.M{"_id": communityID}).Err(); err != nil {
		return models.Space{}, err
	}

	now := time.Now().UTC()
	space := models.Space{
		ID:             primitive.NewObjectID(),
		CommunityID:    communityID,
		Name:           strings.TrimSpace(name),
		NameCI:         text.Fold(name),
		Description:    description,
		CreatedBy:      createdBy,
		ApprovalStatus: models.ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.c.InsertOne(ctx, space); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Space{}, ErrNameTaken
		}
		return models.Space{}, err
	}
	return space, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Space, error) {
	var space models.Space
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&space); err != nil {
		return models.Space{}, err
	}
	return space, nil
}

// SetApprovalStatus moves the space between pending/live/rejected.
func (s *Store) SetApprovalStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if status != models.ApprovalPending && status != models.ApprovalLive && status != models.ApprovalRejected {
		return errors.New("approval status must be pending, live, or rejected")
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"approval_status": status,
		"updated_at":      time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Update applies field-level changes; nil pointers leave fields alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description *string) (models.Space, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil && strings.TrimSpace(*name) != "" {
		set["name"] = strings.TrimSpace(*name)
		set["name_ci"] = text.Fold(*name)
	}
	if description != nil {
		set["description"] = *description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var space models.Space
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&space); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Space{}, ErrNameTaken
		}
		return models.Space{}, err
	}
	return space, nil
}

// SetPhotoPath records the uploaded photo's blob path.
func (s *Store) SetPhotoPath(ctx context.Context, id primitive.ObjectID, path string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"photo_path": path,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByCommunity returns the community's spaces, optionally filtered
// by approval status ("" means all).
func (s *Store) ListByCommunity(ctx context.Context, communityID primitive.ObjectID, status string) ([]models.Space, error) {
	filter := bson.M{"community_id": communityID}
	if status != "" {
		filter["approval_status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var spaces []models.Space
	if err := cur.All(ctx, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

// ListByIDs fetches spaces for the given ids. Callers chunk the ids.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Space, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var spaces []models.Space
	if err := cur.All(ctx, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

// IDsByCommunity returns just the ids of the community's spaces, for
// cascade teardown.
func (s *Store) IDsByCommunity(ctx context.Context, communityID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"community_id": communityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// Delete removes the space document only; the cascade package clears
// children first.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByCommunity removes all space documents of a community in one
// sweep (cascade path).
func (s *Store) DeleteByCommunity(ctx context.Context, communityID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"community_id": communityID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
