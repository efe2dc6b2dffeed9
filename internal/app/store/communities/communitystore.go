// internal/app/store/communities/communitystore.go
package communitystore

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

// ErrNameTaken is returned when another community already uses the name
// (case-insensitive).
var ErrNameTaken = errors.New("a community with this name already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("communities")}
}

// Create inserts a new community. The unique name_ci index enforces
// case-insensitive name uniqueness; the creator's leader membership is
// written by the caller.
func (s *Store) Create(ctx context.Context, name, description string, createdBy primitive.ObjectID) (models.Community, error) {
	now := time.Now().UTC()
	community := models.Community{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(name),
		NameCI:      text.Fold(name),
		Description: description,
		CreatedBy:   createdBy,
		Status:      "active",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, community); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Community{}, ErrNameTaken
		}
		return models.Community{}, err
	}
	return community, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Community, error) {
	var community models.Community
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&community); err != nil {
		return models.Community{}, err
	}
	return community, nil
}

// Update applies field-level changes; nil pointers leave fields alone.
// Renames re-fold name_ci and can collide with ErrNameTaken.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description *string) (models.Community, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil && strings.TrimSpace(*name) != "" {
		set["name"] = strings.TrimSpace(*name)
		set["name_ci"] = text.Fold(*name)
	}
	if description != nil {
		set["description"] = *description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var community models.Community
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&community); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Community{}, ErrNameTaken
		}
		return models.Community{}, err
	}
	return community, nil
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

// List returns communities sorted by _id, keyset-paged. Pass a zero
// after id for the first page; limit+1 rows are requested so the caller
// can detect a next page.
func (s *Store) List(ctx context.Context, after primitive.ObjectID, limit int) ([]models.Community, error) {
	filter := bson.M{}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$gt": after}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var communities []models.Community
	if err := cur.All(ctx, &communities); err != nil {
		return nil, err
	}
	return communities, nil
}

// ListByIDs fetches communities for the given ids. Callers chunk the
// ids; this issues a single $in query.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Community, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var communities []models.Community
	if err := cur.All(ctx, &communities); err != nil {
		return nil, err
	}
	return communities, nil
}

// Delete removes the community document only. Spaces, events, articles,
// memberships, and blobs are torn down by the cascade package first so
// the community remains resolvable until its children are gone.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
