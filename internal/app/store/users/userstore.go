// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpsertFromIdentity merges the identity provider's profile into the
// user document keyed by provider subject, creating the account on
// first login. Display name and photo come from the provider on every
// login so profile changes there take effect immediately.
func (s *Store) UpsertFromIdentity(ctx context.Context, subject, email, fullName, photoURL string) (models.User, error) {
	now := time.Now().UTC()

	filter := bson.M{"subject": subject}
	update := bson.M{
		"$set": bson.M{
			"email":        strings.ToLower(strings.TrimSpace(email)),
			"full_name":    fullName,
			"photo_url":    photoURL,
			"last_seen_at": now,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"subject":    subject,
			"status":     "active",
			"prefs":      models.UserPrefs{},
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateProfile applies field-level changes; nil pointers leave the
// field untouched.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, fullName, bio *string) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if fullName != nil && strings.TrimSpace(*fullName) != "" {
		set["full_name"] = strings.TrimSpace(*fullName)
	}
	if bio != nil {
		set["bio"] = *bio
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SetDarkMode persists the client's theme preference.
func (s *Store) SetDarkMode(ctx context.Context, id primitive.ObjectID, on bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"prefs.dark_mode": on,
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

// ListByIDs fetches users for the given ids (order not preserved).
// Callers chunk the ids; this issues a single $in query.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes the user document. Membership cleanup is the caller's
// job (cascade package).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
