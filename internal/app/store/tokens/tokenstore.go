// internal/app/store/tokens/tokenstore.go
package tokenstore

// Refresh tokens are opaque "<id>.<secret>" strings. Only a bcrypt hash
// of the secret is stored, so a leaked collection cannot be replayed.
// Redeeming rotates: the presented token is deleted and the caller
// issues a fresh one.

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrInvalidToken covers malformed, unknown, expired, and
// wrong-secret refresh tokens alike, so callers cannot distinguish
// guessing outcomes.
var ErrInvalidToken = errors.New("invalid refresh token")

// DefaultTTL is how long a refresh token lives unless configured
// otherwise.
const DefaultTTL = 30 * 24 * time.Hour

type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("refresh_tokens"), ttl: ttl}
}

// Issue mints a refresh token for the user and returns the wire form.
// The wire form is shown once and never stored.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	id, wire, hash, err := authtoken.NewRefreshToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	token := models.RefreshToken{
		ID:        id,
		UserID:    userID,
		Hash:      hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, token); err != nil {
		return "", err
	}
	return wire, nil
}

// Redeem validates the wire token, deletes it, and returns the owning
// user id. The caller issues a fresh access/refresh pair.
func (s *Store) Redeem(ctx context.Context, wire string) (primitive.ObjectID, error) {
	id, secret, err := authtoken.SplitRefreshToken(wire)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}

	var token models.RefreshToken
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&token); err != nil {
		if err == mongo.ErrNoDocuments {
			return primitive.NilObjectID, ErrInvalidToken
		}
		return primitive.NilObjectID, err
	}
	if time.Now().UTC().After(token.ExpiresAt) {
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": id})
		return primitive.NilObjectID, ErrInvalidToken
	}
	if !authtoken.CheckRefreshSecret(token.Hash, secret) {
		return primitive.NilObjectID, ErrInvalidToken
	}

	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return primitive.NilObjectID, err
	}
	return token.UserID, nil
}

// RevokeAllForUser logs the user out everywhere.
func (s *Store) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// PruneExpired removes dead tokens. The TTL index does this too; the
// janitor calls it so counts show up in logs.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
