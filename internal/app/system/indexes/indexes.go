// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail
fast.

The unique membership index is load-bearing: it is what makes
memberships.Add idempotent and keeps the join collection authoritative
(at most one document per entity/user pair).
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureCommunities(ctx, db); err != nil {
		problems = append(problems, "communities: "+err.Error())
	}
	if err := ensureSpaces(ctx, db); err != nil {
		problems = append(problems, "spaces: "+err.Error())
	}
	if err := ensureMemberships(ctx, db); err != nil {
		problems = append(problems, "memberships: "+err.Error())
	}
	if err := ensureEvents(ctx, db); err != nil {
		problems = append(problems, "events: "+err.Error())
	}
	if err := ensureArticles(ctx, db); err != nil {
		problems = append(problems, "articles: "+err.Error())
	}
	if err := ensureRefreshTokens(ctx, db); err != nil {
		problems = append(problems, "refresh_tokens: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func createAll(ctx context.Context, db *mongo.Database, coll string, idx []mongo.IndexModel) error {
	_, err := db.Collection(coll).Indexes().CreateMany(ctx, idx)
	if isOptionsConflictErr(err) {
		// Same keys exist under a different name; fine for our purposes.
		return nil
	}
	return err
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "users", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetName("uniq_subject").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
	})
}

func ensureCommunities(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "communities", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("uniq_name_ci").SetUnique(true),
		},
	})
}

func ensureSpaces(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "spaces", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "community_id", Value: 1}, {Key: "approval_status", Value: 1}},
			Options: options.Index().SetName("community_status"),
		},
		{
			Keys:    bson.D{{Key: "community_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("uniq_community_name_ci").SetUnique(true),
		},
	})
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "memberships", []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "entity_type", Value: 1},
				{Key: "entity_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetName("uniq_entity_user").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "entity_type", Value: 1}},
			Options: options.Index().SetName("user_entity_type"),
		},
		{
			Keys:    bson.D{{Key: "entity_id", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetName("entity_role"),
		},
		{
			Keys:    bson.D{{Key: "community_id", Value: 1}},
			Options: options.Index().SetName("community"),
		},
	})
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "events", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "community_id", Value: 1}, {Key: "starts_at", Value: 1}},
			Options: options.Index().SetName("community_starts"),
		},
		{
			Keys:    bson.D{{Key: "space_id", Value: 1}, {Key: "starts_at", Value: 1}},
			Options: options.Index().SetName("space_starts").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}},
			Options: options.Index().SetName("organizer"),
		},
	})
}

func ensureArticles(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "articles", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "community_id", Value: 1}, {Key: "draft", Value: 1}},
			Options: options.Index().SetName("community_draft").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "space_id", Value: 1}, {Key: "draft", Value: 1}},
			Options: options.Index().SetName("space_draft").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("author"),
		},
	})
}

func ensureRefreshTokens(ctx context.Context, db *mongo.Database) error {
	return createAll(ctx, db, "refresh_tokens", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user"),
		},
		{
			// TTL index: the store prunes expired tokens itself; this is
			// a backstop when the janitor is behind.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires").SetExpireAfterSeconds(0),
		},
	})
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with
// the same keys already exists under a different name.
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}
