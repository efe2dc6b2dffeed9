package cascade_test

import (
	"testing"

	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newDeleter(t *testing.T, db *mongo.Database) *cascade.Deleter {
	t.Helper()
	log := zap.NewNop()
	blobs, err := blobstore.New(t.TempDir(), "http://localhost/files")
	if err != nil {
		t.Fatalf("blobstore.New failed: %v", err)
	}
	return cascade.New(
		membershipstore.New(db, log),
		communitystore.New(db),
		spacestore.New(db),
		eventstore.New(db, log),
		articlestore.New(db),
		blobs,
		log,
	)
}

func count(t *testing.T, db *mongo.Database, coll string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}

func TestDeleter_DeleteCommunity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deleter := newDeleter(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	community := fixtures.CreateCommunity(ctx, "Doomed", owner.ID)
	space := fixtures.CreateSpace(ctx, "Space", community.ID, owner.ID)
	other := fixtures.CreateCommunity(ctx, "Survivor", owner.ID)

	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)
	fixtures.CreateMembership(ctx, models.EntitySpace, space.ID, community.ID, member.ID, models.RoleMember)
	fixtures.CreateMembership(ctx, models.EntityCommunity, other.ID, other.ID, member.ID, models.RoleMember)

	fixtures.CreateEvent(ctx, "Community Event", community.ID, owner.ID)
	fixtures.CreateArticle(ctx, "Community Article", community.ID, owner.ID)
	kept := fixtures.CreateEvent(ctx, "Other Event", other.ID, owner.ID)

	if err := deleter.DeleteCommunity(ctx, community.ID); err != nil {
		t.Fatalf("DeleteCommunity failed: %v", err)
	}

	if n := count(t, db, "communities", bson.M{"_id": community.ID}); n != 0 {
		t.Error("community document survived")
	}
	if n := count(t, db, "spaces", bson.M{"community_id": community.ID}); n != 0 {
		t.Error("space documents survived")
	}
	if n := count(t, db, "memberships", bson.M{"community_id": community.ID}); n != 0 {
		t.Error("memberships survived")
	}
	if n := count(t, db, "events", bson.M{"community_id": community.ID}); n != 0 {
		t.Error("events survived")
	}
	if n := count(t, db, "articles", bson.M{"community_id": community.ID}); n != 0 {
		t.Error("articles survived")
	}

	// The other community is untouched.
	if n := count(t, db, "communities", bson.M{"_id": other.ID}); n != 1 {
		t.Error("unrelated community deleted")
	}
	if n := count(t, db, "events", bson.M{"_id": kept.ID}); n != 1 {
		t.Error("unrelated event deleted")
	}
	if n := count(t, db, "memberships", bson.M{"community_id": other.ID}); n != 1 {
		t.Error("unrelated membership deleted")
	}
}

func TestDeleter_DeleteSpace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deleter := newDeleter(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	community := fixtures.CreateCommunity(ctx, "Community", owner.ID)
	space := fixtures.CreateSpace(ctx, "Doomed Space", community.ID, owner.ID)
	fixtures.CreateMembership(ctx, models.EntitySpace, space.ID, community.ID, member.ID, models.RoleMember)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)

	if err := deleter.DeleteSpace(ctx, space.ID); err != nil {
		t.Fatalf("DeleteSpace failed: %v", err)
	}

	if n := count(t, db, "spaces", bson.M{"_id": space.ID}); n != 0 {
		t.Error("space document survived")
	}
	if n := count(t, db, "memberships", bson.M{"entity_id": space.ID}); n != 0 {
		t.Error("space memberships survived")
	}
	// The parent community and its memberships remain.
	if n := count(t, db, "communities", bson.M{"_id": community.ID}); n != 1 {
		t.Error("parent community deleted")
	}
	if n := count(t, db, "memberships", bson.M{"entity_id": community.ID}); n != 1 {
		t.Error("community membership deleted")
	}
}

func TestDeleter_DeleteCommunity_MissingDocLogsAndContinues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)
	blobs, err := blobstore.New(t.TempDir(), "http://localhost/files")
	if err != nil {
		t.Fatalf("blobstore.New failed: %v", err)
	}
	deleter := cascade.New(
		membershipstore.New(db, log),
		communitystore.New(db),
		spacestore.New(db),
		eventstore.New(db, log),
		articlestore.New(db),
		blobs,
		log,
	)

	// A community that never existed: the photo lookup fails, but the
	// cascade logs it and runs to completion instead of bailing.
	if err := deleter.DeleteCommunity(ctx, primitive.NewObjectID()); err != nil {
		t.Fatalf("DeleteCommunity failed: %v", err)
	}
	if logs.FilterMessage("community lookup for photo cleanup failed").Len() != 1 {
		t.Error("photo lookup failure was not logged")
	}
}

func TestDeleter_DeleteEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deleter := newDeleter(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", owner.ID)
	event := fixtures.CreateEvent(ctx, "Doomed Event", community.ID, owner.ID)

	if err := deleter.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if n := count(t, db, "events", bson.M{"_id": event.ID}); n != 0 {
		t.Error("event document survived")
	}
}
