package workers

import (
	"testing"
	"time"

	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestJanitor_Sweep(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	memberships := membershipstore.New(db, zap.NewNop())
	users := userstore.New(db)
	expired := tokenstore.New(db, -time.Minute)

	alive := fx.CreateUser(ctx, "Kept Member", "kept@example.com")
	ghost := fx.CreateUser(ctx, "Ghost Member", "ghost@example.com")
	community := fx.CreateCommunity(ctx, "Sweep Club", alive.ID)
	fx.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, alive.ID, models.RoleLeader)
	fx.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, ghost.ID, models.RoleMember)

	if _, err := expired.Issue(ctx, alive.ID); err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	// Delete the ghost account out from under its membership.
	if _, err := users.Delete(ctx, ghost.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	j := NewJanitor(memberships, users, expired, zap.NewNop(), time.Hour)
	j.Sweep()

	if n, err := db.Collection("memberships").CountDocuments(ctx, bson.M{"user_id": ghost.ID}); err != nil || n != 0 {
		t.Errorf("ghost memberships remaining: %d (err %v)", n, err)
	}
	if n, err := db.Collection("memberships").CountDocuments(ctx, bson.M{"user_id": alive.ID}); err != nil || n != 1 {
		t.Errorf("kept memberships: %d, want 1 (err %v)", n, err)
	}
	if n, err := db.Collection("refresh_tokens").CountDocuments(ctx, bson.M{}); err != nil || n != 0 {
		t.Errorf("expired tokens remaining: %d (err %v)", n, err)
	}
}

func TestJanitor_StartStop(t *testing.T) {
	db := testutil.SetupTestDB(t)

	j := NewJanitor(membershipstore.New(db, zap.NewNop()), userstore.New(db), tokenstore.New(db, time.Hour), zap.NewNop(), 10*time.Millisecond)
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop()
}
