package membershipstore_test

import (
	"testing"

	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	member := fixtures.CreateUser(ctx, "Test Member", "member@example.com")

	err := store.Add(ctx, models.EntityCommunity, community.ID, member.ID, models.RoleMember)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	count, err := db.Collection("memberships").CountDocuments(ctx, bson.M{
		"entity_id": community.ID,
		"user_id":   member.ID,
	})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 membership, got %d", count)
	}
}

func TestStore_Add_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	member := fixtures.CreateUser(ctx, "Test Member", "member@example.com")

	for i := 0; i < 2; i++ {
		if err := store.Add(ctx, models.EntityCommunity, community.ID, member.ID, models.RoleMember); err != nil {
			t.Fatalf("Add #%d failed: %v", i+1, err)
		}
	}

	count, _ := db.Collection("memberships").CountDocuments(ctx, bson.M{
		"entity_id": community.ID,
		"user_id":   member.ID,
	})
	if count != 1 {
		t.Errorf("expected 1 membership after double add, got %d", count)
	}
}

func TestStore_Add_NoDowngrade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	leader := fixtures.CreateUser(ctx, "Leader", "leader@example.com")

	if err := store.Add(ctx, models.EntityCommunity, community.ID, leader.ID, models.RoleLeader); err != nil {
		t.Fatalf("Add leader failed: %v", err)
	}
	// Re-adding as plain member must not touch the leader role.
	if err := store.Add(ctx, models.EntityCommunity, community.ID, leader.ID, models.RoleMember); err != nil {
		t.Fatalf("re-Add failed: %v", err)
	}

	role, err := store.Role(ctx, models.EntityCommunity, community.ID, leader.ID)
	if err != nil {
		t.Fatalf("Role failed: %v", err)
	}
	if role != models.RoleLeader {
		t.Errorf("role: got %q, want %q", role, models.RoleLeader)
	}
}

func TestStore_Add_UpgradeFromMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	if err := store.Add(ctx, models.EntityCommunity, community.ID, member.ID, models.RoleMember); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, models.EntityCommunity, community.ID, member.ID, models.RoleEditor); err != nil {
		t.Fatalf("upgrade Add failed: %v", err)
	}

	role, _ := store.Role(ctx, models.EntityCommunity, community.ID, member.ID)
	if role != models.RoleEditor {
		t.Errorf("role: got %q, want %q", role, models.RoleEditor)
	}
}

func TestStore_Add_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Add(ctx, models.EntityCommunity, primitive.NewObjectID(), primitive.NewObjectID(), "owner")
	if err != membershipstore.ErrBadRole {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestStore_Add_EntityNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	err := store.Add(ctx, models.EntityCommunity, primitive.NewObjectID(), member.ID, models.RoleMember)
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}

	count, _ := db.Collection("memberships").CountDocuments(ctx, bson.M{"user_id": member.ID})
	if count != 0 {
		t.Errorf("expected no memberships written, got %d", count)
	}
}

func TestStore_Add_SpaceStartsPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	space := fixtures.CreateSpace(ctx, "Test Space", community.ID, owner.ID)
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	if err := store.Add(ctx, models.EntitySpace, space.ID, member.ID, models.RoleMember); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	m, err := store.Get(ctx, models.EntitySpace, space.ID, member.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.ApprovalStatus != models.ApprovalPending {
		t.Errorf("approval status: got %q, want %q", m.ApprovalStatus, models.ApprovalPending)
	}
	if m.CommunityID != community.ID {
		t.Errorf("community id not resolved from space: got %v, want %v", m.CommunityID, community.ID)
	}
}

func TestStore_Promote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, member.ID, models.RoleMember)

	if err := store.Promote(ctx, models.EntityCommunity, community.ID, member.ID, models.RoleLeader); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	role, _ := store.Role(ctx, models.EntityCommunity, community.ID, member.ID)
	if role != models.RoleLeader {
		t.Errorf("role: got %q, want %q", role, models.RoleLeader)
	}
}

func TestStore_Promote_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Promote(ctx, models.EntityCommunity, primitive.NewObjectID(), primitive.NewObjectID(), "superadmin")
	if err != membershipstore.ErrBadRole {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestStore_Promote_NotMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Promote(ctx, models.EntityCommunity, primitive.NewObjectID(), primitive.NewObjectID(), models.RoleLeader)
	if err != membershipstore.ErrNotMember {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestStore_Demote_LastLeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)

	err := store.Demote(ctx, models.EntityCommunity, community.ID, owner.ID)
	if err != membershipstore.ErrLastLeader {
		t.Errorf("expected ErrLastLeader, got %v", err)
	}

	role, _ := store.Role(ctx, models.EntityCommunity, community.ID, owner.ID)
	if role != models.RoleLeader {
		t.Errorf("role changed despite guard: got %q", role)
	}
}

func TestStore_Demote_WithSecondLeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	other := fixtures.CreateUser(ctx, "Other Leader", "other@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, other.ID, models.RoleLeader)

	if err := store.Demote(ctx, models.EntityCommunity, community.ID, owner.ID); err != nil {
		t.Fatalf("Demote failed: %v", err)
	}

	role, _ := store.Role(ctx, models.EntityCommunity, community.ID, owner.ID)
	if role != models.RoleMember {
		t.Errorf("role: got %q, want %q", role, models.RoleMember)
	}
}

func TestStore_Promote_AwayFromLeader_LastLeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)

	// Rewriting the sole leader to editor is a demotion in disguise.
	err := store.Promote(ctx, models.EntityCommunity, community.ID, owner.ID, models.RoleEditor)
	if err != membershipstore.ErrLastLeader {
		t.Errorf("expected ErrLastLeader, got %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, member.ID, models.RoleMember)

	if err := store.Remove(ctx, models.EntityCommunity, community.ID, member.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	count, _ := db.Collection("memberships").CountDocuments(ctx, bson.M{
		"entity_id": community.ID,
		"user_id":   member.ID,
	})
	if count != 0 {
		t.Errorf("expected 0 memberships after remove, got %d", count)
	}
}

func TestStore_Remove_LastLeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)

	err := store.Remove(ctx, models.EntityCommunity, community.ID, owner.ID)
	if err != membershipstore.ErrLastLeader {
		t.Errorf("expected ErrLastLeader, got %v", err)
	}
}

func TestStore_Remove_NotMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Remove(ctx, models.EntityCommunity, primitive.NewObjectID(), primitive.NewObjectID())
	if err != membershipstore.ErrNotMember {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestStore_SetApprovalStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	community := fixtures.CreateCommunity(ctx, "Test Community", owner.ID)
	space := fixtures.CreateSpace(ctx, "Test Space", community.ID, owner.ID)
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	if err := store.Add(ctx, models.EntitySpace, space.ID, member.ID, models.RoleMember); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.SetApprovalStatus(ctx, space.ID, member.ID, models.ApprovalLive); err != nil {
		t.Fatalf("SetApprovalStatus failed: %v", err)
	}

	m, _ := store.Get(ctx, models.EntitySpace, space.ID, member.ID)
	if m.ApprovalStatus != models.ApprovalLive {
		t.Errorf("approval status: got %q, want %q", m.ApprovalStatus, models.ApprovalLive)
	}
}

func TestStore_SetApprovalStatus_NotMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.SetApprovalStatus(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.ApprovalLive)
	if err != membershipstore.ErrNotMember {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestStore_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	c1 := fixtures.CreateCommunity(ctx, "Community One", owner.ID)
	c2 := fixtures.CreateCommunity(ctx, "Community Two", owner.ID)
	space := fixtures.CreateSpace(ctx, "Space", c1.ID, owner.ID)

	fixtures.CreateMembership(ctx, models.EntityCommunity, c1.ID, c1.ID, member.ID, models.RoleMember)
	fixtures.CreateMembership(ctx, models.EntityCommunity, c2.ID, c2.ID, member.ID, models.RoleEditor)
	fixtures.CreateMembership(ctx, models.EntitySpace, space.ID, c1.ID, member.ID, models.RoleMember)

	all, err := store.ListByUser(ctx, member.ID, "")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 memberships, got %d", len(all))
	}

	spaces, err := store.ListByUser(ctx, member.ID, models.EntitySpace)
	if err != nil {
		t.Fatalf("ListByUser(space) failed: %v", err)
	}
	if len(spaces) != 1 {
		t.Errorf("expected 1 space membership, got %d", len(spaces))
	}
}

func TestStore_DeleteByCommunity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", owner.ID)
	other := fixtures.CreateCommunity(ctx, "Other", owner.ID)
	space := fixtures.CreateSpace(ctx, "Space", community.ID, owner.ID)

	fixtures.CreateMembership(ctx, models.EntityCommunity, community.ID, community.ID, owner.ID, models.RoleLeader)
	fixtures.CreateMembership(ctx, models.EntitySpace, space.ID, community.ID, member.ID, models.RoleMember)
	fixtures.CreateMembership(ctx, models.EntityCommunity, other.ID, other.ID, member.ID, models.RoleMember)

	deleted, err := store.DeleteByCommunity(ctx, community.ID)
	if err != nil {
		t.Fatalf("DeleteByCommunity failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted: got %d, want 2", deleted)
	}

	// Memberships of the other community are untouched.
	count, _ := db.Collection("memberships").CountDocuments(ctx, bson.M{"community_id": other.ID})
	if count != 1 {
		t.Errorf("expected 1 remaining membership, got %d", count)
	}
}
