package eventstore_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*eventstore.Store, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return eventstore.New(db, zap.NewNop()), testutil.NewFixtures(t, db), db
}

func TestStore_Create_OrganizerIsFirstAttendee(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)

	event, err := store.Create(ctx, eventstore.CreateParams{
		CommunityID: community.ID,
		OrganizerID: organizer.ID,
		Title:       "Picnic",
		Location:    "The Park",
		StartsAt:    time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	att, ok := event.Attendees[organizer.ID.Hex()]
	if !ok {
		t.Fatal("organizer not enrolled as attendee")
	}
	if !att.Approved {
		t.Error("organizer attendance not approved")
	}
	if !event.Free() {
		t.Error("event with nil price should be free")
	}
}

func TestStore_Create_CommunityNotFound(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")

	_, err := store.Create(ctx, eventstore.CreateParams{
		CommunityID: primitive.NewObjectID(),
		OrganizerID: organizer.ID,
		Title:       "Orphan",
		StartsAt:    time.Now(),
	})
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_Attend_FreeEventApproved(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	att, ok := got.Attendees[guest.ID.Hex()]
	if !ok {
		t.Fatal("guest not in attendees")
	}
	if !att.Approved {
		t.Error("free event attendance should be approved immediately")
	}
}

func TestStore_Attend_PaidEventUnapproved(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreatePaidEvent(ctx, "Gala", community.ID, organizer.ID, 2500)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	att := got.Attendees[guest.ID.Hex()]
	if att.Approved {
		t.Error("paid event attendance must start unapproved")
	}

	if err := store.ApproveAttendee(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("ApproveAttendee failed: %v", err)
	}
	got, _ = store.GetByID(ctx, event.ID)
	if !got.Attendees[guest.ID.Hex()].Approved {
		t.Error("attendee not approved after ApproveAttendee")
	}
}

func TestStore_Attend_Idempotent(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	for i := 0; i < 2; i++ {
		if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
			t.Fatalf("Attend #%d failed: %v", i+1, err)
		}
	}

	got, _ := store.GetByID(ctx, event.ID)
	if len(got.Attendees) != 1 {
		t.Errorf("expected 1 attendee, got %d", len(got.Attendees))
	}
}

func TestStore_Attend_ConcurrentDistinctUsers(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)

	guests := make([]models.User, 4)
	for i := range guests {
		guests[i] = fixtures.CreateUser(ctx, "Guest", fmt.Sprintf("guest%d@example.com", i))
	}

	// Distinct users racing to attend must all land; none may clobber
	// another's attendee entry.
	var wg sync.WaitGroup
	errs := make(chan error, len(guests))
	for _, g := range guests {
		wg.Add(1)
		go func(userID primitive.ObjectID) {
			defer wg.Done()
			errs <- store.Attend(ctx, event.ID, userID)
		}(g.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Attend failed: %v", err)
		}
	}

	got, _ := store.GetByID(ctx, event.ID)
	for _, g := range guests {
		if _, ok := got.Attendees[g.ID.Hex()]; !ok {
			t.Errorf("guest %s lost in concurrent attend", g.ID.Hex())
		}
	}
	if len(got.Attendees) != len(guests)+1 {
		t.Errorf("attendees: got %d, want %d", len(got.Attendees), len(guests)+1)
	}
}

// transactionsAvailable reports whether the test server can run
// multi-document transactions. Standalone servers cannot, and the store
// deliberately falls back to unisolated updates there, so tests that
// depend on transactional admission skip.
func transactionsAvailable(t *testing.T, db *mongo.Database) bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sess, err := db.Client().StartSession()
	if err != nil {
		return false
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return db.Collection("txn_smoke").InsertOne(sc, bson.M{"ok": true})
	})
	return err == nil
}

func TestStore_Attend_ConcurrentCapacity(t *testing.T) {
	store, fixtures, db := setup(t)
	if !transactionsAvailable(t, db) {
		t.Skip("server cannot run transactions; capacity admission is not atomic here")
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)

	event, err := store.Create(ctx, eventstore.CreateParams{
		CommunityID: community.ID,
		OrganizerID: organizer.ID,
		Title:       "Tiny Venue",
		StartsAt:    time.Now().Add(time.Hour),
		Capacity:    3,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	guests := make([]models.User, 4)
	for i := range guests {
		guests[i] = fixtures.CreateUser(ctx, "Guest", fmt.Sprintf("cap%d@example.com", i))
	}

	// Organizer holds one seat; four racers chase the remaining two.
	var wg sync.WaitGroup
	errs := make(chan error, len(guests))
	for _, g := range guests {
		wg.Add(1)
		go func(userID primitive.ObjectID) {
			defer wg.Done()
			errs <- store.Attend(ctx, event.ID, userID)
		}(g.ID)
	}
	wg.Wait()
	close(errs)

	admitted, full := 0, 0
	for err := range errs {
		switch err {
		case nil:
			admitted++
		case eventstore.ErrEventFull:
			full++
		default:
			t.Fatalf("concurrent Attend failed: %v", err)
		}
	}
	if admitted != 2 || full != 2 {
		t.Errorf("admitted=%d full=%d, want 2 and 2", admitted, full)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if len(got.Attendees) != event.Capacity {
		t.Errorf("attendees: got %d, want capacity %d", len(got.Attendees), event.Capacity)
	}
}

func TestStore_Attend_Capacity(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)

	event, err := store.Create(ctx, eventstore.CreateParams{
		CommunityID: community.ID,
		OrganizerID: organizer.ID,
		Title:       "Tiny Venue",
		StartsAt:    time.Now().Add(time.Hour),
		Capacity:    2,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	g1 := fixtures.CreateUser(ctx, "Guest One", "g1@example.com")
	g2 := fixtures.CreateUser(ctx, "Guest Two", "g2@example.com")

	if err := store.Attend(ctx, event.ID, g1.ID); err != nil {
		t.Fatalf("Attend g1 failed: %v", err)
	}
	// Organizer plus g1 fills capacity 2.
	if err := store.Attend(ctx, event.ID, g2.ID); err != eventstore.ErrEventFull {
		t.Errorf("expected ErrEventFull, got %v", err)
	}
}

func TestStore_Leave_MovesToUnattendees(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	if err := store.Leave(ctx, event.ID, guest.ID, "schedule conflict"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if _, ok := got.Attendees[guest.ID.Hex()]; ok {
		t.Error("guest still in attendees after leave")
	}
	dep, ok := got.Unattendees[guest.ID.Hex()]
	if !ok {
		t.Fatal("guest not in unattendees after leave")
	}
	if dep.Reason != "schedule conflict" {
		t.Errorf("reason: got %q", dep.Reason)
	}
}

func TestStore_Leave_NotAttending(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)

	err := store.Leave(ctx, event.ID, primitive.NewObjectID(), "")
	if err != eventstore.ErrNotAttending {
		t.Errorf("expected ErrNotAttending, got %v", err)
	}
}

func TestStore_Rejoin_ClearsDeparture(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	if err := store.Leave(ctx, event.ID, guest.ID, "changed my mind"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("re-Attend failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if _, ok := got.Unattendees[guest.ID.Hex()]; ok {
		t.Error("departure record not cleared on rejoin")
	}
	if _, ok := got.Attendees[guest.ID.Hex()]; !ok {
		t.Error("guest not back in attendees")
	}
}

func TestStore_RequestRefund(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreatePaidEvent(ctx, "Gala", community.ID, organizer.ID, 2500)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	// Refund before leaving is refused.
	if err := store.RequestRefund(ctx, event.ID, guest.ID); err != eventstore.ErrNoDeparture {
		t.Errorf("expected ErrNoDeparture, got %v", err)
	}

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	if err := store.Leave(ctx, event.ID, guest.ID, "cannot make it"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if err := store.RequestRefund(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("RequestRefund failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if !got.Unattendees[guest.ID.Hex()].RefundRequested {
		t.Error("departure not flagged refund_requested")
	}
	if len(got.RefundRequests) != 1 || got.RefundRequests[0] != guest.ID.Hex() {
		t.Errorf("refund_requests: got %v", got.RefundRequests)
	}
}

func TestStore_Rate(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Rate(ctx, event.ID, guest.ID, 6); err != eventstore.ErrBadRating {
		t.Errorf("expected ErrBadRating, got %v", err)
	}
	if err := store.Rate(ctx, event.ID, guest.ID, 4); err != eventstore.ErrNotAttending {
		t.Errorf("expected ErrNotAttending, got %v", err)
	}

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	if err := store.Rate(ctx, event.ID, guest.ID, 4); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	// Re-rating overwrites.
	if err := store.Rate(ctx, event.ID, guest.ID, 5); err != nil {
		t.Fatalf("re-Rate failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if got.Ratings[guest.ID.Hex()] != 5 {
		t.Errorf("rating: got %d, want 5", got.Ratings[guest.ID.Hex()])
	}
}

func TestStore_Stops_JoinReplacesSameSide(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}

	when := time.Now().Add(time.Hour)
	s1, err := store.AddStop(ctx, event.ID, eventstore.PickUp, "North Lot", "12 North St", when)
	if err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	s2, err := store.AddStop(ctx, event.ID, eventstore.PickUp, "South Lot", "99 South St", when)
	if err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}

	if err := store.JoinStop(ctx, event.ID, eventstore.PickUp, s1, guest.ID); err != nil {
		t.Fatalf("JoinStop s1 failed: %v", err)
	}
	// Joining a second pickup stop moves the opt-in.
	if err := store.JoinStop(ctx, event.ID, eventstore.PickUp, s2, guest.ID); err != nil {
		t.Fatalf("JoinStop s2 failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	for _, st := range got.PickUp {
		switch st.ID {
		case s1:
			if len(st.Attendees) != 0 {
				t.Errorf("stop s1 should be empty, has %v", st.Attendees)
			}
		case s2:
			if len(st.Attendees) != 1 || st.Attendees[0] != guest.ID {
				t.Errorf("stop s2 attendees: got %v", st.Attendees)
			}
		}
	}
}

func TestStore_Stops_JoinRequiresAttendance(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)

	stopID, err := store.AddStop(ctx, event.ID, eventstore.DropOff, "Main Gate", "1 Gate Rd", time.Now())
	if err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}

	err = store.JoinStop(ctx, event.ID, eventstore.DropOff, stopID, primitive.NewObjectID())
	if err != eventstore.ErrNotAttending {
		t.Errorf("expected ErrNotAttending, got %v", err)
	}
}

func TestStore_Stops_LeaveAndRemove(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	stopID, err := store.AddStop(ctx, event.ID, eventstore.PickUp, "North Lot", "12 North St", time.Now())
	if err != nil {
		t.Fatalf("AddStop failed: %v", err)
	}
	if err := store.JoinStop(ctx, event.ID, eventstore.PickUp, stopID, guest.ID); err != nil {
		t.Fatalf("JoinStop failed: %v", err)
	}
	if err := store.LeaveStop(ctx, event.ID, eventstore.PickUp, stopID, guest.ID); err != nil {
		t.Fatalf("LeaveStop failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if len(got.PickUp[0].Attendees) != 0 {
		t.Errorf("stop attendees not cleared: %v", got.PickUp[0].Attendees)
	}

	if err := store.RemoveStop(ctx, event.ID, eventstore.PickUp, stopID); err != nil {
		t.Fatalf("RemoveStop failed: %v", err)
	}
	got, _ = store.GetByID(ctx, event.ID)
	if len(got.PickUp) != 0 {
		t.Errorf("stop not removed: %v", got.PickUp)
	}

	if err := store.RemoveStop(ctx, event.ID, eventstore.PickUp, stopID); err != eventstore.ErrStopNotFound {
		t.Errorf("expected ErrStopNotFound, got %v", err)
	}
}

func TestStore_LeaveEvent_DropsStopOptIns(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", organizer.ID)
	event := fixtures.CreateEvent(ctx, "Picnic", community.ID, organizer.ID)
	guest := fixtures.CreateUser(ctx, "Guest", "guest@example.com")

	if err := store.Attend(ctx, event.ID, guest.ID); err != nil {
		t.Fatalf("Attend failed: %v", err)
	}
	stopID, _ := store.AddStop(ctx, event.ID, eventstore.PickUp, "North Lot", "12 North St", time.Now())
	if err := store.JoinStop(ctx, event.ID, eventstore.PickUp, stopID, guest.ID); err != nil {
		t.Fatalf("JoinStop failed: %v", err)
	}

	if err := store.Leave(ctx, event.ID, guest.ID, "moving away"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	got, _ := store.GetByID(ctx, event.ID)
	if len(got.PickUp[0].Attendees) != 0 {
		t.Errorf("leaving the event must vacate stops: %v", got.PickUp[0].Attendees)
	}
}
