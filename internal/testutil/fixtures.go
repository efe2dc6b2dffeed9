// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user keyed by a synthetic provider subject.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Subject:   "test-subject-" + primitive.NewObjectID().Hex(),
		Email:     email,
		FullName:  fullName,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateCommunity creates a test community.
func (f *Fixtures) CreateCommunity(ctx context.Context, name string, createdBy primitive.ObjectID) models.Community {
	f.t.Helper()

	now := time.Now().UTC()
	community := models.Community{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test community description",
		CreatedBy:   createdBy,
		Status:      "active",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("communities").InsertOne(ctx, community); err != nil {
		f.t.Fatalf("failed to create test community: %v", err)
	}
	return community
}

// CreateSpace creates a live test space inside a community.
func (f *Fixtures) CreateSpace(ctx context.Context, name string, communityID, createdBy primitive.ObjectID) models.Space {
	f.t.Helper()

	now := time.Now().UTC()
	space := models.Space{
		ID:             primitive.NewObjectID(),
		CommunityID:    communityID,
		Name:           name,
		NameCI:         text.Fold(name),
		Description:    "Test space description",
		CreatedBy:      createdBy,
		ApprovalStatus: models.ApprovalLive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := f.db.Collection("spaces").InsertOne(ctx, space); err != nil {
		f.t.Fatalf("failed to create test space: %v", err)
	}
	return space
}

// CreateMembership inserts a membership record directly, bypassing the
// store's entity checks.
func (f *Fixtures) CreateMembership(ctx context.Context, entityType string, entityID, communityID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	membership := models.Membership{
		ID:          primitive.NewObjectID(),
		EntityType:  entityType,
		EntityID:    entityID,
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if entityType == models.EntitySpace {
		membership.ApprovalStatus = models.ApprovalLive
	}

	if _, err := f.db.Collection("memberships").InsertOne(ctx, membership); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return membership
}

// CreateEvent creates a free event organized by the given user.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, communityID, organizerID primitive.ObjectID) models.Event {
	f.t.Helper()

	now := time.Now().UTC()
	endsAt := now.Add(26 * time.Hour)
	event := models.Event{
		ID:          primitive.NewObjectID(),
		CommunityID: communityID,
		OrganizerID: organizerID,
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: "Test event description",
		Location:    "Test Hall",
		StartsAt:    now.Add(24 * time.Hour),
		EndsAt:      &endsAt,
		Attendees:   map[string]models.Attendee{},
		Unattendees: map[string]models.Departure{},
		Ratings:     map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("events").InsertOne(ctx, event); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// CreatePaidEvent creates an event with a price; attendance starts
// unapproved for paid events.
func (f *Fixtures) CreatePaidEvent(ctx context.Context, title string, communityID, organizerID primitive.ObjectID, priceCents int64) models.Event {
	f.t.Helper()

	event := f.CreateEvent(ctx, title, communityID, organizerID)
	event.Price = &priceCents
	if _, err := f.db.Collection("events").UpdateByID(ctx, event.ID, map[string]any{
		"$set": map[string]any{"price": priceCents},
	}); err != nil {
		f.t.Fatalf("failed to set event price: %v", err)
	}
	return event
}

// CreateArticle creates a published community article.
func (f *Fixtures) CreateArticle(ctx context.Context, title string, communityID, authorID primitive.ObjectID) models.Article {
	f.t.Helper()

	now := time.Now().UTC()
	article := models.Article{
		ID:          primitive.NewObjectID(),
		AuthorID:    authorID,
		CommunityID: &communityID,
		Title:       title,
		TitleCI:     text.Fold(title),
		Body:        "Test article body",
		Draft:       false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("articles").InsertOne(ctx, article); err != nil {
		f.t.Fatalf("failed to create test article: %v", err)
	}
	return article
}
