// internal/app/store/events/eventstore.go
package eventstore

// Events embed their attendance, logistics, comment, and rating state in
// one document. Every mutation is a read-modify-write of that document
// executed under txn.WithTransaction, so concurrent attend/leave/comment
// calls never interleave on stale reads.

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gatherhub/internal/app/system/txn"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrEventFull is returned when the event has a capacity and it is
	// reached.
	ErrEventFull = errors.New("event is at capacity")

	// ErrNotAttending is returned for attendee-only operations by users
	// without a live attendance entry.
	ErrNotAttending = errors.New("user is not attending this event")

	// ErrMuted blocks comments and replies from muted attendees.
	ErrMuted = errors.New("user is muted on this event")

	// ErrCommentNotFound is returned when the comment id does not match.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrCommentLocked is returned when editing a comment the organizer
	// has cleared.
	ErrCommentLocked = errors.New("comment is no longer editable")

	// ErrNotAuthor is returned when editing someone else's comment.
	ErrNotAuthor = errors.New("only the author can edit this comment")

	// ErrStopNotFound is returned when the stop id does not match.
	ErrStopNotFound = errors.New("stop not found")

	// ErrNoDeparture is returned when requesting a refund without having
	// left the event.
	ErrNoDeparture = errors.New("user has not left this event")

	// ErrBadRating rejects ratings outside 1..5.
	ErrBadRating = errors.New("rating must be between 1 and 5")
)

type Store struct {
	c           *mongo.Collection
	communities *mongo.Collection
	spaces      *mongo.Collection
	log         *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		c:           db.Collection("events"),
		communities: db.Collection("communities"),
		spaces:      db.Collection("spaces"),
		log:         logger,
	}
}

// CreateParams carries the caller-supplied event fields. Price is in
// cents; nil means free.
type CreateParams struct {
	CommunityID primitive.ObjectID
	SpaceID     *primitive.ObjectID
	OrganizerID primitive.ObjectID
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	Price       *int64
	Capacity    int
}

// Create inserts a new event. The organizer is enrolled as the first
// approved attendee so the attendee list is never empty.
func (s *Store) Create(ctx context.Context, p CreateParams) (models.Event, error) {
	if err := s.communities.FindOne(ctx, bson.M{"_id": p.CommunityID}).Err(); err != nil {
		return models.Event{}, err
	}
	if p.SpaceID != nil {
		if err := s.spaces.FindOne(ctx, bson.M{"_id": *p.SpaceID}).Err(); err != nil {
			return models.Event{}, err
		}
	}

	now := time.Now().UTC()
	event := models.Event{
		ID:          primitive.NewObjectID(),
		CommunityID: p.CommunityID,
		SpaceID:     p.SpaceID,
		OrganizerID: p.OrganizerID,
		Title:       strings.TrimSpace(p.Title),
		TitleCI:     text.Fold(p.Title),
		Description: p.Description,
		Location:    p.Location,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
		Price:       p.Price,
		Capacity:    p.Capacity,
		Attendees: map[string]models.Attendee{
			p.OrganizerID.Hex(): {Approved: true, JoinedAt: now},
		},
		Unattendees: map[string]models.Departure{},
		Ratings:     map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, event); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var event models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// Update applies field-level changes to the descriptive fields; nil
// pointers leave fields alone. Attendance and logistics state is only
// touched by the dedicated operations.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, title, description, location *string, startsAt, endsAt *time.Time, capacity *int) (models.Event, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if title != nil && strings.TrimSpace(*title) != "" {
		set["title"] = strings.TrimSpace(*title)
		set["title_ci"] = text.Fold(*title)
	}
	if description != nil {
		set["description"] = *description
	}
	if location != nil {
		set["location"] = *location
	}
	if startsAt != nil {
		set["starts_at"] = *startsAt
	}
	if endsAt != nil {
		set["ends_at"] = *endsAt
	}
	if capacity != nil {
		set["capacity"] = *capacity
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var event models.Event
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&event); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// AddImagePath appends an uploaded image's blob path.
func (s *Store) AddImagePath(ctx context.Context, id primitive.ObjectID, path string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"image_paths": path},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByCommunity returns the community's events keyset-paged by _id
// (creation order; the after cursor needs the sort key to be the page
// key).
func (s *Store) ListByCommunity(ctx context.Context, communityID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Event, error) {
	filter := bson.M{"community_id": communityID}
	return s.list(ctx, filter, after, limit)
}

// ListBySpace returns the space's events, keyset-paged by _id.
func (s *Store) ListBySpace(ctx context.Context, spaceID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Event, error) {
	filter := bson.M{"space_id": spaceID}
	return s.list(ctx, filter, after, limit)
}

// ListAttending returns events where the user has a live attendance
// entry. Attendee keys are user-id hex, so this is a single exists
// query on the embedded map.
func (s *Store) ListAttending(ctx context.Context, userID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Event, error) {
	filter := bson.M{"attendees." + userID.Hex(): bson.M{"$exists": true}}
	return s.list(ctx, filter, after, limit)
}

func (s *Store) list(ctx context.Context, filter bson.M, after primitive.ObjectID, limit int) ([]models.Event, error) {
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

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// IDsAndImagesByScope returns event ids plus their image blob paths for
// cascade teardown of a community or space.
func (s *Store) IDsAndImagesByScope(ctx context.Context, field string, scopeID primitive.ObjectID) ([]primitive.ObjectID, []string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "image_paths": 1})
	cur, err := s.c.Find(ctx, bson.M{field: scopeID}, opts)
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID         primitive.ObjectID `bson:"_id"`
		ImagePaths []string           `bson:"image_paths"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, nil, err
	}

	ids := make([]primitive.ObjectID, len(rows))
	var paths []string
	for i, r := range rows {
		ids[i] = r.ID
		paths = append(paths, r.ImagePaths...)
	}
	return ids, paths, nil
}

// DeleteByIDs removes event documents in bulk; the caller chunks the
// ids to the bulk-write ceiling.
func (s *Store) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Delete removes one event document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// mutate loads the event, applies fn to it, and persists the returned
// update document, all inside one transaction.
func (s *Store) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Event) (bson.M, error)) error {
	return txn.WithTransaction(ctx, s.c.Database().Client(), s.log, func(ctx context.Context) error {
		var event models.Event
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
			return err
		}
		update, err := fn(&event)
		if err != nil {
			return err
		}
		if update == nil {
			return nil
		}
		if set, ok := update["$set"].(bson.M); ok {
			set["updated_at"] = time.Now().UTC()
		} else {
			update["$set"] = bson.M{"updated_at": time.Now().UTC()}
		}
		_, err = s.c.UpdateByID(ctx, id, update)
		return err
	})
}
