// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClearedCommentText replaces the body of a comment an organizer redacts.
const ClearedCommentText = "Comment deleted by organizer"

// Event is a gathering hosted by a space (or directly by a community when
// SpaceID is nil). Attendance, pickup/dropoff logistics, comments, and
// ratings are embedded so every interaction is a single-document
// read-modify-write, which the event store runs inside a transaction.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	CommunityID primitive.ObjectID  `bson:"community_id" json:"community_id"`
	SpaceID     *primitive.ObjectID `bson:"space_id,omitempty" json:"space_id,omitempty"`
	OrganizerID primitive.ObjectID  `bson:"organizer_id" json:"organizer_id"`

	Title       string     `bson:"title" json:"title"`
	TitleCI     string     `bson:"title_ci" json:"-"`
	Description string     `bson:"description" json:"description"`
	Location    string     `bson:"location" json:"location"`
	StartsAt    time.Time  `bson:"starts_at" json:"starts_at"`
	EndsAt      *time.Time `bson:"ends_at,omitempty" json:"ends_at,omitempty"`

	// Price is nil for a free event. Paid events admit attendees with
	// Approved=false until the organizer approves them.
	Price    *int64 `bson:"price,omitempty" json:"price,omitempty"`
	Capacity int    `bson:"capacity,omitempty" json:"capacity,omitempty"`

	ImagePaths []string `bson:"image_paths,omitempty" json:"image_paths,omitempty"`

	Attendees      map[string]Attendee  `bson:"attendees" json:"attendees"`
	Unattendees    map[string]Departure `bson:"unattendees" json:"unattendees"`
	RefundRequests []string             `bson:"refund_requests,omitempty" json:"refund_requests,omitempty"`

	PickUp  []Stop `bson:"pick_up,omitempty" json:"pick_up,omitempty"`
	DropOff []Stop `bson:"drop_off,omitempty" json:"drop_off,omitempty"`

	Comments []Comment        `bson:"comments" json:"comments"`
	Ratings  map[string]int   `bson:"ratings" json:"ratings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Attendee is the per-user attendance record, keyed by user id hex in
// Event.Attendees.
type Attendee struct {
	Approved bool      `bson:"approved" json:"approved"`
	Arrived  bool      `bson:"arrived" json:"arrived"`
	Muted    bool      `bson:"muted" json:"muted"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// Departure records a user who left the event, keyed by user id hex.
type Departure struct {
	Reason          string    `bson:"reason,omitempty" json:"reason,omitempty"`
	RefundRequested bool      `bson:"refund_requested" json:"refund_requested"`
	LeftAt          time.Time `bson:"left_at" json:"left_at"`
}

// Stop is one pickup or dropoff point with the users who opted in.
type Stop struct {
	ID        primitive.ObjectID   `bson:"id" json:"id"`
	Title     string               `bson:"title" json:"title"`
	Place     string               `bson:"place" json:"place"`
	Time      time.Time            `bson:"time" json:"time"`
	Attendees []primitive.ObjectID `bson:"attendees" json:"attendees"`
}

// Comment is an event comment with its own replies and infraction
// reports. Once cleared by the organizer, IsEditable is false for good.
type Comment struct {
	ID          primitive.ObjectID `bson:"id" json:"id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`
	Text        string             `bson:"text" json:"text"`
	IsEditable  bool               `bson:"is_editable" json:"is_editable"`
	Infractions map[string]string  `bson:"infractions,omitempty" json:"infractions,omitempty"` // reporter id hex -> reason
	Replies     []Reply            `bson:"replies" json:"replies"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	EditedAt    *time.Time         `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}

// Reply is a comment reply. Replies carry no moderation state of their
// own; clearing the parent comment wipes them.
type Reply struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Free reports whether the event has no price set.
func (e *Event) Free() bool { return e.Price == nil }
