// internal/app/store/events/attendance.go
package eventstore

import (
	"context"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attend enrolls the user. Free events admit immediately (approved);
// paid events enroll unapproved until the organizer confirms payment.
// Attending twice is a no-op; rejoining after leaving clears the
// departure record.
func (s *Store) Attend(ctx context.Context, eventID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		key := userID.Hex()
		if _, ok := e.Attendees[key]; ok {
			return nil, nil
		}
		if e.Capacity > 0 && len(e.Attendees) >= e.Capacity {
			return nil, ErrEventFull
		}

		update := bson.M{
			"$set": bson.M{
				"attendees." + key: models.Attendee{
					Approved: e.Free(),
					JoinedAt: time.Now().UTC(),
				},
			},
		}
		if _, left := e.Unattendees[key]; left {
			update["$unset"] = bson.M{"unattendees." + key: ""}
		}
		return update, nil
	})
}

// Leave moves the user from attendees to unattendees, recording the
// reason, and drops them from every pickup and dropoff stop.
func (s *Store) Leave(ctx context.Context, eventID, userID primitive.ObjectID, reason string) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		key := userID.Hex()
		if _, ok := e.Attendees[key]; !ok {
			return nil, ErrNotAttending
		}

		update := bson.M{
			"$unset": bson.M{"attendees." + key: ""},
			"$set": bson.M{
				"unattendees." + key: models.Departure{
					Reason: reason,
					LeftAt: time.Now().UTC(),
				},
			},
		}
		// The all-positional operator requires the array to exist.
		pull := bson.M{}
		if len(e.PickUp) > 0 {
			pull["pick_up.$[].attendees"] = userID
		}
		if len(e.DropOff) > 0 {
			pull["drop_off.$[].attendees"] = userID
		}
		if len(pull) > 0 {
			update["$pull"] = pull
		}
		return update, nil
	})
}

// ApproveAttendee marks a paid attendee as approved. Organizer-only;
// the handler enforces that.
func (s *Store) ApproveAttendee(ctx context.Context, eventID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		key := userID.Hex()
		if _, ok := e.Attendees[key]; !ok {
			return nil, ErrNotAttending
		}
		return bson.M{"$set": bson.M{"attendees." + key + ".approved": true}}, nil
	})
}

// MarkArrived records check-in at the event. Organizer-only.
func (s *Store) MarkArrived(ctx context.Context, eventID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		key := userID.Hex()
		if _, ok := e.Attendees[key]; !ok {
			return nil, ErrNotAttending
		}
		return bson.M{"$set": bson.M{"attendees." + key + ".arrived": true}}, nil
	})
}

// RequestRefund flags a departed paid attendee for a refund. The user
// must have left the event already; free events have nothing to refund.
func (s *Store) RequestRefund(ctx context.Context, eventID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		if e.Free() {
			return nil, ErrNoDeparture
		}
		key := userID.Hex()
		if _, ok := e.Unattendees[key]; !ok {
			return nil, ErrNoDeparture
		}
		return bson.M{
			"$set":      bson.M{"unattendees." + key + ".refund_requested": true},
			"$addToSet": bson.M{"refund_requests": key},
		}, nil
	})
}

// Rate records a 1..5 star rating from a current or former attendee.
// Re-rating overwrites the previous value.
func (s *Store) Rate(ctx context.Context, eventID, userID primitive.ObjectID, stars int) error {
	if stars < 1 || stars > 5 {
		return ErrBadRating
	}
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		key := userID.Hex()
		_, attending := e.Attendees[key]
		_, departed := e.Unattendees[key]
		if !attending && !departed {
			return nil, ErrNotAttending
		}
		return bson.M{"$set": bson.M{"ratings." + key: stars}}, nil
	})
}
