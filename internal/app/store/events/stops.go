// internal/app/store/events/stops.go
package eventstore

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StopSide selects the pickup or dropoff list.
type StopSide string

const (
	PickUp  StopSide = "pick_up"
	DropOff StopSide = "drop_off"
)

func stops(e *models.Event, side StopSide) []models.Stop {
	if side == PickUp {
		return e.PickUp
	}
	return e.DropOff
}

// AddStop appends a pickup or dropoff stop. Organizer-only.
func (s *Store) AddStop(ctx context.Context, eventID primitive.ObjectID, side StopSide, title, place string, at time.Time) (primitive.ObjectID, error) {
	stopID := primitive.NewObjectID()
	err := s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		stop := models.Stop{
			ID:        stopID,
			Title:     title,
			Place:     place,
			Time:      at,
			Attendees: []primitive.ObjectID{},
		}
		return bson.M{"$push": bson.M{string(side): stop}}, nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return stopID, nil
}

// RemoveStop deletes a stop and with it the opt-ins it held.
func (s *Store) RemoveStop(ctx context.Context, eventID primitive.ObjectID, side StopSide, stopID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		found := false
		for _, st := range stops(e, side) {
			if st.ID == stopID {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrStopNotFound
		}
		return bson.M{"$pull": bson.M{string(side): bson.M{"id": stopID}}}, nil
	})
}

// JoinStop opts an attendee into a stop. A user rides at most one
// pickup and one dropoff stop, so joining replaces any previous opt-in
// on the same side.
func (s *Store) JoinStop(ctx context.Context, eventID primitive.ObjectID, side StopSide, stopID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		if _, ok := e.Attendees[userID.Hex()]; !ok {
			return nil, ErrNotAttending
		}

		list := stops(e, side)
		idx := -1
		for i, st := range list {
			if st.ID == stopID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrStopNotFound
		}

		// Rewrite the whole side: drop the user everywhere, then add to
		// the chosen stop. Mixed $pull/$push on one array is not allowed
		// in a single update anyway.
		next := make([]models.Stop, len(list))
		for i, st := range list {
			members := make([]primitive.ObjectID, 0, len(st.Attendees)+1)
			for _, a := range st.Attendees {
				if a != userID {
					members = append(members, a)
				}
			}
			if i == idx {
				members = append(members, userID)
			}
			st.Attendees = members
			next[i] = st
		}
		return bson.M{"$set": bson.M{string(side): next}}, nil
	})
}

// LeaveStop removes the user's opt-in from a stop.
func (s *Store) LeaveStop(ctx context.Context, eventID primitive.ObjectID, side StopSide, stopID, userID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		list := stops(e, side)
		idx := -1
		for i, st := range list {
			if st.ID == stopID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrStopNotFound
		}

		members := make([]primitive.ObjectID, 0, len(list[idx].Attendees))
		for _, a := range list[idx].Attendees {
			if a != userID {
				members = append(members, a)
			}
		}
		field := string(side) + "." + strconv.Itoa(idx) + ".attendees"
		return bson.M{"$set": bson.M{field: members}}, nil
	})
}
