// internal/app/features/events/handler.go
package events

import (
	"context"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the events feature.
type Handler struct {
	Events      *eventstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Cascade     *cascade.Deleter
	Blobs       storage.Store
	Log         *zap.Logger
	ErrLog      *apierr.ErrorLogger
}

func NewHandler(
	events *eventstore.Store,
	memberships *membershipstore.Store,
	users *userstore.Store,
	cascade *cascade.Deleter,
	blobs storage.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Events:      events,
		Memberships: memberships,
		Users:       users,
		Cascade:     cascade,
		Blobs:       blobs,
		Log:         logger,
		ErrLog:      apierr.NewErrorLogger(logger),
	}
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		apierr.BadRequest(w, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func caller(w http.ResponseWriter, r *http.Request) (*authz.SessionUser, bool) {
	u, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
	}
	return u, ok
}

// requireOrganizer loads the event and checks the caller organizes it.
// Returns the loaded event so handlers skip a second fetch.
func (h *Handler) requireOrganizer(ctx context.Context, w http.ResponseWriter, eventID, userID primitive.ObjectID) (models.Event, bool) {
	event, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		h.ErrLog.StoreError(w, "load event", "event not found", err)
		return models.Event{}, false
	}
	if event.OrganizerID != userID {
		apierr.Forbidden(w, "only the organizer can do this")
		return models.Event{}, false
	}
	return event, true
}

// writeEventError maps the store's sentinel errors onto API statuses.
func (h *Handler) writeEventError(w http.ResponseWriter, op string, err error) {
	switch err {
	case eventstore.ErrEventFull:
		apierr.Conflict(w, err.Error())
	case eventstore.ErrNotAttending:
		apierr.Forbidden(w, err.Error())
	case eventstore.ErrMuted:
		apierr.Forbidden(w, err.Error())
	case eventstore.ErrNotAuthor:
		apierr.Forbidden(w, err.Error())
	case eventstore.ErrCommentLocked:
		apierr.Conflict(w, err.Error())
	case eventstore.ErrNoDeparture:
		apierr.Conflict(w, err.Error())
	case eventstore.ErrCommentNotFound, eventstore.ErrStopNotFound:
		apierr.NotFound(w, err.Error())
	case eventstore.ErrBadRating:
		apierr.BadRequest(w, err.Error())
	default:
		h.ErrLog.StoreError(w, op, "event not found", err)
	}
}
