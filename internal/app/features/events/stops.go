// internal/app/features/events/stops.go
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// stopSide resolves the {side} route parameter.
func stopSide(w http.ResponseWriter, r *http.Request) (eventstore.StopSide, bool) {
	switch chi.URLParam(r, "side") {
	case "pickup":
		return eventstore.PickUp, true
	case "dropoff":
		return eventstore.DropOff, true
	default:
		apierr.BadRequest(w, "side must be pickup or dropoff")
		return "", false
	}
}

type addStopRequest struct {
	Title string    `json:"title"`
	Place string    `json:"place"`
	Time  time.Time `json:"time"`
}

// HandleAddStop handles POST /events/{id}/stops/{side}. Organizer-only.
func (h *Handler) HandleAddStop(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	side, ok := stopSide(w, r)
	if !ok {
		return
	}

	var req addStopRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		apierr.BadRequest(w, "title is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	stopID, err := h.Events.AddStop(ctx, id, side, sanitize.Plain(req.Title), sanitize.Plain(req.Place), req.Time)
	if err != nil {
		h.writeEventError(w, "add stop", err)
		return
	}

	h.Log.Info("stop added",
		zap.String("event_id", id.Hex()),
		zap.String("side", string(side)),
		zap.String("stop_id", stopID.Hex()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"stop_id": stopID.Hex()})
}

// HandleRemoveStop handles DELETE /events/{id}/stops/{side}/{stopID}.
// Organizer-only; opt-ins on the stop are dropped with it.
func (h *Handler) HandleRemoveStop(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	side, ok := stopSide(w, r)
	if !ok {
		return
	}
	stopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "stopID"))
	if err != nil {
		apierr.BadRequest(w, "invalid stop id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	if err := h.Events.RemoveStop(ctx, id, side, stopID); err != nil {
		h.writeEventError(w, "remove stop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoinStop handles POST /events/{id}/stops/{side}/{stopID}/join.
// Joining a second stop on the same side moves the opt-in.
func (h *Handler) HandleJoinStop(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	side, ok := stopSide(w, r)
	if !ok {
		return
	}
	stopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "stopID"))
	if err != nil {
		apierr.BadRequest(w, "invalid stop id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.JoinStop(ctx, id, side, stopID, user.ID); err != nil {
		h.writeEventError(w, "join stop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeaveStop handles POST /events/{id}/stops/{side}/{stopID}/leave.
func (h *Handler) HandleLeaveStop(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	side, ok := stopSide(w, r)
	if !ok {
		return
	}
	stopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "stopID"))
	if err != nil {
		apierr.BadRequest(w, "invalid stop id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.LeaveStop(ctx, id, side, stopID, user.ID); err != nil {
		h.writeEventError(w, "leave stop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
