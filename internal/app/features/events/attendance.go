// internal/app/features/events/attendance.go
package events

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleAttend handles POST /events/{id}/attend. Free events admit
// immediately; paid events hold the attendee unapproved until the
// organizer confirms payment.
func (h *Handler) HandleAttend(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.Attend(ctx, id, user.ID); err != nil {
		h.writeEventError(w, "attend event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type leaveRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleLeave handles POST /events/{id}/leave. The departure reason is
// kept for the organizer; stop opt-ins are dropped with the attendance.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req leaveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
			apierr.BadRequest(w, "invalid JSON body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.Leave(ctx, id, user.ID, sanitize.Plain(req.Reason)); err != nil {
		h.writeEventError(w, "leave event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attendeeRequest struct {
	UserID string `json:"user_id"`
}

func decodeAttendeeRequest(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	var req attendeeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		apierr.BadRequest(w, "invalid user_id")
		return primitive.NilObjectID, false
	}
	return userID, true
}

// HandleApproveAttendee handles POST /events/{id}/attendees/approve.
// Organizer-only, used to confirm payment on paid events.
func (h *Handler) HandleApproveAttendee(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := decodeAttendeeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	if err := h.Events.ApproveAttendee(ctx, id, userID); err != nil {
		h.writeEventError(w, "approve attendee", err)
		return
	}

	h.Log.Info("attendee approved",
		zap.String("event_id", id.Hex()),
		zap.String("user_id", userID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkArrived handles POST /events/{id}/attendees/arrived.
// Organizer-only check-in.
func (h *Handler) HandleMarkArrived(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := decodeAttendeeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	if err := h.Events.MarkArrived(ctx, id, userID); err != nil {
		h.writeEventError(w, "mark arrived", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRequestRefund handles POST /events/{id}/refund. The caller must
// have left the paid event already.
func (h *Handler) HandleRequestRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.RequestRefund(ctx, id, user.ID); err != nil {
		h.writeEventError(w, "request refund", err)
		return
	}

	h.Log.Info("refund requested",
		zap.String("event_id", id.Hex()),
		zap.String("user_id", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

type rateRequest struct {
	Stars int `json:"stars"`
}

// HandleRate handles PUT /events/{id}/rating. Current and former
// attendees only; re-rating overwrites.
func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req rateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.Rate(ctx, id, user.ID, req.Stars); err != nil {
		h.writeEventError(w, "rate event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// attendeeView joins the embedded attendance entry with the user's
// display fields.
type attendeeView struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Approved bool   `json:"approved"`
	Arrived  bool   `json:"arrived"`
	Muted    bool   `json:"muted,omitempty"`
}

// ServeAttendees handles GET /events/{id}/attendees. Organizer-only:
// the roster exposes approval, arrival, and mute state.
func (h *Handler) ServeAttendees(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	event, ok := h.requireOrganizer(ctx, w, id, user.ID)
	if !ok {
		return
	}

	ids := make([]primitive.ObjectID, 0, len(event.Attendees))
	for key := range event.Attendees {
		uid, err := primitive.ObjectIDFromHex(key)
		if err != nil {
			continue
		}
		ids = append(ids, uid)
	}

	names := map[string]string{}
	for _, chunk := range paging.ChunkIn(ids) {
		rows, err := h.Users.ListByIDs(ctx, chunk)
		if err != nil {
			h.ErrLog.ServerError(w, "load attendee users", err)
			return
		}
		for _, u := range rows {
			names[u.ID.Hex()] = u.FullName
		}
	}

	views := make([]attendeeView, 0, len(event.Attendees))
	for key, a := range event.Attendees {
		views = append(views, attendeeView{
			UserID:   key,
			FullName: names[key],
			Approved: a.Approved,
			Arrived:  a.Arrived,
			Muted:    a.Muted,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"attendees":       views,
		"unattendees":     event.Unattendees,
		"refund_requests": event.RefundRequests,
	})
}
