// internal/app/features/events/crud.go
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
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	CommunityID string     `json:"community_id"`
	SpaceID     string     `json:"space_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Price       *int64     `json:"price,omitempty"`
	Capacity    int        `json:"capacity,omitempty"`
}

// HandleCreate handles POST /events. The caller must belong to the
// community; they become the event's organizer and its first approved
// attendee.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	communityID, err := primitive.ObjectIDFromHex(req.CommunityID)
	if err != nil {
		apierr.BadRequest(w, "invalid community_id")
		return
	}
	var spaceID *primitive.ObjectID
	if req.SpaceID != "" {
		id, err := primitive.ObjectIDFromHex(req.SpaceID)
		if err != nil {
			apierr.BadRequest(w, "invalid space_id")
			return
		}
		spaceID = &id
	}
	if strings.TrimSpace(req.Title) == "" {
		apierr.BadRequest(w, "title is required")
		return
	}
	if req.StartsAt.IsZero() {
		apierr.BadRequest(w, "starts_at is required")
		return
	}
	if req.Price != nil && *req.Price < 0 {
		apierr.BadRequest(w, "price must not be negative")
		return
	}
	if req.Capacity < 0 {
		apierr.BadRequest(w, "capacity must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	role, err := h.Memberships.Role(ctx, models.EntityCommunity, communityID, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check community membership", err)
		return
	}
	if role == "" {
		apierr.Forbidden(w, "community membership required")
		return
	}

	event, err := h.Events.Create(ctx, eventstore.CreateParams{
		CommunityID: communityID,
		SpaceID:     spaceID,
		OrganizerID: user.ID,
		Title:       req.Title,
		Description: sanitize.Rich(req.Description),
		Location:    sanitize.Plain(req.Location),
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Price:       req.Price,
		Capacity:    req.Capacity,
	})
	if err != nil {
		h.ErrLog.StoreError(w, "create event", "community or space not found", err)
		return
	}

	h.Log.Info("event created",
		zap.String("event_id", event.ID.Hex()),
		zap.String("community_id", communityID.Hex()),
		zap.String("organizer_id", user.ID.Hex()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(event)
}

// ServeList handles GET /events?community_id=... or ?space_id=...,
// keyset-paged.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}

	limit := paging.ParseLimit(r)
	after, _ := paging.ParseAfter(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var rows []models.Event
	var err error
	switch {
	case r.URL.Query().Get("space_id") != "":
		spaceID, perr := primitive.ObjectIDFromHex(r.URL.Query().Get("space_id"))
		if perr != nil {
			apierr.BadRequest(w, "invalid space_id")
			return
		}
		rows, err = h.Events.ListBySpace(ctx, spaceID, after, paging.LimitPlusOne(limit))
	case r.URL.Query().Get("community_id") != "":
		communityID, perr := primitive.ObjectIDFromHex(r.URL.Query().Get("community_id"))
		if perr != nil {
			apierr.BadRequest(w, "invalid community_id")
			return
		}
		rows, err = h.Events.ListByCommunity(ctx, communityID, after, paging.LimitPlusOne(limit))
	default:
		apierr.BadRequest(w, "community_id or space_id is required")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, "list events", err)
		return
	}

	events, hasMore := paging.Trim(rows, limit)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"events":   events,
		"has_more": hasMore,
	})
}

// ServeView handles GET /events/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	event, err := h.Events.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load event", "event not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(event)
}

type editRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
}

// HandleEdit handles PATCH /events/{id}. Organizer-only; price is fixed
// at creation so attendees never see the terms change under them.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req editRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Description != nil {
		clean := sanitize.Rich(*req.Description)
		req.Description = &clean
	}
	if req.Location != nil {
		clean := sanitize.Plain(*req.Location)
		req.Location = &clean
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		apierr.BadRequest(w, "capacity must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	event, err := h.Events.Update(ctx, id, req.Title, req.Description, req.Location, req.StartsAt, req.EndsAt, req.Capacity)
	if err != nil {
		h.ErrLog.StoreError(w, "update event", "event not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(event)
}

// HandleDelete handles DELETE /events/{id}. Organizer-only; image blobs
// go with the document.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	if err := h.Cascade.DeleteEvent(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "delete event", "event not found", err)
		return
	}

	h.Log.Info("event deleted",
		zap.String("event_id", id.Hex()),
		zap.String("deleted_by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}
