// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"encoding/json"
	"net/http"

	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own profile and activity.
type Handler struct {
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Communities *communitystore.Store
	Spaces      *spacestore.Store
	Events      *eventstore.Store
	Log         *zap.Logger
	ErrLog      *apierr.ErrorLogger
}

func NewHandler(
	users *userstore.Store,
	memberships *membershipstore.Store,
	communities *communitystore.Store,
	spaces *spacestore.Store,
	events *eventstore.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:       users,
		Memberships: memberships,
		Communities: communities,
		Spaces:      spaces,
		Events:      events,
		Log:         logger,
		ErrLog:      apierr.NewErrorLogger(logger),
	}
}

// ServeMe handles GET /profile.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	me, err := h.Users.GetByID(ctx, user.ID)
	if err != nil {
		h.ErrLog.StoreError(w, "load profile", "account not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(me)
}

type updateRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// HandleUpdate handles PATCH /profile. Absent fields are left alone.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Bio != nil {
		clean := sanitize.Plain(*req.Bio)
		req.Bio = &clean
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	me, err := h.Users.UpdateProfile(ctx, user.ID, req.FullName, req.Bio)
	if err != nil {
		h.ErrLog.StoreError(w, "update profile", "account not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(me)
}

type darkModeRequest struct {
	DarkMode bool `json:"dark_mode"`
}

// HandleDarkMode handles PUT /profile/dark-mode.
func (h *Handler) HandleDarkMode(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
		return
	}

	var req darkModeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetDarkMode(ctx, user.ID, req.DarkMode); err != nil {
		h.ErrLog.StoreError(w, "set dark mode", "account not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"dark_mode": req.DarkMode})
}

// membershipView joins the membership row with its entity's display
// fields for the client.
type membershipView struct {
	Membership models.Membership `json:"membership"`
	Name       string            `json:"name"`
	PhotoPath  string            `json:"photo_path,omitempty"`
}

type membershipsResponse struct {
	Communities []membershipView `json:"communities"`
	Spaces      []membershipView `json:"spaces"`
}

// ServeMemberships handles GET /profile/memberships: the caller's
// communities and spaces with role and approval state.
func (h *Handler) ServeMemberships(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	memberships, err := h.Memberships.ListByUser(ctx, user.ID, "")
	if err != nil {
		h.ErrLog.ServerError(w, "list memberships", err)
		return
	}

	var communityIDs, spaceIDs []primitive.ObjectID
	for _, m := range memberships {
		if m.EntityType == models.EntityCommunity {
			communityIDs = append(communityIDs, m.EntityID)
		} else {
			spaceIDs = append(spaceIDs, m.EntityID)
		}
	}

	resp := membershipsResponse{
		Communities: []membershipView{},
		Spaces:      []membershipView{},
	}

	communityNames := map[string]membershipView{}
	for _, chunk := range paging.ChunkIn(communityIDs) {
		rows, err := h.Communities.ListByIDs(ctx, chunk)
		if err != nil {
			h.ErrLog.ServerError(w, "load membership communities", err)
			return
		}
		for _, c := range rows {
			communityNames[c.ID.Hex()] = membershipView{Name: c.Name, PhotoPath: c.PhotoPath}
		}
	}
	spaceNames := map[string]membershipView{}
	for _, chunk := range paging.ChunkIn(spaceIDs) {
		rows, err := h.Spaces.ListByIDs(ctx, chunk)
		if err != nil {
			h.ErrLog.ServerError(w, "load membership spaces", err)
			return
		}
		for _, s := range rows {
			spaceNames[s.ID.Hex()] = membershipView{Name: s.Name, PhotoPath: s.PhotoPath}
		}
	}

	for _, m := range memberships {
		if m.EntityType == models.EntityCommunity {
			v := communityNames[m.EntityID.Hex()]
			v.Membership = m
			resp.Communities = append(resp.Communities, v)
		} else {
			v := spaceNames[m.EntityID.Hex()]
			v.Membership = m
			resp.Spaces = append(resp.Spaces, v)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ServeEvents handles GET /profile/events: events the caller attends,
// keyset-paged.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
		return
	}

	limit := paging.ParseLimit(r)
	after, _ := paging.ParseAfter(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Events.ListAttending(ctx, user.ID, after, paging.LimitPlusOne(limit))
	if err != nil {
		h.ErrLog.ServerError(w, "list attending events", err)
		return
	}
	events, hasMore := paging.Trim(rows, limit)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"events":   events,
		"has_more": hasMore,
	})
}
