// internal/app/features/communities/crud.go
package communities

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate handles POST /communities. The creator becomes the
// community's first leader.
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
	if strings.TrimSpace(req.Name) == "" {
		apierr.BadRequest(w, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	community, err := h.Communities.Create(ctx, req.Name, sanitize.Rich(req.Description), user.ID)
	if err != nil {
		if err == communitystore.ErrNameTaken {
			apierr.Conflict(w, err.Error())
			return
		}
		h.ErrLog.ServerError(w, "create community", err)
		return
	}

	if err := h.Memberships.Add(ctx, models.EntityCommunity, community.ID, user.ID, models.RoleLeader); err != nil {
		// The community exists but the creator has no membership; undo
		// so we never leave a leaderless community behind.
		if _, delErr := h.Communities.Delete(ctx, community.ID); delErr != nil {
			h.Log.Error("rollback community create failed",
				zap.String("community_id", community.ID.Hex()),
				zap.Error(delErr))
		}
		h.ErrLog.ServerError(w, "enroll community creator", err)
		return
	}

	h.Log.Info("community created",
		zap.String("community_id", community.ID.Hex()),
		zap.String("created_by", user.ID.Hex()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(community)
}

// ServeList handles GET /communities, keyset-paged.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit := paging.ParseLimit(r)
	after, _ := paging.ParseAfter(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Communities.List(ctx, after, paging.LimitPlusOne(limit))
	if err != nil {
		h.ErrLog.ServerError(w, "list communities", err)
		return
	}
	communities, hasMore := paging.Trim(rows, limit)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"communities": communities,
		"has_more":    hasMore,
	})
}

// ServeView handles GET /communities/{id}: the community plus member
// counts and the caller's role.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
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

	community, err := h.Communities.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load community", "community not found", err)
		return
	}

	memberCount, err := h.Memberships.CountByEntity(ctx, models.EntityCommunity, id, "")
	if err != nil {
		h.ErrLog.ServerError(w, "count members", err)
		return
	}
	role, err := h.Memberships.Role(ctx, models.EntityCommunity, id, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check role", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"community":    community,
		"member_count": memberCount,
		"my_role":      role,
	})
}

type editRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// HandleEdit handles PATCH /communities/{id}. Leaders and editors only.
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader, models.RoleEditor) {
		return
	}

	community, err := h.Communities.Update(ctx, id, req.Name, req.Description)
	if err != nil {
		if err == communitystore.ErrNameTaken {
			apierr.Conflict(w, err.Error())
			return
		}
		h.ErrLog.StoreError(w, "update community", "community not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(community)
}

// HandleDelete handles DELETE /communities/{id}. Leaders only; tears
// down spaces, events, articles, memberships, and blobs.
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

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Cascade.DeleteCommunity(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "delete community", "community not found", err)
		return
	}

	h.Log.Info("community deleted",
		zap.String("community_id", id.Hex()),
		zap.String("deleted_by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}
