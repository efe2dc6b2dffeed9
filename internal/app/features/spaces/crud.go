// internal/app/features/spaces/crud.go
package spaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate handles POST /spaces. Any community member may propose a
// space; it starts pending until a community leader approves it. The
// creator is enrolled as the space's leader right away.
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
	if strings.TrimSpace(req.Name) == "" {
		apierr.BadRequest(w, "name is required")
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

	space, err := h.Spaces.Create(ctx, communityID, req.Name, sanitize.Rich(req.Description), user.ID)
	if err != nil {
		switch {
		case err == spacestore.ErrNameTaken:
			apierr.Conflict(w, err.Error())
		case apierr.IsNotFound(err):
			apierr.NotFound(w, "community not found")
		default:
			h.ErrLog.ServerError(w, "create space", err)
		}
		return
	}

	// The creator leads the space and does not wait in the approval
	// queue of their own space.
	if err := h.Memberships.Add(ctx, models.EntitySpace, space.ID, user.ID, models.RoleLeader); err != nil {
		h.ErrLog.ServerError(w, "enroll space creator", err)
		return
	}
	if err := h.Memberships.SetApprovalStatus(ctx, space.ID, user.ID, models.ApprovalLive); err != nil {
		h.ErrLog.ServerError(w, "activate space creator", err)
		return
	}

	h.Log.Info("space proposed",
		zap.String("space_id", space.ID.Hex()),
		zap.String("community_id", communityID.Hex()),
		zap.String("created_by", user.ID.Hex()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(space)
}

// ServeList handles GET /spaces?community_id=...&status=... Plain
// members see live spaces; community leaders may ask for pending or
// rejected ones.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	communityID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("community_id"))
	if err != nil {
		apierr.BadRequest(w, "community_id is required")
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.ApprovalLive
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if status != models.ApprovalLive {
		if !h.requireCommunityLeader(ctx, w, communityID, user.ID) {
			return
		}
	}

	spaces, err := h.Spaces.ListByCommunity(ctx, communityID, status)
	if err != nil {
		h.ErrLog.ServerError(w, "list spaces", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"spaces": spaces})
}

// ServeView handles GET /spaces/{id}.
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

	space, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load space", "space not found", err)
		return
	}

	memberCount, err := h.Memberships.CountByEntity(ctx, models.EntitySpace, id, "")
	if err != nil {
		h.ErrLog.ServerError(w, "count members", err)
		return
	}
	role, err := h.Memberships.Role(ctx, models.EntitySpace, id, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check role", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"space":        space,
		"member_count": memberCount,
		"my_role":      role,
	})
}

type editRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// HandleEdit handles PATCH /spaces/{id}. Space leaders and editors.
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

	if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader, models.RoleEditor) {
		return
	}

	space, err := h.Spaces.Update(ctx, id, req.Name, req.Description)
	if err != nil {
		if err == spacestore.ErrNameTaken {
			apierr.Conflict(w, err.Error())
			return
		}
		h.ErrLog.StoreError(w, "update space", "space not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(space)
}

// HandleApprove handles POST /spaces/{id}/approve; community leaders
// flip a pending space live.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleApproval(w, r, models.ApprovalLive)
}

// HandleReject handles POST /spaces/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleApproval(w, r, models.ApprovalRejected)
}

func (h *Handler) handleApproval(w http.ResponseWriter, r *http.Request, status string) {
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

	space, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load space for approval", "space not found", err)
		return
	}
	if !h.requireCommunityLeader(ctx, w, space.CommunityID, user.ID) {
		return
	}

	if err := h.Spaces.SetApprovalStatus(ctx, id, status); err != nil {
		h.ErrLog.StoreError(w, "set space approval", "space not found", err)
		return
	}

	h.Log.Info("space approval changed",
		zap.String("space_id", id.Hex()),
		zap.String("status", status),
		zap.String("by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /spaces/{id}. Space leaders or leaders of
// the parent community.
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

	space, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load space for delete", "space not found", err)
		return
	}

	spaceRole, err := h.Memberships.Role(ctx, models.EntitySpace, id, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check space role", err)
		return
	}
	if spaceRole != models.RoleLeader {
		communityRole, err := h.Memberships.Role(ctx, models.EntityCommunity, space.CommunityID, user.ID)
		if err != nil {
			h.ErrLog.ServerError(w, "check community role", err)
			return
		}
		if communityRole != models.RoleLeader {
			apierr.Forbidden(w, "leader role required")
			return
		}
	}

	if err := h.Cascade.DeleteSpace(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "delete space", "space not found", err)
		return
	}

	h.Log.Info("space deleted",
		zap.String("space_id", id.Hex()),
		zap.String("deleted_by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}
