// internal/app/features/communities/members.go
package communities

import (
	"context"
	"encoding/json"
	"net/http"

	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memberView joins a membership row with the user's display fields.
type memberView struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	PhotoURL string `json:"photo_url,omitempty"`
	Role     string `json:"role"`
}

// ServeMembers handles GET /communities/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	memberships, err := h.Memberships.ListByEntity(ctx, models.EntityCommunity, id, "")
	if err != nil {
		h.ErrLog.ServerError(w, "list members", err)
		return
	}

	views, err := h.joinMembers(ctx, memberships)
	if err != nil {
		h.ErrLog.ServerError(w, "load member users", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"members": views})
}

// joinMembers resolves user display fields for membership rows, chunking
// the id lookups.
func (h *Handler) joinMembers(ctx context.Context, memberships []models.Membership) ([]memberView, error) {
	ids := make([]primitive.ObjectID, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}

	users := map[string]memberView{}
	for _, chunk := range paging.ChunkIn(ids) {
		rows, err := h.Users.ListByIDs(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, u := range rows {
			users[u.ID.Hex()] = memberView{
				UserID:   u.ID.Hex(),
				FullName: u.FullName,
				PhotoURL: u.PhotoURL,
			}
		}
	}

	views := make([]memberView, 0, len(memberships))
	for _, m := range memberships {
		v, ok := users[m.UserID.Hex()]
		if !ok {
			// Membership pointing at a deleted user; the janitor cleans
			// these up, skip for display.
			continue
		}
		v.Role = m.Role
		views = append(views, v)
	}
	return views, nil
}

type memberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func (h *Handler) decodeMemberRequest(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, string, bool) {
	var req memberRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return primitive.NilObjectID, "", false
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		apierr.BadRequest(w, "invalid user_id")
		return primitive.NilObjectID, "", false
	}
	return userID, req.Role, true
}

// HandleJoin handles POST /communities/{id}/join: the caller joins as
// a plain member.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Memberships.Add(ctx, models.EntityCommunity, id, user.ID, models.RoleMember); err != nil {
		h.ErrLog.StoreError(w, "join community", "community not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember handles POST /communities/{id}/members. Leaders only;
// adding an existing member never downgrades their role.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, role, ok := h.decodeMemberRequest(w, r)
	if !ok {
		return
	}
	if role == "" {
		role = models.RoleMember
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.Add(ctx, models.EntityCommunity, id, userID, role); err != nil {
		switch err {
		case membershipstore.ErrBadRole:
			apierr.BadRequest(w, err.Error())
		default:
			h.ErrLog.StoreError(w, "add member", "community or user not found", err)
		}
		return
	}

	h.Log.Info("member added",
		zap.String("community_id", id.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("role", role))

	w.WriteHeader(http.StatusNoContent)
}

// HandlePromote handles POST /communities/{id}/members/promote.
// Leaders only; the role value is validated, unknown roles are refused.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, role, ok := h.decodeMemberRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.Promote(ctx, models.EntityCommunity, id, userID, role); err != nil {
		h.writeMembershipError(w, "promote member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDemote handles POST /communities/{id}/members/demote.
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, _, ok := h.decodeMemberRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.Demote(ctx, models.EntityCommunity, id, userID); err != nil {
		h.writeMembershipError(w, "demote member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /communities/{id}/members. Leaders
// can remove anyone (except the last leader); members can remove
// themselves.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, _, ok := h.decodeMemberRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if userID != user.ID {
		if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader) {
			return
		}
	}

	if err := h.Memberships.Remove(ctx, models.EntityCommunity, id, userID); err != nil {
		h.writeMembershipError(w, "remove member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeMembershipError(w http.ResponseWriter, op string, err error) {
	switch err {
	case membershipstore.ErrBadRole:
		apierr.BadRequest(w, err.Error())
	case membershipstore.ErrLastLeader:
		apierr.Conflict(w, err.Error())
	case membershipstore.ErrNotMember:
		apierr.NotFound(w, err.Error())
	default:
		h.ErrLog.ServerError(w, op, err)
	}
}
