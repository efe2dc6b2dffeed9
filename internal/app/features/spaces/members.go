// internal/app/features/spaces/members.go
package spaces

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

type memberView struct {
	UserID         string `json:"user_id"`
	FullName       string `json:"full_name"`
	PhotoURL       string `json:"photo_url,omitempty"`
	Role           string `json:"role"`
	ApprovalStatus string `json:"approval_status,omitempty"`
}

// ServeMembers handles GET /spaces/{id}/members. Pending and rejected
// rows are included so space leaders can work the approval queue;
// clients filter on approval_status for display.
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

	memberships, err := h.Memberships.ListByEntity(ctx, models.EntitySpace, id, "")
	if err != nil {
		h.ErrLog.ServerError(w, "list space members", err)
		return
	}

	ids := make([]primitive.ObjectID, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}

	users := map[string]memberView{}
	for _, chunk := range paging.ChunkIn(ids) {
		rows, err := h.Users.ListByIDs(ctx, chunk)
		if err != nil {
			h.ErrLog.ServerError(w, "load member users", err)
			return
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
			continue
		}
		v.Role = m.Role
		v.ApprovalStatus = m.ApprovalStatus
		views = append(views, v)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"members": views})
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

// HandleJoin handles POST /spaces/{id}/join. The caller must belong to
// the parent community; the membership starts pending until a space
// leader approves it.
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

	space, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load space for join", "space not found", err)
		return
	}
	communityRole, err := h.Memberships.Role(ctx, models.EntityCommunity, space.CommunityID, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check community membership", err)
		return
	}
	if communityRole == "" {
		apierr.Forbidden(w, "community membership required")
		return
	}

	if err := h.Memberships.Add(ctx, models.EntitySpace, id, user.ID, models.RoleMember); err != nil {
		h.ErrLog.StoreError(w, "join space", "space not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApproveMember handles POST /spaces/{id}/members/approve. Space
// leaders only.
func (h *Handler) HandleApproveMember(w http.ResponseWriter, r *http.Request) {
	h.handleMemberApproval(w, r, models.ApprovalLive)
}

// HandleRejectMember handles POST /spaces/{id}/members/reject.
func (h *Handler) HandleRejectMember(w http.ResponseWriter, r *http.Request) {
	h.handleMemberApproval(w, r, models.ApprovalRejected)
}

func (h *Handler) handleMemberApproval(w http.ResponseWriter, r *http.Request, status string) {
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

	if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.SetApprovalStatus(ctx, id, userID, status); err != nil {
		h.writeMembershipError(w, "set member approval", err)
		return
	}

	h.Log.Info("space member approval changed",
		zap.String("space_id", id.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("status", status))

	w.WriteHeader(http.StatusNoContent)
}

// HandlePromote handles POST /spaces/{id}/members/promote. Space
// leaders only.
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

	if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.Promote(ctx, models.EntitySpace, id, userID, role); err != nil {
		h.writeMembershipError(w, "promote space member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDemote handles POST /spaces/{id}/members/demote.
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

	if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader) {
		return
	}

	if err := h.Memberships.Demote(ctx, models.EntitySpace, id, userID); err != nil {
		h.writeMembershipError(w, "demote space member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /spaces/{id}/members. Space leaders
// can remove anyone but the last leader; members can remove themselves.
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
		if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader) {
			return
		}
	}

	if err := h.Memberships.Remove(ctx, models.EntitySpace, id, userID); err != nil {
		h.writeMembershipError(w, "remove space member", err)
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
