// internal/app/features/spaces/handler.go
package spaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the spaces feature.
type Handler struct {
	Spaces      *spacestore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Cascade     *cascade.Deleter
	Blobs       storage.Store
	Log         *zap.Logger
	ErrLog      *apierr.ErrorLogger
}

func NewHandler(
	spaces *spacestore.Store,
	memberships *membershipstore.Store,
	users *userstore.Store,
	cascade *cascade.Deleter,
	blobs storage.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Spaces:      spaces,
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

// requireSpaceRole checks the caller's role in the space itself.
func (h *Handler) requireSpaceRole(ctx context.Context, w http.ResponseWriter, spaceID, userID primitive.ObjectID, allowed ...string) bool {
	role, err := h.Memberships.Role(ctx, models.EntitySpace, spaceID, userID)
	if err != nil {
		h.ErrLog.ServerError(w, "check space role", err)
		return false
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	apierr.Forbidden(w, "insufficient space role")
	return false
}

// requireCommunityLeader checks the caller leads the space's parent
// community (space approval is a community-leader power).
func (h *Handler) requireCommunityLeader(ctx context.Context, w http.ResponseWriter, communityID, userID primitive.ObjectID) bool {
	role, err := h.Memberships.Role(ctx, models.EntityCommunity, communityID, userID)
	if err != nil {
		h.ErrLog.ServerError(w, "check community role", err)
		return false
	}
	if role != models.RoleLeader {
		apierr.Forbidden(w, "community leader role required")
		return false
	}
	return true
}
