// internal/app/features/communities/handler.go
package communities

import (
	"context"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
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

// Handler is the shared dependency container for the communities
// feature.
type Handler struct {
	Communities *communitystore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Cascade     *cascade.Deleter
	Blobs       storage.Store
	Log         *zap.Logger
	ErrLog      *apierr.ErrorLogger
}

func NewHandler(
	communities *communitystore.Store,
	memberships *membershipstore.Store,
	users *userstore.Store,
	cascade *cascade.Deleter,
	blobs storage.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Communities: communities,
		Memberships: memberships,
		Users:       users,
		Cascade:     cascade,
		Blobs:       blobs,
		Log:         logger,
		ErrLog:      apierr.NewErrorLogger(logger),
	}
}

// urlID parses the {id} chi parameter; a false return means the
// response has been written.
func urlID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		apierr.BadRequest(w, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// caller returns the authenticated user or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (*authz.SessionUser, bool) {
	u, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "")
	}
	return u, ok
}

// requireRole checks the caller's membership role against the allowed
// set and writes a 403 when it does not qualify.
func (h *Handler) requireRole(ctx context.Context, w http.ResponseWriter, communityID, userID primitive.ObjectID, allowed ...string) bool {
	role, err := h.Memberships.Role(ctx, models.EntityCommunity, communityID, userID)
	if err != nil {
		h.ErrLog.ServerError(w, "check community role", err)
		return false
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	apierr.Forbidden(w, "insufficient community role")
	return false
}
