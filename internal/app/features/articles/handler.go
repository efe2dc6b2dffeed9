// internal/app/features/articles/handler.go
package articles

import (
	"context"
	"net/http"

	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the articles feature.
type Handler struct {
	Articles    *articlestore.Store
	Memberships *membershipstore.Store
	Cascade     *cascade.Deleter
	Blobs       storage.Store
	Log         *zap.Logger
	ErrLog      *apierr.ErrorLogger
}

func NewHandler(
	articles *articlestore.Store,
	memberships *membershipstore.Store,
	cascade *cascade.Deleter,
	blobs storage.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Articles:    articles,
		Memberships: memberships,
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

// canManage reports whether the caller may edit or delete the article:
// its author, or a leader of the scope it belongs to.
func (h *Handler) canManage(ctx context.Context, article models.Article, userID primitive.ObjectID) (bool, error) {
	if article.AuthorID == userID {
		return true, nil
	}
	entityType := models.EntityCommunity
	var entityID primitive.ObjectID
	switch {
	case article.CommunityID != nil:
		entityID = *article.CommunityID
	case article.SpaceID != nil:
		entityType = models.EntitySpace
		entityID = *article.SpaceID
	default:
		return false, nil
	}
	role, err := h.Memberships.Role(ctx, entityType, entityID, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleLeader, nil
}

// requireManage loads the article and checks edit rights.
func (h *Handler) requireManage(ctx context.Context, w http.ResponseWriter, articleID, userID primitive.ObjectID) (models.Article, bool) {
	article, err := h.Articles.GetByID(ctx, articleID)
	if err != nil {
		h.ErrLog.StoreError(w, "load article", "article not found", err)
		return models.Article{}, false
	}
	allowed, err := h.canManage(ctx, article, userID)
	if err != nil {
		h.ErrLog.ServerError(w, "check article rights", err)
		return models.Article{}, false
	}
	if !allowed {
		apierr.Forbidden(w, "author or leader role required")
		return models.Article{}, false
	}
	return article, true
}
