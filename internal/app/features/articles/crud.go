// internal/app/features/articles/crud.go
package articles

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
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
	CommunityID string `json:"community_id,omitempty"`
	SpaceID     string `json:"space_id,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Draft       bool   `json:"draft,omitempty"`
}

// HandleCreate handles POST /articles. The author must belong to the
// scope the article is posted under.
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
	if strings.TrimSpace(req.Title) == "" {
		apierr.BadRequest(w, "title is required")
		return
	}

	var communityID, spaceID *primitive.ObjectID
	entityType := models.EntityCommunity
	var entityID primitive.ObjectID
	switch {
	case req.CommunityID != "":
		id, err := primitive.ObjectIDFromHex(req.CommunityID)
		if err != nil {
			apierr.BadRequest(w, "invalid community_id")
			return
		}
		communityID = &id
		entityID = id
	case req.SpaceID != "":
		id, err := primitive.ObjectIDFromHex(req.SpaceID)
		if err != nil {
			apierr.BadRequest(w, "invalid space_id")
			return
		}
		spaceID = &id
		entityType = models.EntitySpace
		entityID = id
	default:
		apierr.BadRequest(w, "community_id or space_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	role, err := h.Memberships.Role(ctx, entityType, entityID, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "check membership", err)
		return
	}
	if role == "" {
		apierr.Forbidden(w, "membership required")
		return
	}

	article, err := h.Articles.Create(ctx, user.ID, communityID, spaceID, req.Title, sanitize.Rich(req.Body), req.Draft)
	if err != nil {
		if err == articlestore.ErrNoScope {
			apierr.BadRequest(w, err.Error())
			return
		}
		h.ErrLog.ServerError(w, "create article", err)
		return
	}

	h.Log.Info("article created",
		zap.String("article_id", article.ID.Hex()),
		zap.String("author_id", user.ID.Hex()),
		zap.Bool("draft", article.Draft))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(article)
}

// ServeList handles GET /articles?community_id=... or ?space_id=...,
// newest first. Authors see their own drafts in the list.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	limit := paging.ParseLimit(r)
	after, _ := paging.ParseAfter(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var rows []models.Article
	var err error
	switch {
	case r.URL.Query().Get("space_id") != "":
		spaceID, perr := primitive.ObjectIDFromHex(r.URL.Query().Get("space_id"))
		if perr != nil {
			apierr.BadRequest(w, "invalid space_id")
			return
		}
		rows, err = h.Articles.ListBySpace(ctx, spaceID, user.ID, after, paging.LimitPlusOne(limit))
	case r.URL.Query().Get("community_id") != "":
		communityID, perr := primitive.ObjectIDFromHex(r.URL.Query().Get("community_id"))
		if perr != nil {
			apierr.BadRequest(w, "invalid community_id")
			return
		}
		rows, err = h.Articles.ListByCommunity(ctx, communityID, user.ID, after, paging.LimitPlusOne(limit))
	default:
		apierr.BadRequest(w, "community_id or space_id is required")
		return
	}
	if err != nil {
		h.ErrLog.ServerError(w, "list articles", err)
		return
	}

	articles, hasMore := paging.Trim(rows, limit)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"articles": articles,
		"has_more": hasMore,
	})
}

// ServeView handles GET /articles/{id}. Drafts are only visible to
// their author and scope leaders.
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

	article, err := h.Articles.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.StoreError(w, "load article", "article not found", err)
		return
	}
	if article.Draft {
		allowed, err := h.canManage(ctx, article, user.ID)
		if err != nil {
			h.ErrLog.ServerError(w, "check article rights", err)
			return
		}
		if !allowed {
			// Drafts are invisible, not forbidden.
			apierr.NotFound(w, "article not found")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(article)
}

type editRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// HandleEdit handles PATCH /articles/{id}. Author or scope leader.
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
	if req.Body != nil {
		clean := sanitize.Rich(*req.Body)
		req.Body = &clean
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireManage(ctx, w, id, user.ID); !ok {
		return
	}

	article, err := h.Articles.Update(ctx, id, req.Title, req.Body)
	if err != nil {
		h.ErrLog.StoreError(w, "update article", "article not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(article)
}

// HandlePublish handles POST /articles/{id}/publish. Author or scope
// leader; publishing twice is a no-op.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	h.handleDraftFlip(w, r, false)
}

// HandleUnpublish handles POST /articles/{id}/unpublish, pulling a live
// article back to draft.
func (h *Handler) HandleUnpublish(w http.ResponseWriter, r *http.Request) {
	h.handleDraftFlip(w, r, true)
}

func (h *Handler) handleDraftFlip(w http.ResponseWriter, r *http.Request, draft bool) {
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

	if _, ok := h.requireManage(ctx, w, id, user.ID); !ok {
		return
	}

	var err error
	if draft {
		err = h.Articles.Unpublish(ctx, id)
	} else {
		err = h.Articles.Publish(ctx, id)
	}
	if err != nil {
		h.ErrLog.StoreError(w, "set article draft state", "article not found", err)
		return
	}

	h.Log.Info("article draft state changed",
		zap.String("article_id", id.Hex()),
		zap.Bool("draft", draft),
		zap.String("by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /articles/{id}. Author or scope leader;
// image blobs go with the document.
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

	if _, ok := h.requireManage(ctx, w, id, user.ID); !ok {
		return
	}

	if err := h.Cascade.DeleteArticle(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "delete article", "article not found", err)
		return
	}

	h.Log.Info("article deleted",
		zap.String("article_id", id.Hex()),
		zap.String("deleted_by", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}
