// internal/app/features/articles/images.go
package articles

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleImageUpload handles POST /articles/{id}/images as a multipart
// upload with an "image" part and an optional "caption" field. Author
// or scope leader.
func (h *Handler) HandleImageUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxImageUpload)
	file, header, err := r.FormFile("image")
	if err != nil {
		apierr.BadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		apierr.BadRequest(w, "image must be JPEG or PNG")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, ok := h.requireManage(ctx, w, id, user.ID); !ok {
		return
	}

	imageID := primitive.NewObjectID()
	path, err := blobstore.PutImage(ctx, h.Blobs, "article", "gallery", id, imageID, file, contentType)
	if err != nil {
		h.ErrLog.ServerError(w, "upload article image", err)
		return
	}

	img := models.ArticleImage{
		ID:      imageID,
		Path:    path,
		Caption: sanitize.Plain(r.FormValue("caption")),
	}
	if err := h.Articles.AddImage(ctx, id, img); err != nil {
		h.ErrLog.StoreError(w, "record article image", "article not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"image_id":  imageID.Hex(),
		"image_url": h.Blobs.URL(path),
	})
}

// HandleImageDelete handles DELETE /articles/{id}/images/{imageID}.
// The blob is removed best-effort after the metadata entry.
func (h *Handler) HandleImageDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	imageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "imageID"))
	if err != nil {
		apierr.BadRequest(w, "invalid image id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	article, ok := h.requireManage(ctx, w, id, user.ID)
	if !ok {
		return
	}

	var path string
	for _, img := range article.Images {
		if img.ID == imageID {
			path = img.Path
			break
		}
	}
	if path == "" {
		apierr.NotFound(w, "image not found")
		return
	}

	if err := h.Articles.RemoveImage(ctx, id, imageID); err != nil {
		h.ErrLog.StoreError(w, "remove article image", "article not found", err)
		return
	}
	if err := h.Blobs.Delete(ctx, path); err != nil {
		h.Log.Warn("orphaned article image blob",
			zap.String("path", path),
			zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
