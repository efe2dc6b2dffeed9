// internal/app/features/communities/photo.go
package communities

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/domain/models"
)

// HandlePhotoUpload handles PUT /communities/{id}/photo as a multipart
// upload with a "photo" part. Leaders and editors only. Re-uploading
// overwrites: the path is derived from the community id, so the old
// blob is replaced in place.
func (h *Handler) HandlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxImageUpload)
	file, header, err := r.FormFile("photo")
	if err != nil {
		apierr.BadRequest(w, "photo file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		apierr.BadRequest(w, "photo must be JPEG or PNG")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if !h.requireRole(ctx, w, id, user.ID, models.RoleLeader, models.RoleEditor) {
		return
	}
	if _, err := h.Communities.GetByID(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "load community for photo", "community not found", err)
		return
	}

	path, err := blobstore.PutImage(ctx, h.Blobs, "community", "photo", id, id, file, contentType)
	if err != nil {
		h.ErrLog.ServerError(w, "upload community photo", err)
		return
	}
	if err := h.Communities.SetPhotoPath(ctx, id, path); err != nil {
		h.ErrLog.StoreError(w, "record community photo", "community not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"photo_path": path,
		"photo_url":  h.Blobs.URL(path),
	})
}
