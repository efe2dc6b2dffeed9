// internal/app/features/spaces/photo.go
package spaces

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

// HandlePhotoUpload handles PUT /spaces/{id}/photo. Leaders and editors
// of the space; re-uploading overwrites the blob in place.
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

	if !h.requireSpaceRole(ctx, w, id, user.ID, models.RoleLeader, models.RoleEditor) {
		return
	}
	if _, err := h.Spaces.GetByID(ctx, id); err != nil {
		h.ErrLog.StoreError(w, "load space for photo", "space not found", err)
		return
	}

	path, err := blobstore.PutImage(ctx, h.Blobs, "space", "photo", id, id, file, contentType)
	if err != nil {
		h.ErrLog.ServerError(w, "upload space photo", err)
		return
	}
	if err := h.Spaces.SetPhotoPath(ctx, id, path); err != nil {
		h.ErrLog.StoreError(w, "record space photo", "space not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"photo_path": path,
		"photo_url":  h.Blobs.URL(path),
	})
}
