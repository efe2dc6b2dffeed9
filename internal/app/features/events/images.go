// internal/app/features/events/images.go
package events

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleImageUpload handles POST /events/{id}/images. Organizer-only;
// each upload gets its own blob id so the gallery can grow.
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

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	path, err := blobstore.PutImage(ctx, h.Blobs, "event", "gallery", id, primitive.NewObjectID(), file, contentType)
	if err != nil {
		h.ErrLog.ServerError(w, "upload event image", err)
		return
	}
	if err := h.Events.AddImagePath(ctx, id, path); err != nil {
		h.ErrLog.StoreError(w, "record event image", "event not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"image_path": path,
		"image_url":  h.Blobs.URL(path),
	})
}
