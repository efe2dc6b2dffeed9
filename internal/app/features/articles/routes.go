// internal/app/features/articles/routes.go
package articles

import "github.com/go-chi/chi/v5"

// Routes are mounted behind the bearer-token middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// LIST / CREATE
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	// VIEW / EDIT / DELETE
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.HandleEdit)
	r.Delete("/{id}", h.HandleDelete)

	// PUBLISH
	r.Post("/{id}/publish", h.HandlePublish)
	r.Post("/{id}/unpublish", h.HandleUnpublish)

	// IMAGES
	r.Post("/{id}/images", h.HandleImageUpload)
	r.Delete("/{id}/images/{imageID}", h.HandleImageDelete)

	return r
}
