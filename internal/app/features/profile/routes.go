// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes are mounted behind the bearer-token middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeMe)
	r.Patch("/", h.HandleUpdate)
	r.Put("/dark-mode", h.HandleDarkMode)
	r.Get("/memberships", h.ServeMemberships)
	r.Get("/events", h.ServeEvents)

	return r
}
