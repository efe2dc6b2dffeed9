// internal/app/features/authgoogle/routes.go
package authgoogle

import (
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, access *authtoken.Manager) chi.Router {
	r := chi.NewRouter()

	r.Post("/google", h.HandleLogin)
	r.Post("/refresh", h.HandleRefresh)

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireUser(access))
		pr.Post("/logout", h.HandleLogout)
	})

	return r
}
