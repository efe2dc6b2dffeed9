// internal/app/features/spaces/routes.go
package spaces

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

	// APPROVAL (community leaders)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)

	// PHOTO
	r.Put("/{id}/photo", h.HandlePhotoUpload)

	// MEMBERSHIP
	r.Post("/{id}/join", h.HandleJoin)
	r.Get("/{id}/members", h.ServeMembers)
	r.Post("/{id}/members/approve", h.HandleApproveMember)
	r.Post("/{id}/members/reject", h.HandleRejectMember)
	r.Post("/{id}/members/promote", h.HandlePromote)
	r.Post("/{id}/members/demote", h.HandleDemote)
	r.Delete("/{id}/members", h.HandleRemoveMember)

	return r
}
