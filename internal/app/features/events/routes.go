// internal/app/features/events/routes.go
package events

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

	// IMAGES
	r.Post("/{id}/images", h.HandleImageUpload)

	// ATTENDANCE
	r.Post("/{id}/attend", h.HandleAttend)
	r.Post("/{id}/leave", h.HandleLeave)
	r.Post("/{id}/refund", h.HandleRequestRefund)
	r.Put("/{id}/rating", h.HandleRate)
	r.Get("/{id}/attendees", h.ServeAttendees)
	r.Post("/{id}/attendees/approve", h.HandleApproveAttendee)
	r.Post("/{id}/attendees/arrived", h.HandleMarkArrived)

	// PICKUP / DROPOFF STOPS
	r.Post("/{id}/stops/{side}", h.HandleAddStop)
	r.Delete("/{id}/stops/{side}/{stopID}", h.HandleRemoveStop)
	r.Post("/{id}/stops/{side}/{stopID}/join", h.HandleJoinStop)
	r.Post("/{id}/stops/{side}/{stopID}/leave", h.HandleLeaveStop)

	// COMMENTS
	r.Post("/{id}/comments", h.HandleAddComment)
	r.Patch("/{id}/comments/{commentID}", h.HandleEditComment)
	r.Post("/{id}/comments/{commentID}/replies", h.HandleAddReply)
	r.Post("/{id}/comments/{commentID}/report", h.HandleReportComment)
	r.Post("/{id}/comments/{commentID}/clear", h.HandleClearComment)

	return r
}
