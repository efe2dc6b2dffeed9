// internal/app/features/events/comments.go
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type commentRequest struct {
	Text string `json:"text"`
}

// decodeCommentText sanitizes and bounds comment and reply bodies.
func decodeCommentText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req commentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return "", false
	}
	text := sanitize.Rich(req.Text)
	if strings.TrimSpace(text) == "" {
		apierr.BadRequest(w, "text is required")
		return "", false
	}
	if len(text) > limits.MaxCommentLength {
		apierr.BadRequest(w, "comment is too long")
		return "", false
	}
	return text, true
}

func commentID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentID"))
	if err != nil {
		apierr.BadRequest(w, "invalid comment id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleAddComment handles POST /events/{id}/comments. Unmuted
// attendees only.
func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cid, err := h.Events.AddComment(ctx, id, user.ID, text)
	if err != nil {
		h.writeEventError(w, "add comment", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"comment_id": cid.Hex()})
}

// HandleEditComment handles PATCH /events/{id}/comments/{commentID}.
// Author-only, and refused once the organizer has cleared the comment.
func (h *Handler) HandleEditComment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	cid, ok := commentID(w, r)
	if !ok {
		return
	}
	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.EditComment(ctx, id, cid, user.ID, text); err != nil {
		h.writeEventError(w, "edit comment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddReply handles POST /events/{id}/comments/{commentID}/replies.
func (h *Handler) HandleAddReply(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	cid, ok := commentID(w, r)
	if !ok {
		return
	}
	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rid, err := h.Events.AddReply(ctx, id, cid, user.ID, text)
	if err != nil {
		h.writeEventError(w, "add reply", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"reply_id": rid.Hex()})
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// HandleReportComment handles POST
// /events/{id}/comments/{commentID}/report. Any signed-in user may
// report; re-reporting overwrites the reporter's reason.
func (h *Handler) HandleReportComment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	cid, ok := commentID(w, r)
	if !ok {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	reason := sanitize.Plain(req.Reason)
	if strings.TrimSpace(reason) == "" {
		apierr.BadRequest(w, "reason is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Events.ReportInfraction(ctx, id, cid, user.ID, reason); err != nil {
		h.writeEventError(w, "report comment", err)
		return
	}

	h.Log.Info("comment reported",
		zap.String("event_id", id.Hex()),
		zap.String("comment_id", cid.Hex()),
		zap.String("reporter_id", user.ID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

type clearRequest struct {
	MuteAuthor bool `json:"mute_author,omitempty"`
}

// HandleClearComment handles POST
// /events/{id}/comments/{commentID}/clear. Organizer-only: the body is
// replaced with the deletion notice, replies are wiped, and the comment
// is locked. With mute_author the author also loses comment and reply
// rights on the event.
func (h *Handler) HandleClearComment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	cid, ok := commentID(w, r)
	if !ok {
		return
	}

	var req clearRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
			apierr.BadRequest(w, "invalid JSON body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, ok := h.requireOrganizer(ctx, w, id, user.ID); !ok {
		return
	}

	var err error
	if req.MuteAuthor {
		err = h.Events.ClearCommentAndMute(ctx, id, cid)
	} else {
		err = h.Events.ClearComment(ctx, id, cid)
	}
	if err != nil {
		h.writeEventError(w, "clear comment", err)
		return
	}

	h.Log.Info("comment cleared",
		zap.String("event_id", id.Hex()),
		zap.String("comment_id", cid.Hex()),
		zap.Bool("muted_author", req.MuteAuthor))

	w.WriteHeader(http.StatusNoContent)
}
