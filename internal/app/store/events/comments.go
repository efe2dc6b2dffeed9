// internal/app/store/events/comments.go
package eventstore

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddComment posts a comment. Only unmuted attendees may comment; the
// handler sanitizes the text before it gets here.
func (s *Store) AddComment(ctx context.Context, eventID, authorID primitive.ObjectID, textBody string) (primitive.ObjectID, error) {
	commentID := primitive.NewObjectID()
	err := s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		att, ok := e.Attendees[authorID.Hex()]
		if !ok {
			return nil, ErrNotAttending
		}
		if att.Muted {
			return nil, ErrMuted
		}

		comment := models.Comment{
			ID:         commentID,
			AuthorID:   authorID,
			Text:       textBody,
			IsEditable: true,
			Replies:    []models.Reply{},
			CreatedAt:  time.Now().UTC(),
		}
		return bson.M{"$push": bson.M{"comments": comment}}, nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return commentID, nil
}

// EditComment rewrites the comment body. Author-only, and refused once
// the organizer has cleared the comment (IsEditable stays false for
// good).
func (s *Store) EditComment(ctx context.Context, eventID, commentID, authorID primitive.ObjectID, textBody string) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		idx, comment := findComment(e, commentID)
		if idx < 0 {
			return nil, ErrCommentNotFound
		}
		if comment.AuthorID != authorID {
			return nil, ErrNotAuthor
		}
		if !comment.IsEditable {
			return nil, ErrCommentLocked
		}

		now := time.Now().UTC()
		prefix := "comments." + strconv.Itoa(idx)
		return bson.M{"$set": bson.M{
			prefix + ".text":      textBody,
			prefix + ".edited_at": now,
		}}, nil
	})
}

// AddReply appends a reply to a comment. Muted attendees cannot reply;
// replies to a cleared comment are refused.
func (s *Store) AddReply(ctx context.Context, eventID, commentID, authorID primitive.ObjectID, textBody string) (primitive.ObjectID, error) {
	replyID := primitive.NewObjectID()
	err := s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		att, ok := e.Attendees[authorID.Hex()]
		if !ok {
			return nil, ErrNotAttending
		}
		if att.Muted {
			return nil, ErrMuted
		}
		idx, comment := findComment(e, commentID)
		if idx < 0 {
			return nil, ErrCommentNotFound
		}
		if !comment.IsEditable {
			return nil, ErrCommentLocked
		}

		reply := models.Reply{
			ID:        replyID,
			AuthorID:  authorID,
			Text:      textBody,
			CreatedAt: time.Now().UTC(),
		}
		return bson.M{"$push": bson.M{"comments." + strconv.Itoa(idx) + ".replies": reply}}, nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return replyID, nil
}

// ReportInfraction records one reporter's reason against a comment.
// Re-reporting overwrites the reporter's previous reason.
func (s *Store) ReportInfraction(ctx context.Context, eventID, commentID, reporterID primitive.ObjectID, reason string) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		idx, _ := findComment(e, commentID)
		if idx < 0 {
			return nil, ErrCommentNotFound
		}
		field := "comments." + strconv.Itoa(idx) + ".infractions." + reporterID.Hex()
		return bson.M{"$set": bson.M{field: reason}}, nil
	})
}

// ClearComment redacts a reported comment: the body is replaced with
// the fixed deletion notice, replies are wiped, and the comment is
// locked against further edits. Organizer-only.
func (s *Store) ClearComment(ctx context.Context, eventID, commentID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		return clearUpdate(e, commentID)
	})
}

// ClearCommentAndMute clears the comment and additionally mutes its
// author on the event, blocking future comments and replies.
// Organizer-only.
func (s *Store) ClearCommentAndMute(ctx context.Context, eventID, commentID primitive.ObjectID) error {
	return s.mutate(ctx, eventID, func(e *models.Event) (bson.M, error) {
		update, err := clearUpdate(e, commentID)
		if err != nil {
			return nil, err
		}
		_, comment := findComment(e, commentID)
		authorKey := comment.AuthorID.Hex()
		if _, ok := e.Attendees[authorKey]; ok {
			update["$set"].(bson.M)["attendees."+authorKey+".muted"] = true
		}
		return update, nil
	})
}

func clearUpdate(e *models.Event, commentID primitive.ObjectID) (bson.M, error) {
	idx, _ := findComment(e, commentID)
	if idx < 0 {
		return nil, ErrCommentNotFound
	}
	prefix := "comments." + strconv.Itoa(idx)
	return bson.M{"$set": bson.M{
		prefix + ".text":        models.ClearedCommentText,
		prefix + ".replies":     []models.Reply{},
		prefix + ".is_editable": false,
	}}, nil
}

func findComment(e *models.Event, commentID primitive.ObjectID) (int, *models.Comment) {
	for i := range e.Comments {
		if e.Comments[i].ID == commentID {
			return i, &e.Comments[i]
		}
	}
	return -1, nil
}
