// internal/app/store/articles/articlestore.go
package articlestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoScope is returned when an article names neither a community nor
// a space.
var ErrNoScope = errors.New("article must belong to a community or a space")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("articles")}
}

// Create inserts an article, as a draft when draft is true. Exactly one
// of communityID/spaceID scopes it; a space article still carries no
// community id of its own, callers resolve the space's parent when they
// need it.
func (s *Store) Create(ctx context.Context, authorID primitive.ObjectID, communityID, spaceID *primitive.ObjectID, title, body string, draft bool) (models.Article, error) {
	if communityID == nil && spaceID == nil {
		return models.Article{}, ErrNoScope
	}

	now := time.Now().UTC()
	article := models.Article{
		ID:          primitive.NewObjectID(),
		AuthorID:    authorID,
		CommunityID: communityID,
		SpaceID:     spaceID,
		Title:       strings.TrimSpace(title),
		TitleCI:     text.Fold(title),
		Body:        body,
		Draft:       draft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, article); err != nil {
		return models.Article{}, err
	}
	return article, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Article, error) {
	var article models.Article
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&article); err != nil {
		return models.Article{}, err
	}
	return article, nil
}

// Update rewrites title and/or body; nil pointers leave fields alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, title, body *string) (models.Article, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if title != nil && strings.TrimSpace(*title) != "" {
		set["title"] = strings.TrimSpace(*title)
		set["title_ci"] = text.Fold(*title)
	}
	if body != nil {
		set["body"] = *body
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var article models.Article
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&article); err != nil {
		return models.Article{}, err
	}
	return article, nil
}

// Publish flips a draft live. Publishing twice is a no-op.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID) error {
	return s.setDraft(ctx, id, false)
}

// Unpublish pulls a live article back to draft, hiding it from everyone
// but the author and scope leaders.
func (s *Store) Unpublish(ctx context.Context, id primitive.ObjectID) error {
	return s.setDraft(ctx, id, true)
}

func (s *Store) setDraft(ctx context.Context, id primitive.ObjectID, draft bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"draft":      draft,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AddImage appends image metadata; the blob is already uploaded under
// the path convention.
func (s *Store) AddImage(ctx context.Context, id primitive.ObjectID, img models.ArticleImage) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"images": img},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveImage drops the image metadata entry; blob deletion is the
// caller's job.
func (s *Store) RemoveImage(ctx context.Context, id, imageID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"images": bson.M{"id": imageID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByCommunity returns published community articles, newest first,
// keyset-paged by descending _id. Drafts are excluded unless authorID
// matches (authors see their own drafts).
func (s *Store) ListByCommunity(ctx context.Context, communityID primitive.ObjectID, viewerID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Article, error) {
	return s.list(ctx, bson.M{"community_id": communityID}, viewerID, after, limit)
}

// ListBySpace returns published space articles the same way.
func (s *Store) ListBySpace(ctx context.Context, spaceID primitive.ObjectID, viewerID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Article, error) {
	return s.list(ctx, bson.M{"space_id": spaceID}, viewerID, after, limit)
}

func (s *Store) list(ctx context.Context, scope bson.M, viewerID primitive.ObjectID, after primitive.ObjectID, limit int) ([]models.Article, error) {
	visible := bson.M{"$or": bson.A{
		bson.M{"draft": false},
		bson.M{"author_id": viewerID},
	}}
	filter := bson.M{"$and": bson.A{scope, visible}}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$lt": after}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var articles []models.Article
	if err := cur.All(ctx, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// IDsAndImagesByScope returns article ids plus image blob paths for
// cascade teardown. field is "community_id" or "space_id".
func (s *Store) IDsAndImagesByScope(ctx context.Context, field string, scopeID primitive.ObjectID) ([]primitive.ObjectID, []string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "images": 1})
	cur, err := s.c.Find(ctx, bson.M{field: scopeID}, opts)
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID     primitive.ObjectID    `bson:"_id"`
		Images []models.ArticleImage `bson:"images"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, nil, err
	}

	ids := make([]primitive.ObjectID, len(rows))
	var paths []string
	for i, r := range rows {
		ids[i] = r.ID
		for _, img := range r.Images {
			paths = append(paths, img.Path)
		}
	}
	return ids, paths, nil
}

// DeleteByIDs removes article documents in bulk; the caller chunks the
// ids to the bulk-write ceiling.
func (s *Store) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Delete removes one article document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
