// internal/app/store/cascade/cascade.go

// Package cascade tears down an entity and everything under it in a
// fixed order: memberships first, then blobs, then child documents in
// chunks, and the entity document itself last. The parent stays
// resolvable until its children are gone, so a crash mid-cascade leaves
// orphans that point at a still-existing parent and the janitor can
// finish the job.
package cascade

import (
	"context"

	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Deleter struct {
	memberships *membershipstore.Store
	communities *communitystore.Store
	spaces      *spacestore.Store
	events      *eventstore.Store
	articles    *articlestore.Store
	blobs       storage.Store
	log         *zap.Logger
}

func New(
	memberships *membershipstore.Store,
	communities *communitystore.Store,
	spaces *spacestore.Store,
	events *eventstore.Store,
	articles *articlestore.Store,
	blobs storage.Store,
	log *zap.Logger,
) *Deleter {
	return &Deleter{
		memberships: memberships,
		communities: communities,
		spaces:      spaces,
		events:      events,
		articles:    articles,
		blobs:       blobs,
		log:         log,
	}
}

// DeleteCommunity removes a community, its spaces, their events and
// articles, every related membership, and all blobs.
func (d *Deleter) DeleteCommunity(ctx context.Context, communityID primitive.ObjectID) error {
	// One sweep takes the community's and its spaces' memberships.
	if _, err := d.memberships.DeleteByCommunity(ctx, communityID); err != nil {
		return err
	}

	spaceIDs, err := d.spaces.IDsByCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	for _, spaceID := range spaceIDs {
		if err := d.deleteSpaceChildren(ctx, spaceID); err != nil {
			return err
		}
	}

	if err := d.deleteScopedChildren(ctx, "community_id", communityID); err != nil {
		return err
	}

	if _, err := d.spaces.DeleteByCommunity(ctx, communityID); err != nil {
		return err
	}

	community, err := d.communities.GetByID(ctx, communityID)
	switch {
	case err != nil:
		// Log and continue like every other partial-failure step; the
		// photo blob becomes janitor work.
		d.log.Warn("community lookup for photo cleanup failed",
			zap.String("community_id", communityID.Hex()),
			zap.Error(err))
	case community.PhotoPath != "":
		blobstore.DeleteAll(ctx, d.blobs, d.log, []string{community.PhotoPath})
	}

	// The community document goes last.
	n, err := d.communities.Delete(ctx, communityID)
	if err != nil {
		return err
	}
	d.log.Info("community cascade complete",
		zap.String("community_id", communityID.Hex()),
		zap.Int("spaces", len(spaceIDs)),
		zap.Int64("deleted", n))
	return nil
}

// DeleteSpace removes a space, its events and articles, its
// memberships, and all blobs.
func (d *Deleter) DeleteSpace(ctx context.Context, spaceID primitive.ObjectID) error {
	if _, err := d.memberships.DeleteByEntity(ctx, models.EntitySpace, spaceID); err != nil {
		return err
	}

	if err := d.deleteSpaceChildren(ctx, spaceID); err != nil {
		return err
	}

	space, err := d.spaces.GetByID(ctx, spaceID)
	switch {
	case err != nil:
		d.log.Warn("space lookup for photo cleanup failed",
			zap.String("space_id", spaceID.Hex()),
			zap.Error(err))
	case space.PhotoPath != "":
		blobstore.DeleteAll(ctx, d.blobs, d.log, []string{space.PhotoPath})
	}

	n, err := d.spaces.Delete(ctx, spaceID)
	if err != nil {
		return err
	}
	d.log.Info("space cascade complete",
		zap.String("space_id", spaceID.Hex()),
		zap.Int64("deleted", n))
	return nil
}

// DeleteEvent removes one event and its image blobs.
func (d *Deleter) DeleteEvent(ctx context.Context, eventID primitive.ObjectID) error {
	event, err := d.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	// Blob failures are logged and skipped; the document delete still
	// proceeds and the janitor retries leftovers.
	blobstore.DeleteAll(ctx, d.blobs, d.log, event.ImagePaths)

	_, err = d.events.Delete(ctx, eventID)
	return err
}

// DeleteArticle removes one article and its image blobs.
func (d *Deleter) DeleteArticle(ctx context.Context, articleID primitive.ObjectID) error {
	article, err := d.articles.GetByID(ctx, articleID)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(article.Images))
	for _, img := range article.Images {
		paths = append(paths, img.Path)
	}
	blobstore.DeleteAll(ctx, d.blobs, d.log, paths)

	_, err = d.articles.Delete(ctx, articleID)
	return err
}

func (d *Deleter) deleteSpaceChildren(ctx context.Context, spaceID primitive.ObjectID) error {
	return d.deleteScopedChildren(ctx, "space_id", spaceID)
}

// deleteScopedChildren deletes the events and articles scoped by field
// (community_id or space_id): blobs first, then documents in chunks.
func (d *Deleter) deleteScopedChildren(ctx context.Context, field string, scopeID primitive.ObjectID) error {
	eventIDs, eventBlobs, err := d.events.IDsAndImagesByScope(ctx, field, scopeID)
	if err != nil {
		return err
	}
	articleIDs, articleBlobs, err := d.articles.IDsAndImagesByScope(ctx, field, scopeID)
	if err != nil {
		return err
	}

	blobstore.DeleteAll(ctx, d.blobs, d.log, append(eventBlobs, articleBlobs...))

	for _, chunk := range chunkIDs(eventIDs, limits.BulkWriteChunk) {
		if _, err := d.events.DeleteByIDs(ctx, chunk); err != nil {
			return err
		}
	}
	for _, chunk := range chunkIDs(articleIDs, limits.BulkWriteChunk) {
		if _, err := d.articles.DeleteByIDs(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func chunkIDs(ids []primitive.ObjectID, size int) [][]primitive.ObjectID {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]primitive.ObjectID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
