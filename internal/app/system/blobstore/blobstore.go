// internal/app/system/blobstore/blobstore.go

// Package blobstore builds the file storage backend and owns the image
// path convention. Paths are derived from entity ids so cascade deletes
// can reconstruct them without reading blob metadata.
package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// New builds the storage backend from config. Only the local backend is
// wired; the path/URL pair mirrors the storage_local_* config keys.
func New(localPath, localURL string) (storage.Store, error) {
	return storage.NewLocal(storage.LocalConfig{BasePath: localPath, BaseURL: localURL})
}

// ImagePath builds "{entityType}/{subtype}/{parentID}/{childID}.jpg".
// entityType is "community", "space", "event", or "article"; subtype
// distinguishes image roles ("photo", "gallery", ...).
func ImagePath(entityType, subtype string, parentID, childID primitive.ObjectID) string {
	return fmt.Sprintf("%s/%s/%s/%s.jpg", entityType, subtype, parentID.Hex(), childID.Hex())
}

// PutImage stores one image under the path convention and returns the
// path for embedding in the owning document.
func PutImage(ctx context.Context, store storage.Store, entityType, subtype string, parentID, childID primitive.ObjectID, r io.Reader, contentType string) (string, error) {
	path := ImagePath(entityType, subtype, parentID, childID)
	opts := &storage.PutOptions{ContentType: contentType}
	if err := store.Put(ctx, path, r, opts); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return path, nil
}

// DeleteAll removes the given blob paths, logging and continuing on
// individual failures. Returns how many deletes failed. Cascade callers
// treat failures as non-fatal; the janitor sweeps what is left behind.
func DeleteAll(ctx context.Context, store storage.Store, log *zap.Logger, paths []string) int {
	failed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := store.Delete(ctx, p); err != nil {
			failed++
			log.Warn("blob delete failed", zap.String("path", p), zap.Error(err))
		}
	}
	return failed
}
