// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the default number of rows returned by paged list
// endpoints.
const PageSize = 50

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 200

// ParseLimit extracts the "limit" query parameter, clamped to
// [1, MaxPageSize]. Missing or invalid values fall back to PageSize.
func ParseLimit(r *http.Request) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return PageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// ParseAfter extracts the "after" cursor (an object id hex) for keyset
// pagination. Returns false when absent or malformed.
func ParseAfter(r *http.Request) (primitive.ObjectID, bool) {
	s := r.URL.Query().Get("after")
	if s == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// LimitPlusOne returns limit+1 for look-ahead pagination (fetch one
// extra row to detect hasNext).
func LimitPlusOne(limit int) int { return limit + 1 }

// Trim cuts a look-ahead slice down to limit rows. Returns the trimmed
// slice and whether a further page exists.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// ChunkIn splits ids into chunks no larger than the store's $in value
// ceiling. The store rejects $in filters above the ceiling, so callers
// must issue one query per chunk and merge.
func ChunkIn(ids []primitive.ObjectID) [][]primitive.ObjectID {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]primitive.ObjectID
	for len(ids) > limits.InQueryChunk {
		chunks = append(chunks, ids[:limits.InQueryChunk])
		ids = ids[limits.InQueryChunk:]
	}
	return append(chunks, ids)
}
