// internal/app/system/limits/limits.go
package limits

// Request body size limits. These keep oversized client payloads from
// exhausting memory.
const (
	// MaxJSONBody caps ordinary JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxImageUpload caps multipart image uploads (community photos,
	// event images, article images).
	MaxImageUpload = 10 << 20 // 10 MB

	// MaxCommentLength caps comment and reply text, in bytes, after
	// sanitation.
	MaxCommentLength = 4 << 10 // 4 KB

	// BulkWriteChunk is the store's per-batch operation ceiling. Bulk
	// deletes flush every BulkWriteChunk operations.
	BulkWriteChunk = 500

	// InQueryChunk is the store-side ceiling on $in filter values.
	InQueryChunk = 30
)
