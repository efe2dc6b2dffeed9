// internal/domain/models/article.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article is a post attached to a community or a space. Drafts are
// visible to their author only.
type Article struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	AuthorID    primitive.ObjectID  `bson:"author_id" json:"author_id"`
	CommunityID *primitive.ObjectID `bson:"community_id,omitempty" json:"community_id,omitempty"`
	SpaceID     *primitive.ObjectID `bson:"space_id,omitempty" json:"space_id,omitempty"`
	Title       string              `bson:"title" json:"title"`
	TitleCI     string              `bson:"title_ci" json:"-"`
	Body        string              `bson:"body" json:"body"`
	Draft       bool                `bson:"draft" json:"draft"`
	Images      []ArticleImage      `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// ArticleImage is embedded image metadata; Path follows the blob store
// path convention so deletes can be reconstructed from ids.
type ArticleImage struct {
	ID      primitive.ObjectID `bson:"id" json:"id"`
	Path    string             `bson:"path" json:"path"`
	Caption string             `bson:"caption,omitempty" json:"caption,omitempty"`
}
