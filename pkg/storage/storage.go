// Package storage defines the document store contract behind the
// persistence relay: full-refresh upserts keyed by post ID and reads sorted
// newest-first.
package storage

import (
	"context"
	"fmt"

	"github.com/newdaksh/FB-explorer/pkg/models"
)

var (
	ErrPostNotFound    = fmt.Errorf("post not found")
	ErrDBNotResponding = fmt.Errorf("DB not responding")
)

// Storage is implemented by the mongo, postgres and memdb backends.
type Storage interface {
	// UpsertPost replaces the stored document for post.PostID entirely, or
	// inserts it. Reports whether a new document was created.
	UpsertPost(ctx context.Context, post models.StoredPost) (created bool, err error)

	// Posts returns every stored post sorted newest-first by creation time.
	Posts(ctx context.Context) ([]models.StoredPost, error)

	// Post returns one stored post or ErrPostNotFound.
	Post(ctx context.Context, postID string) (models.StoredPost, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
