// Package memdb is the in-memory Storage backend used in development mode
// and as the test double for the persistence relay.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/newdaksh/FB-explorer/pkg/models"
	"github.com/newdaksh/FB-explorer/pkg/storage"
)

type Store struct {
	mu    sync.Mutex
	posts map[string]models.StoredPost
}

func New() *Store {
	return &Store{
		posts: make(map[string]models.StoredPost),
	}
}

func (db *Store) UpsertPost(ctx context.Context, post models.StoredPost) (created bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, exists := db.posts[post.PostID]
	db.posts[post.PostID] = post

	return !exists, nil
}

func (db *Store) Posts(ctx context.Context) ([]models.StoredPost, error) {
	db.mu.Lock()
	allPosts := make([]models.StoredPost, 0, len(db.posts))
	for _, p := range db.posts {
		allPosts = append(allPosts, p)
	}
	db.mu.Unlock()

	// Creation times are upstream timestamp strings (RFC 3339), so the
	// lexicographic order is the chronological order.
	sort.Slice(allPosts, func(i, j int) bool {
		return allPosts[i].CreatedTime > allPosts[j].CreatedTime
	})

	return allPosts, nil
}

func (db *Store) Post(ctx context.Context, postID string) (models.StoredPost, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[postID]
	if !ok {
		return models.StoredPost{}, storage.ErrPostNotFound
	}

	return post, nil
}

func (db *Store) Ping(ctx context.Context) error {
	return nil
}

func (db *Store) Close(ctx context.Context) error {
	return nil
}
