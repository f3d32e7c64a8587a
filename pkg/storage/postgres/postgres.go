// Package postgres is the relational Storage backend. The nested comment
// and attachment lists live in JSONB columns, so the document shape matches
// the mongo backend record for record.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/newdaksh/FB-explorer/pkg/models"
	"github.com/newdaksh/FB-explorer/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	post_id       TEXT PRIMARY KEY,
	message       TEXT NOT NULL DEFAULT '',
	created_time  TEXT NOT NULL,
	comment_count INT NOT NULL DEFAULT 0,
	comments      JSONB NOT NULL DEFAULT '[]',
	attachments   JSONB NOT NULL DEFAULT '[]',
	last_updated  TIMESTAMPTZ NOT NULL
);
`

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}

// UpsertPost inserts the post document or replaces the existing row
// entirely. Reports whether a new row was created; `xmax = 0` is true only
// for freshly inserted rows.
func (s *Store) UpsertPost(ctx context.Context, post models.StoredPost) (created bool, err error) {
	comments, err := json.Marshal(post.Comments)
	if err != nil {
		return false, err
	}
	attachments, err := json.Marshal(post.Attachments)
	if err != nil {
		return false, err
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO posts (post_id, message, created_time, comment_count, comments, attachments, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (post_id)
		DO UPDATE SET
			message = EXCLUDED.message,
			created_time = EXCLUDED.created_time,
			comment_count = EXCLUDED.comment_count,
			comments = EXCLUDED.comments,
			attachments = EXCLUDED.attachments,
			last_updated = EXCLUDED.last_updated
		RETURNING (xmax = 0)
	`,
		post.PostID,
		post.Message,
		post.CreatedTime,
		post.CommentCount,
		comments,
		attachments,
		post.LastUpdated,
	).Scan(&created)
	if err != nil {
		return false, err
	}

	return created, nil
}

// Posts returns all stored posts sorted newest-first by creation time.
func (s *Store) Posts(ctx context.Context) ([]models.StoredPost, error) {
	rows, err := s.db.Query(ctx, `
		SELECT post_id, message, created_time, comment_count, comments, attachments, last_updated
		FROM posts
		ORDER BY created_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.StoredPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

func (s *Store) Post(ctx context.Context, postID string) (models.StoredPost, error) {
	row := s.db.QueryRow(ctx, `
		SELECT post_id, message, created_time, comment_count, comments, attachments, last_updated
		FROM posts
		WHERE post_id = $1
	`, postID)

	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StoredPost{}, storage.ErrPostNotFound
	}
	if err != nil {
		return models.StoredPost{}, err
	}

	return post, nil
}

func scanPost(row pgx.Row) (models.StoredPost, error) {
	var (
		post        models.StoredPost
		comments    []byte
		attachments []byte
	)

	err := row.Scan(
		&post.PostID,
		&post.Message,
		&post.CreatedTime,
		&post.CommentCount,
		&comments,
		&attachments,
		&post.LastUpdated,
	)
	if err != nil {
		return models.StoredPost{}, err
	}

	if err := json.Unmarshal(comments, &post.Comments); err != nil {
		return models.StoredPost{}, err
	}
	if err := json.Unmarshal(attachments, &post.Attachments); err != nil {
		return models.StoredPost{}, err
	}

	return post, nil
}
