// Package mongo is the document-store Storage backend. One document per
// post, keyed by postId, replaced wholesale on every upsert.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/newdaksh/FB-explorer/pkg/models"
	"github.com/newdaksh/FB-explorer/pkg/storage"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")
)

const collName = "my_posts"

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// UpsertPost replaces the stored document for the post entirely (no merge)
// or inserts it when absent. Reports whether a new document was created.
func (s *Storage) UpsertPost(ctx context.Context, post models.StoredPost) (created bool, err error) {
	coll := s.client.Database(s.dbName).Collection(collName)

	res, err := coll.ReplaceOne(ctx,
		bson.M{"postId": post.PostID},
		post,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}

	return res.UpsertedCount > 0, nil
}

// Posts returns all stored posts sorted newest-first by creation time.
func (s *Storage) Posts(ctx context.Context) ([]models.StoredPost, error) {
	coll := s.client.Database(s.dbName).Collection(collName)
	opts := options.Find().SetSort(bson.D{{Key: "created_time", Value: -1}})

	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	posts := []models.StoredPost{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (s *Storage) Post(ctx context.Context, postID string) (models.StoredPost, error) {
	coll := s.client.Database(s.dbName).Collection(collName)

	var post models.StoredPost
	err := coll.FindOne(ctx, bson.M{"postId": postID}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StoredPost{}, storage.ErrPostNotFound
	}
	if err != nil {
		return models.StoredPost{}, err
	}

	return post, nil
}

// ensureCollection creates the posts collection and its unique postId index
// if they don't already exist.
func (s *Storage) ensureCollection(ctx context.Context) error {
	db := s.client.Database(s.dbName)

	collExists, err := collectionExists(ctx, db, collName)
	if err != nil {
		return err
	}
	if !collExists {
		if err := db.CreateCollection(ctx, collName); err != nil {
			return err
		}
	}

	_, err = db.Collection(collName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "postId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return err
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(ctx context.Context, db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
