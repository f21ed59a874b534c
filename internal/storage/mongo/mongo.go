// Package mongo provides the MongoDB image and request log store.
package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mandalnilabja/drawgate/internal/storage"
)

const (
	imagesCollection = "images"
	logsCollection   = "request_logs"
)

// Storage implements storage.Backend on MongoDB. Each image is one document.
type Storage struct {
	client *mongo.Client
	images *mongo.Collection
	logs   *mongo.Collection
	mu     sync.RWMutex
	closed bool
}

// Open connects to uri, pings the server and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Storage{
		client: client,
		images: db.Collection(imagesCollection),
		logs:   db.Collection(logsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.images.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.logs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "error_kind", Value: 1}}},
	})
	return err
}

// Close disconnects the client
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Storage) checkOpen() error {
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

var _ storage.Backend = (*Storage)(nil)
