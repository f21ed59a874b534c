package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// Save inserts img as a new document under a fresh random key.
func (s *Storage) Save(ctx context.Context, img *models.Image) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return "", err
	}

	key, err := storage.GenerateImageKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	if err := storage.Prepare(img, key); err != nil {
		return "", err
	}

	if _, err := s.images.InsertOne(ctx, img); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)
		}
		return "", fmt.Errorf("insert image: %w", err)
	}
	return key, nil
}

// Load retrieves an image document by key
func (s *Storage) Load(ctx context.Context, key string) (*models.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !storage.ValidImageKey(key) {
		return nil, storage.ErrNotFound
	}

	var img models.Image
	err := s.images.FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&img)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	if err := storage.VerifyDigest(&img); err != nil {
		return nil, err
	}
	return &img, nil
}
