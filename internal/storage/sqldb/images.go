package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// Save inserts img under a fresh random key and returns that key.
func (s *Storage) Save(ctx context.Context, img *models.Image) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", storage.ErrStorageClosed
	}

	key, err := storage.GenerateImageKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	if err := storage.Prepare(img, key); err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO images (image_key, prompt, data, media_type, size, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), img.Key, img.Prompt, img.Data, img.MediaType, img.Size, img.Digest, img.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert image: %w", err)
	}

	return key, nil
}

// Load retrieves an image by key
func (s *Storage) Load(ctx context.Context, key string) (*models.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if !storage.ValidImageKey(key) {
		return nil, storage.ErrNotFound
	}

	var img models.Image
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT image_key, prompt, data, media_type, size, digest, created_at
		FROM images WHERE image_key = ?
	`), key).Scan(&img.Key, &img.Prompt, &img.Data, &img.MediaType, &img.Size, &img.Digest, &img.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
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
