// Package filesystem stores generated images as files under a served directory.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// FilePrefix starts every stored filename.
const FilePrefix = "gemini_"

// Store writes images to dir. It never overwrites an existing file and
// never reads files back; the HTTP layer serves dir directly.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created, or
// recreated, on save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes img and returns its filename. Names are
// gemini_<UUIDv7>.<ext>, so concurrent saves in the same millisecond
// still get distinct names.
func (s *Store) Save(ctx context.Context, img *models.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", storage.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	name := FilePrefix + id.String() + "." + Extension(img.MediaType)

	if err := writeNew(filepath.Join(s.dir, name), img.Data); err != nil {
		return "", err
	}
	return name, nil
}

// writeNew durably writes data to path, failing if path already exists.
func writeNew(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod image: %w", err)
	}

	// Link fails with EEXIST rather than replacing an existing file.
	if err := os.Link(tmpName, path); err != nil {
		return fmt.Errorf("publish image: %w", err)
	}
	return nil
}

// Extension maps a media type to a file extension, defaulting to png.
func Extension(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

var _ storage.ImageStore = (*Store)(nil)
