package storage

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// Digest returns the hex blake2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest checks img.Data against its recorded digest.
func VerifyDigest(img *models.Image) error {
	if img.Digest == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(Digest(img.Data)), []byte(img.Digest)) != 1 {
		return fmt.Errorf("%w: key %s", ErrIntegrity, img.Key)
	}
	return nil
}

// Prepare fills the derived fields of an image about to be saved.
// The caller-supplied Key is always discarded.
func Prepare(img *models.Image, key string) error {
	if img == nil || len(img.Data) == 0 {
		return ErrInvalidInput
	}
	img.Key = key
	img.Size = int64(len(img.Data))
	img.Digest = Digest(img.Data)
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	return nil
}
