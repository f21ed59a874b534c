package storage

import (
	"crypto/rand"
	"encoding/hex"
)

// ImageKeyBytes is the number of random bytes behind every image key.
const ImageKeyBytes = 16

// ImageKeyLength is the length of a hex-encoded image key.
const ImageKeyLength = ImageKeyBytes * 2

// GenerateImageKey creates a new random image key, independent of any caller input.
func GenerateImageKey() (string, error) {
	b, err := GenerateRandomBytes(ImageKeyBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidImageKey reports whether key has the shape GenerateImageKey produces.
func ValidImageKey(key string) bool {
	if len(key) != ImageKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// GenerateRandomBytes generates cryptographically secure random bytes
func GenerateRandomBytes(n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
