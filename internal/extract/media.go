package extract

import (
	"bytes"
	"image"
	"net/http"
	"strings"

	// Register decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultMediaType is reported when the bytes are not recognized.
const DefaultMediaType = "image/png"

// SniffMediaType identifies the image format of data.
func SniffMediaType(data []byte) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return "image/" + format
	}
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return DefaultMediaType
}
