// Package images serves stored images by key.
package images

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/delivery"
	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// Handlers holds the dependencies for image retrieval handlers.
type Handlers struct {
	Loader storage.ImageLoader
	Logger *slog.Logger
}

// New creates a new instance of image handlers.
func New(loader storage.ImageLoader, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Loader: loader, Logger: logger}
}

// GetImage handles GET /api/images/{key}.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	img, err := h.Loader.Load(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		shared.WriteJSONError(w, "image not found", types.KindNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("failed to load image", "key", key, "error", err)
		shared.WriteJSONError(w, "failed to load image", types.KindStorageFailure, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if img.Digest != "" {
		etag := `"` + img.Digest + `"`
		w.Header().Set("ETag", etag)
		if matchesETag(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	delivery.WriteImage(w, img.MediaType, img.Data)
}

// matchesETag reports whether an If-None-Match header lists etag.
func matchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
