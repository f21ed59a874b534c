// Package delivery writes a generation result in the deployment's response shape.
package delivery

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/types"
)

// Mode is a delivery shape. Exactly one is active per deployment.
type Mode string

const (
	// ModeRaw returns the image bytes as the response body.
	ModeRaw Mode = "raw"
	// ModeURL stores a file and returns its public URL.
	ModeURL Mode = "url"
	// ModeKey stores a database record and returns its key and lookup URL.
	ModeKey Mode = "key"
	// ModeDataURI returns the image inline as a data: URI.
	ModeDataURI Mode = "datauri"
)

const (
	// ImagesPath serves stored files in url mode.
	ImagesPath = "/images/"
	// KeyedImagesPath serves stored records in key mode.
	KeyedImagesPath = "/api/images/"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRaw, ModeURL, ModeKey, ModeDataURI:
		return m, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}

// Responder writes results in one fixed mode.
type Responder struct {
	mode          Mode
	publicBaseURL string
}

// New creates a Responder. publicBaseURL, if set, overrides the base URL
// derived from request headers.
func New(mode Mode, publicBaseURL string) *Responder {
	return &Responder{
		mode:          mode,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Mode returns the active mode.
func (r *Responder) Mode() Mode {
	return r.mode
}

// NeedsStore reports whether results must be persisted before responding.
func (r *Responder) NeedsStore() bool {
	return r.mode == ModeURL || r.mode == ModeKey
}

// Respond writes res to w.
func (r *Responder) Respond(w http.ResponseWriter, req *http.Request, res *types.GenerationResult) {
	switch r.mode {
	case ModeURL:
		writeJSON(w, types.ImageURLResponse{
			Image: r.BaseURL(req) + ImagesPath + res.Key,
		})
	case ModeKey:
		writeJSON(w, types.ImageKeyResponse{
			Key:   res.Key,
			Image: r.BaseURL(req) + KeyedImagesPath + res.Key,
		})
	case ModeDataURI:
		writeJSON(w, types.ImageDataURIResponse{
			ImageURL: DataURI(res.MediaType, res.Data),
			Message:  "Image generated successfully",
		})
	default:
		WriteImage(w, res.MediaType, res.Data)
	}
}

// BaseURL returns scheme://host for links in responses.
func (r *Responder) BaseURL(req *http.Request) string {
	if r.publicBaseURL != "" {
		return r.publicBaseURL
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := firstValue(req.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}

	host := req.Host
	if fwd := firstValue(req.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

// DataURI encodes data as a data: URI.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// WriteImage writes raw image bytes.
func WriteImage(w http.ResponseWriter, mediaType string, data []byte) {
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// firstValue returns the first entry of a comma-separated proxy header.
func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
