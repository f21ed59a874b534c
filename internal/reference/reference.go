// Package reference downloads the optional reference image of a generation request.
package reference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/mandalnilabja/drawgate/internal/types"
)

const (
	// DefaultTimeout bounds a single reference download.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxBytes caps the size of a reference image.
	DefaultMaxBytes int64 = 20 << 20

	// DefaultMediaType is used when the server sends no Content-Type.
	DefaultMediaType = "image/jpeg"
)

// Fetcher performs one GET per reference with no retries.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		maxBytes: opts.MaxBytes,
	}
}

// ValidURL reports whether raw is an absolute http or https URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads the image at rawURL. Every failure is a
// KindReferenceUnavailable error and returns no bytes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*types.ReferenceImage, error) {
	if !ValidURL(rawURL) {
		return nil, unavailable("reference must be an absolute http or https URL", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, unavailable("invalid reference URL", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, unavailable("reference download timed out", err)
		}
		return nil, unavailable("reference download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(fmt.Sprintf("reference returned status %d", resp.StatusCode), nil)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, unavailable("reference image too large", nil)
	}

	// Read one byte past the cap to detect oversize bodies without a Content-Length.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, unavailable("reference download failed", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, unavailable("reference image too large", nil)
	}

	return &types.ReferenceImage{
		Data:      data,
		MediaType: mediaType(resp.Header.Get("Content-Type")),
	}, nil
}

// mediaType strips parameters from a Content-Type header.
func mediaType(header string) string {
	if header == "" {
		return DefaultMediaType
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" {
		return DefaultMediaType
	}
	return mt
}

func unavailable(msg string, err error) *types.Error {
	return types.NewError(types.KindReferenceUnavailable, msg, err)
}
