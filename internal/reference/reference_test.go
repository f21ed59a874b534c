package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandalnilabja/drawgate/internal/types"
)

func TestFetchReturnsBytesAndMediaType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write([]byte("\x89PNG reference"))
	}))
	defer srv.Close()

	ref, err := New(Options{}).Fetch(context.Background(), srv.URL+"/ref.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG reference"), ref.Data)
	assert.Equal(t, "image/png", ref.MediaType)
}

func TestFetchDefaultsMediaType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress net/http's sniffed default.
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	ref, err := New(Options{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultMediaType, ref.MediaType)
}

func TestFetchFailures(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()

	large := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer large.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	testCases := []struct {
		name string
		opts Options
		url  string
	}{
		{name: "not found", url: notFound.URL},
		{name: "too large", opts: Options{MaxBytes: 1024}, url: large.URL},
		{name: "timeout", opts: Options{Timeout: 50 * time.Millisecond}, url: slow.URL},
		{name: "relative url", url: "/images/a.png"},
		{name: "unsupported scheme", url: "ftp://example.com/a.png"},
		{name: "unreachable", url: "http://127.0.0.1:1/a.png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := New(tc.opts).Fetch(context.Background(), tc.url)
			assert.Nil(t, ref)
			assert.Equal(t, types.KindReferenceUnavailable, types.KindOf(err))
		})
	}
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://example.com/cat.jpg"))
	assert.True(t, ValidURL("http://localhost:8080/a"))
	assert.False(t, ValidURL("example.com/cat.jpg"))
	assert.False(t, ValidURL("file:///etc/passwd"))
	assert.False(t, ValidURL("https://"))
	assert.False(t, ValidURL(""))
}
