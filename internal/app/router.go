package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/delivery"
	"github.com/mandalnilabja/drawgate/internal/transport/http/middleware"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	Logger     *slog.Logger
	AdminToken string

	// ImagesDir is served at /images/ when set (url delivery mode).
	ImagesDir string

	// Metrics receives per-route request observations when set.
	Metrics middleware.HTTPRecorder
}

// NewRouter creates and configures the HTTP router with all application routes.
// Returns an http.Handler with middleware applied.
func NewRouter(repo *Repo, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /api/health", repo.Infra.HealthCheck)
	mux.HandleFunc("GET /metrics", repo.Infra.ServeMetrics)

	// Generation, plus the paths older deployments exposed
	generateHandler := repo.Generate.Generate
	mux.HandleFunc("POST /api/generate", generateHandler)
	mux.HandleFunc("GET /api/generate", generateHandler)
	mux.HandleFunc("POST /api/gemini-draw", generateHandler)
	mux.HandleFunc("POST /generate_image", generateHandler)
	mux.HandleFunc("GET /generate-image", generateHandler)

	// Stored image retrieval
	if opts.ImagesDir != "" {
		mux.Handle("GET "+delivery.ImagesPath, http.StripPrefix(delivery.ImagesPath, fileServer(opts.ImagesDir)))
	}
	if repo.Images != nil {
		mux.HandleFunc("GET "+delivery.KeyedImagesPath+"{key}", repo.Images.GetImage)
	}

	registerAdminRoutes(mux, repo, opts)

	// Root returns JSON status
	mux.HandleFunc("GET /{$}", repo.Infra.RootStatus)

	// Apply middleware chain (order: outer to inner)
	var h http.Handler = mux

	// Metrics must sit directly on the mux to see the matched pattern
	if opts.Metrics != nil {
		h = middleware.Metrics(opts.Metrics)(h)
	}

	// Request logging (if logger provided)
	if opts.Logger != nil {
		h = middleware.RequestLogger(opts.Logger)(h)
	}

	// Request ID (always applied)
	h = middleware.RequestID(h)

	// CORS (always applied so browser clients can call the API)
	h = middleware.CORS(h)

	return h
}

// registerAdminRoutes adds the request log routes behind the admin token.
func registerAdminRoutes(mux *http.ServeMux, repo *Repo, opts *RouterOptions) {
	adminAuth := middleware.AdminAuth(opts.AdminToken)

	withAuth := func(h http.HandlerFunc) http.Handler {
		return adminAuth(h)
	}

	mux.Handle("GET /api/admin/logs", withAuth(repo.Admin.GetRequestLogs))
	mux.Handle("DELETE /api/admin/logs", withAuth(repo.Admin.DeleteRequestLogs))
	mux.Handle("GET /api/admin/stats", withAuth(repo.Admin.GetUsageStats))
	mux.Handle("GET /api/admin/info", withAuth(repo.Admin.AdminInfo))
}

// fileServer serves files from dir without directory listings.
func fileServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
