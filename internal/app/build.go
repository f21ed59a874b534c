package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mandalnilabja/drawgate/internal/config"
	"github.com/mandalnilabja/drawgate/internal/delivery"
	"github.com/mandalnilabja/drawgate/internal/extract"
	"github.com/mandalnilabja/drawgate/internal/metrics"
	"github.com/mandalnilabja/drawgate/internal/pipeline"
	"github.com/mandalnilabja/drawgate/internal/provider"
	"github.com/mandalnilabja/drawgate/internal/provider/gemini"
	"github.com/mandalnilabja/drawgate/internal/reference"
	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/filesystem"
	"github.com/mandalnilabja/drawgate/internal/storage/mongo"
	"github.com/mandalnilabja/drawgate/internal/storage/sqldb"
	"github.com/mandalnilabja/drawgate/internal/tokenizer"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/admin"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/generate"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/images"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/infra"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "drawgate"

// App is a fully wired gateway.
type App struct {
	Handler http.Handler
	Service *pipeline.Service
	Model   string

	backend storage.Backend
}

// Build wires every component described by cfg. The returned App owns the
// database connection, if any; call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	mode, err := delivery.ParseMode(cfg.DeliveryMode)
	if err != nil {
		return nil, err
	}
	responder := delivery.New(mode, cfg.PublicBaseURL)

	app := &App{}

	// A database is needed for keyed images and for request logs.
	if mode == delivery.ModeKey || cfg.RequestLog {
		app.backend, err = openBackend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
		}
		logger.Info("storage ready", "backend", cfg.StorageBackend)
	}

	var (
		store     storage.ImageStore
		imagesDir string
		loader    storage.ImageLoader
	)
	switch mode {
	case delivery.ModeURL:
		store = filesystem.New(cfg.ImagesDir)
		imagesDir = cfg.ImagesDir
	case delivery.ModeKey:
		store = app.backend
		cache, err := newCache(cfg.CacheMaxBytes)
		if err != nil {
			app.Close()
			return nil, err
		}
		loader = storage.NewCachedLoader(app.backend, cache)
	}

	var logs storage.LogStore
	if cfg.RequestLog {
		logs = app.backend
	}

	collector := metrics.NewCollector(MetricsNamespace)
	client := gemini.NewClient(gemini.Config{
		Endpoint:         cfg.ProviderEndpoint,
		Auth:             gemini.AuthMode(cfg.ProviderAuth),
		Timeout:          cfg.ProviderTimeout,
		MaxResponseBytes: cfg.ProviderMaxResponseBytes,
	})
	app.Model = provider.ModelFromEndpoint(client.Endpoint())

	app.Service = pipeline.New(pipeline.Deps{
		Fetcher: reference.New(reference.Options{
			Timeout:  cfg.ReferenceTimeout,
			MaxBytes: cfg.ReferenceMaxBytes,
		}),
		Sender:    client,
		Extractor: extract.New(extract.Options{MinRun: cfg.ExtractMinRun, Logger: logger}),
		Store:     store,
		Logs:      logs,
		Tokenizer: tokenizer.New(),
		Metrics:   collector,
		Logger:    logger,
		BuildOptions: gemini.BuildOptions{
			ResponseModalities: cfg.ProviderResponseModalities,
		},
		Model:   app.Model,
		Persist: responder.NeedsStore(),
	})

	startTime := time.Now()
	repo := &Repo{
		Generate: generate.New(app.Service, responder, logger),
		Admin: admin.New(logs, startTime, admin.SystemInfo{
			DeliveryMode:   string(mode),
			StorageBackend: cfg.StorageBackend,
			Model:          app.Model,
			DataDir:        cfg.DataDir,
		}),
		Infra: infra.New(startTime, string(mode), collector.Handler()),
	}
	if loader != nil {
		repo.Images = images.New(loader, logger)
	}

	app.Handler = NewRouter(repo, &RouterOptions{
		Logger:     logger,
		AdminToken: cfg.AdminToken,
		ImagesDir:  imagesDir,
		Metrics:    collector,
	})
	return app, nil
}

// Close waits for pending request logs and releases the database.
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Wait()
	}
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.StorageBackend == "mongo" {
		store, err := mongo.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	// postgres always carries a DSN; sqlite falls back to the data dir
	dsn := cfg.DatabaseURL
	if dsn == "" {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, err
		}
		dsn = filepath.Join(cfg.DataDir, config.DBFileName)
	}
	store, err := sqldb.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newCache returns nil when caching is disabled.
func newCache(maxBytes int64) (*storage.ImageCache, error) {
	if maxBytes <= 0 {
		return nil, nil
	}
	cache, err := storage.NewImageCache(maxBytes)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	return cache, nil
}
