// Package pipeline runs one generation: validate, fetch the reference,
// call the provider, extract the image and persist it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mandalnilabja/drawgate/internal/metrics"
	"github.com/mandalnilabja/drawgate/internal/provider"
	"github.com/mandalnilabja/drawgate/internal/provider/gemini"
	"github.com/mandalnilabja/drawgate/internal/reference"
	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
	"github.com/mandalnilabja/drawgate/internal/tokenizer"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// ReferenceFetcher downloads reference images.
type ReferenceFetcher interface {
	Fetch(ctx context.Context, url string) (*types.ReferenceImage, error)
}

// Sender performs the provider call.
type Sender interface {
	Send(ctx context.Context, req *gemini.Request, credential string) (*provider.Response, error)
}

// Extractor finds the image in a provider reply.
type Extractor interface {
	Extract(body []byte) (*types.ExtractedImage, error)
}

// Deps wires a Service. Store is required only when Persist is set;
// Logs, Tokenizer and Metrics are optional.
type Deps struct {
	Fetcher   ReferenceFetcher
	Sender    Sender
	Extractor Extractor
	Store     storage.ImageStore
	Logs      storage.LogStore
	Tokenizer tokenizer.Tokenizer
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	BuildOptions gemini.BuildOptions

	// Model is recorded in request logs.
	Model string

	// Persist saves every extracted image before it is returned.
	Persist bool
}

// Service runs generations. It is safe for concurrent use.
type Service struct {
	deps    Deps
	logger  *slog.Logger
	pending sync.WaitGroup
}

// New creates a Service.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, logger: logger.With("component", "pipeline")}
}

// Persists reports whether results carry a storage key.
func (s *Service) Persists() bool {
	return s.deps.Persist
}

// Generate runs every stage once, in order, and stops at the first failure.
// Errors are *types.Error.
func (s *Service) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	start := time.Now()
	entry := &models.RequestLog{
		RequestID:    req.RequestID,
		Model:        s.deps.Model,
		HasReference: req.ReferenceURL != "",
	}

	res, err := s.run(ctx, req, entry)

	entry.DurationMs = time.Since(start).Milliseconds()
	s.record(req, entry, err, time.Since(start))
	return res, err
}

func (s *Service) run(ctx context.Context, req *types.GenerationRequest, entry *models.RequestLog) (*types.GenerationResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	var ref *types.ReferenceImage
	if req.ReferenceURL != "" {
		var err error
		if ref, err = s.deps.Fetcher.Fetch(ctx, req.ReferenceURL); err != nil {
			return nil, err
		}
	}

	providerReq := gemini.BuildRequest(req.Prompt, ref, s.deps.BuildOptions)

	sendStart := time.Now()
	resp, err := s.deps.Sender.Send(ctx, providerReq, req.Credential)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordProviderCall(outcome(err), time.Since(sendStart))
	}
	if err != nil {
		return nil, err
	}

	img, err := s.deps.Extractor.Extract(resp.Body)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			if reason := gemini.BlockReason(resp.Body); reason != "" {
				typed.Diagnostic = "blockReason=" + reason + " " + typed.Diagnostic
			}
		}
		return nil, err
	}
	entry.Strategy = img.Strategy
	entry.ImageBytes = int64(len(img.Data))
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordExtraction(img.Strategy, img.NearThreshold)
	}

	result := &types.GenerationResult{
		RequestID: req.RequestID,
		Data:      img.Data,
		MediaType: img.MediaType,
		Strategy:  img.Strategy,
	}

	if s.deps.Persist {
		key, err := s.deps.Store.Save(ctx, &models.Image{
			Prompt:    req.Prompt,
			Data:      img.Data,
			MediaType: img.MediaType,
		})
		if err != nil {
			return nil, types.NewError(types.KindStorageFailure, "failed to store image", err)
		}
		result.Key = key
		entry.ImageKey = key
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordStored(len(img.Data))
		}
	}

	return result, nil
}

// Validate checks a request before any network call.
func Validate(req *types.GenerationRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return types.Validation("prompt is required")
	}
	if strings.TrimSpace(req.Credential) == "" {
		return types.Validation("api key is required")
	}
	if req.ReferenceURL != "" && !reference.ValidURL(req.ReferenceURL) {
		return types.Validation("reference must be an absolute http or https URL")
	}
	return nil
}

// tokenEstimateTimeout bounds the wait for a tokenizer encoding to load.
const tokenEstimateTimeout = 2 * time.Second

// countPrompt runs off the request path, only when a log entry is written.
func (s *Service) countPrompt(req *types.GenerationRequest) int {
	if s.deps.Tokenizer == nil || strings.TrimSpace(req.Prompt) == "" {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), tokenEstimateTimeout)
	defer cancel()
	n, err := s.deps.Tokenizer.CountPrompt(ctx, req.Prompt, s.deps.Model, req.ReferenceURL != "")
	if err != nil {
		s.logger.Debug("prompt token estimate failed", "error", err)
		return 0
	}
	return n
}

// record emits the failure log line, metrics and the request log entry.
func (s *Service) record(req *types.GenerationRequest, entry *models.RequestLog, err error, elapsed time.Duration) {
	entry.StatusCode = 200
	if err != nil {
		var typed *types.Error
		if !errors.As(err, &typed) {
			typed = types.NewError(types.KindInternal, "internal error", err)
		}
		entry.StatusCode = typed.Status()
		entry.ErrorKind = string(typed.Kind)
		entry.ErrorMessage = typed.Message
		entry.UpstreamStatus = typed.UpstreamStatus

		attrs := []any{
			"request_id", req.RequestID,
			"kind", typed.Kind,
			"error", typed.Error(),
		}
		if typed.UpstreamStatus != 0 {
			attrs = append(attrs, "upstream_status", typed.UpstreamStatus)
		}
		if typed.Diagnostic != "" {
			attrs = append(attrs, "diagnostic", typed.Diagnostic)
		}
		if typed.Kind == types.KindValidation {
			s.logger.Info("generation rejected", attrs...)
		} else {
			s.logger.Error("generation failed", attrs...)
		}
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordGeneration(outcome(err), elapsed)
	}

	if s.deps.Logs == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		entry.PromptTokens = s.countPrompt(req)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Logs.LogRequest(ctx, entry); err != nil {
			s.logger.Warn("failed to record request log", "request_id", entry.RequestID, "error", err)
		}
	}()
}

// Wait blocks until pending request log writes finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	return string(types.KindOf(err))
}
