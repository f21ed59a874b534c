package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandalnilabja/drawgate/internal/extract"
	"github.com/mandalnilabja/drawgate/internal/metrics"
	"github.com/mandalnilabja/drawgate/internal/provider/gemini"
	"github.com/mandalnilabja/drawgate/internal/reference"
	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
	"github.com/mandalnilabja/drawgate/internal/types"
)

var pngData = []byte("\x89PNG\r\n\x1a\nfake image body")

// memStore is an in-memory storage.ImageStore and storage.LogStore.
type memStore struct {
	mu     sync.Mutex
	images map[string]*models.Image
	logs   []*models.RequestLog
	err    error
}

func newMemStore() *memStore {
	return &memStore{images: make(map[string]*models.Image)}
}

func (m *memStore) Save(_ context.Context, img *models.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	key, err := storage.GenerateImageKey()
	if err != nil {
		return "", err
	}
	if err := storage.Prepare(img, key); err != nil {
		return "", err
	}
	m.images[key] = img
	return key, nil
}

func (m *memStore) LogRequest(_ context.Context, log *models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memStore) GetRequestLogs(context.Context, models.LogFilter) ([]*models.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logs, nil
}

func (m *memStore) DeleteRequestLogs(context.Context, string) (int64, error) { return 0, nil }

func (m *memStore) GetUsageStats(context.Context) (*models.UsageStats, error) {
	return &models.UsageStats{}, nil
}

// counter wraps a handler and counts calls.
type counter struct {
	srv   *httptest.Server
	calls atomic.Int32
	body  atomic.Pointer[[]byte]
}

func newCounter(t *testing.T, h http.HandlerFunc) *counter {
	t.Helper()
	c := &counter{}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		b, _ := io.ReadAll(r.Body)
		c.body.Store(&b)
		h(w, r)
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func imageReply(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`,
		base64.StdEncoding.EncodeToString(pngData))
}

type fixture struct {
	svc      *Service
	upstream *counter
	store    *memStore
	metrics  *metrics.Collector
}

func newFixture(t *testing.T, upstream http.HandlerFunc, persist bool) *fixture {
	t.Helper()
	up := newCounter(t, upstream)
	store := newMemStore()
	m := metrics.NewCollector("test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := New(Deps{
		Fetcher:   reference.New(reference.Options{}),
		Sender:    gemini.NewClient(gemini.Config{Endpoint: up.srv.URL}),
		Extractor: extract.New(extract.Options{Logger: logger}),
		Store:     store,
		Logs:      store,
		Metrics:   m,
		Logger:    logger,
		Model:     "gemini-test",
		Persist:   persist,
	})
	return &fixture{svc: svc, upstream: up, store: store, metrics: m}
}

func TestGenerateRedCircle(t *testing.T) {
	f := newFixture(t, imageReply, false)

	res, err := f.svc.Generate(context.Background(), &types.GenerationRequest{
		RequestID:  "req-1",
		Prompt:     "a red circle",
		Credential: "key",
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(res.Data, []byte("\x89PNG")))
	assert.Equal(t, "image/png", res.MediaType)
	assert.Empty(t, res.Key)
	assert.Equal(t, int32(1), f.upstream.calls.Load())
	assert.Empty(t, f.store.images)

	var sent gemini.Request
	require.NoError(t, json.Unmarshal(*f.upstream.body.Load(), &sent))
	require.Len(t, sent.Contents[0].Parts, 1)
	assert.Equal(t, "a red circle", sent.Contents[0].Parts[0].Text)

	f.svc.Wait()
	require.Len(t, f.store.logs, 1)
	assert.Equal(t, "req-1", f.store.logs[0].RequestID)
	assert.Equal(t, 200, f.store.logs[0].StatusCode)
	assert.Equal(t, "keyed-data", f.store.logs[0].Strategy)
	assert.Equal(t, "gemini-test", f.store.logs[0].Model)
	assertSeries(t, f.metrics, "test_generations_total", 1)
	assertSeries(t, f.metrics, "test_extraction_strategy_total", 1)
}

func assertSeries(t *testing.T, m *metrics.Collector, name string, want int) {
	t.Helper()
	n, err := testutil.GatherAndCount(m.Registry(), name)
	require.NoError(t, err)
	assert.Equal(t, want, n, name)
}

func TestGenerateValidationMakesNoCalls(t *testing.T) {
	testCases := []struct {
		name string
		req  *types.GenerationRequest
	}{
		{name: "missing credential", req: &types.GenerationRequest{Prompt: "a red circle"}},
		{name: "blank prompt", req: &types.GenerationRequest{Prompt: "  \n", Credential: "key"}},
		{name: "relative reference", req: &types.GenerationRequest{Prompt: "p", Credential: "key", ReferenceURL: "/local.png"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, imageReply, true)

			res, err := f.svc.Generate(context.Background(), tc.req)
			assert.Nil(t, res)
			assert.Equal(t, types.KindValidation, types.KindOf(err))
			assert.Equal(t, int32(0), f.upstream.calls.Load())
			assert.Empty(t, f.store.images)
		})
	}
}

func TestGenerateWithReference(t *testing.T) {
	ref := newCounter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("\xff\xd8\xffref"))
	})
	f := newFixture(t, imageReply, false)

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{
		Prompt:       "make it blue",
		Credential:   "key",
		ReferenceURL: ref.srv.URL + "/ref.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), ref.calls.Load())

	var sent gemini.Request
	require.NoError(t, json.Unmarshal(*f.upstream.body.Load(), &sent))
	parts := sent.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\xff\xd8\xffref")), parts[1].InlineData.Data)
}

func TestGenerateReferenceUnavailableSkipsProvider(t *testing.T) {
	ref := newCounter(t, func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })
	f := newFixture(t, imageReply, true)

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{
		Prompt:       "p",
		Credential:   "key",
		ReferenceURL: ref.srv.URL,
	})
	assert.Equal(t, types.KindReferenceUnavailable, types.KindOf(err))
	assert.Equal(t, int32(0), f.upstream.calls.Load())
}

func TestGenerateProviderRejected(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}, true)

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "p", Credential: "key"})

	var typed *types.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, types.KindProviderRejected, typed.Kind)
	assert.Equal(t, http.StatusTooManyRequests, typed.UpstreamStatus)
	assert.Empty(t, f.store.images)

	f.svc.Wait()
	require.Len(t, f.store.logs, 1)
	assert.Equal(t, string(types.KindProviderRejected), f.store.logs[0].ErrorKind)
	assert.Equal(t, http.StatusBadGateway, f.store.logs[0].StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, f.store.logs[0].UpstreamStatus)
}

func TestGenerateExtractionFailed(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}, true)

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "p", Credential: "key"})

	var typed *types.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, types.KindExtractionFailed, typed.Kind)
	assert.Contains(t, typed.Diagnostic, "blockReason=SAFETY")
	assert.Empty(t, f.store.images)
	assertSeries(t, f.metrics, "test_generations_total", 1)
	assertSeries(t, f.metrics, "test_extraction_strategy_total", 0)
}

func TestGeneratePersists(t *testing.T) {
	f := newFixture(t, imageReply, true)

	res, err := f.svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: "key"})
	require.NoError(t, err)
	require.True(t, storage.ValidImageKey(res.Key))

	stored := f.store.images[res.Key]
	require.NotNil(t, stored)
	assert.Equal(t, pngData, stored.Data)
	assert.Equal(t, "cat", stored.Prompt)
	assert.Equal(t, "image/png", stored.MediaType)

	f.svc.Wait()
	assert.Equal(t, res.Key, f.store.logs[0].ImageKey)
}

func TestGenerateStorageFailure(t *testing.T) {
	f := newFixture(t, imageReply, true)
	f.store.err = errors.New("disk full")

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: "key"})

	var typed *types.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, types.KindStorageFailure, typed.Kind)
	assert.Equal(t, http.StatusInternalServerError, typed.Status())
}

// stubTokenizer counts calls and, when block is set, waits for ctx.
type stubTokenizer struct {
	calls atomic.Int32
	block bool
}

func (s *stubTokenizer) CountTokens(ctx context.Context, text, model string) (int, error) {
	return s.CountPrompt(ctx, text, model, false)
}

func (s *stubTokenizer) CountPrompt(ctx context.Context, _, _ string, _ bool) (int, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 7, nil
}

func TestGenerateTokenEstimateOffRequestPath(t *testing.T) {
	up := newCounter(t, imageReply)
	store := newMemStore()
	tok := &stubTokenizer{block: true}
	svc := New(Deps{
		Fetcher:   reference.New(reference.Options{}),
		Sender:    gemini.NewClient(gemini.Config{Endpoint: up.srv.URL}),
		Extractor: extract.New(extract.Options{}),
		Logs:      store,
		Tokenizer: tok,
		Logger:    slog.New(slog.DiscardHandler),
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: "key"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(tokenEstimateTimeout / 2):
		t.Fatal("Generate waited on the token estimate")
	}

	svc.Wait()
	require.Len(t, store.logs, 1)
	assert.Equal(t, 0, store.logs[0].PromptTokens)
	assert.Equal(t, int32(1), tok.calls.Load())
}

func TestGenerateSkipsTokenEstimateWithoutLogs(t *testing.T) {
	up := newCounter(t, imageReply)
	tok := &stubTokenizer{}
	svc := New(Deps{
		Fetcher:   reference.New(reference.Options{}),
		Sender:    gemini.NewClient(gemini.Config{Endpoint: up.srv.URL}),
		Extractor: extract.New(extract.Options{}),
		Tokenizer: tok,
		Logger:    slog.New(slog.DiscardHandler),
	})

	_, err := svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: "key"})
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, int32(0), tok.calls.Load())
}

func TestGenerateRecordsTokenEstimate(t *testing.T) {
	f := newFixture(t, imageReply, false)
	f.svc.deps.Tokenizer = &stubTokenizer{}

	_, err := f.svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: "key"})
	require.NoError(t, err)
	f.svc.Wait()
	require.Len(t, f.store.logs, 1)
	assert.Equal(t, 7, f.store.logs[0].PromptTokens)
}

func TestGenerateTransportFailureNeverLogsCredential(t *testing.T) {
	const secret = "SUPERSECRETKEY123"
	var out bytes.Buffer
	store := newMemStore()
	svc := New(Deps{
		Fetcher: reference.New(reference.Options{}),
		Sender: gemini.NewClient(gemini.Config{
			Endpoint: "http://127.0.0.1:1/v1beta/models/m:generateContent",
			Auth:     gemini.AuthQuery,
		}),
		Extractor: extract.New(extract.Options{}),
		Logs:      store,
		Logger:    slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	_, err := svc.Generate(context.Background(), &types.GenerationRequest{Prompt: "cat", Credential: secret})
	require.Equal(t, types.KindTransport, types.KindOf(err))
	svc.Wait()

	assert.Contains(t, out.String(), "generation failed")
	assert.NotContains(t, out.String(), secret)
	require.Len(t, store.logs, 1)
	assert.NotContains(t, store.logs[0].ErrorMessage, secret)
	assert.NotContains(t, err.Error(), secret)
}
