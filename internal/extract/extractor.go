// Package extract locates and decodes the base64 image payload inside a
// provider response whose shape is not known in advance.
package extract

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/types"
)

// DefaultMinRun is the default minimum length of an unkeyed base64 run.
// It is a calibration that keeps IDs, hashes and timestamps out, nothing more.
const DefaultMinRun = 200

// SnippetBytes bounds the diagnostic copy of an unparseable response.
const SnippetBytes = 2000

// Strategy finds an image payload in a serialized response.
type Strategy interface {
	Name() string
	Find(doc []byte) (*types.ExtractedImage, bool)
}

// Options configures an Extractor.
type Options struct {
	// MinRun is the fallback run threshold. Zero means DefaultMinRun.
	MinRun int
	Logger *slog.Logger
}

// Extractor applies its strategies in order and returns the first match.
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New creates an extractor with the keyed scan followed by the long-run fallback.
func New(opts Options) *Extractor {
	minRun := opts.MinRun
	if minRun <= 0 {
		minRun = DefaultMinRun
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return NewWithStrategies(logger, KeyedData{}, LongRun{MinRun: minRun})
}

// NewWithStrategies creates an extractor over an explicit strategy list.
func NewWithStrategies(logger *slog.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract returns the decoded image or a KindExtractionFailed error carrying
// a bounded snippet of body. The same body always yields the same result.
func (e *Extractor) Extract(body []byte) (*types.ExtractedImage, error) {
	doc := flatten(body)

	for _, s := range e.strategies {
		img, ok := s.Find(doc)
		if !ok {
			continue
		}
		img.Strategy = s.Name()
		img.SourceEncoding = types.SourceEncodingBase64
		img.MediaType = SniffMediaType(img.Data)

		if img.NearThreshold {
			e.logger.Warn("image extracted from near-threshold base64 run",
				"strategy", img.Strategy,
				"bytes", len(img.Data),
			)
		}
		return img, nil
	}

	return nil, &types.Error{
		Kind:       types.KindExtractionFailed,
		Message:    "no image data found in provider response",
		Diagnostic: Snippet(body, SnippetBytes),
	}
}

// flatten compacts valid JSON so keyed matches do not depend on whitespace.
// Anything else is scanned as-is.
func flatten(body []byte) []byte {
	if !json.Valid(body) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return body
	}
	return buf.Bytes()
}

// Snippet returns at most max bytes from the start of body as valid UTF-8.
// A rune split by the cut is dropped.
func Snippet(body []byte, max int) string {
	if len(body) > max {
		body = body[:max]
	}
	return strings.ToValidUTF8(string(body), "")
}
