// Package tokenizer estimates prompt token counts for request logs.
package tokenizer

import (
	"context"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer estimates prompt tokens.
// The first use of an encoding may download its BPE file; ctx bounds how
// long a caller waits for it.
type Tokenizer interface {
	CountTokens(ctx context.Context, text string, model string) (int, error)

	// CountPrompt estimates the prompt cost of a generation request.
	CountPrompt(ctx context.Context, prompt string, model string, hasReference bool) (int, error)
}

// Encoding names used by tiktoken.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

// ImageTokens is the flat cost Gemini charges for one inline image.
const ImageTokens = 258

// Gemini has no public BPE. o200k is the closer vocabulary in size for the
// current families; the 1.0 generation predates it.
var families = [...]struct {
	prefix, encoding string
}{
	{"gemini-1.0", EncodingCL100kBase},
	{"gemini", EncodingO200kBase},
	{"imagen", EncodingO200kBase},
}

// EncodingFor returns the encoding used to estimate tokens for model.
func EncodingFor(model string) string {
	model = strings.ToLower(model)
	for _, f := range families {
		if strings.HasPrefix(model, f.prefix) {
			return f.encoding
		}
	}
	return EncodingCL100kBase
}

// TiktokenTokenizer implements Tokenizer using tiktoken-go. Each encoding
// is loaded at most once, in the background; a failed load is remembered
// so requests never repeat the download.
type TiktokenTokenizer struct {
	loaded sync.Map // encoding name -> *lazyEncoding
}

type lazyEncoding struct {
	once sync.Once
	done chan struct{}
	enc  *tiktoken.Tiktoken
	err  error
}

// New creates a new TiktokenTokenizer.
func New() *TiktokenTokenizer {
	return &TiktokenTokenizer{}
}

func (t *TiktokenTokenizer) encoding(ctx context.Context, name string) (*tiktoken.Tiktoken, error) {
	v, _ := t.loaded.LoadOrStore(name, &lazyEncoding{done: make(chan struct{})})
	l := v.(*lazyEncoding)
	l.once.Do(func() {
		// tiktoken fetches without a context, so the load outlives callers
		go func() {
			defer close(l.done)
			l.enc, l.err = tiktoken.GetEncoding(name)
		}()
	})

	select {
	case <-l.done:
		return l.enc, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CountTokens counts tokens in text using the encoding for model.
func (t *TiktokenTokenizer) CountTokens(ctx context.Context, text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := t.encoding(ctx, EncodingFor(model))
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountPrompt estimates prompt tokens: the text plus a flat cost for the
// reference image, if any.
func (t *TiktokenTokenizer) CountPrompt(ctx context.Context, prompt string, model string, hasReference bool) (int, error) {
	n, err := t.CountTokens(ctx, prompt, model)
	if err != nil {
		return 0, err
	}
	if hasReference {
		n += ImageTokens
	}
	return n, nil
}
