// Package gemini builds and sends generateContent requests.
package gemini

import (
	"encoding/base64"

	"github.com/mandalnilabja/drawgate/internal/types"
)

// Request is the generateContent request body.
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of the conversation.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is either text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries base64 bytes with their media type.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// GenerationConfig holds optional generation settings.
type GenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// BuildOptions configures BuildRequest.
type BuildOptions struct {
	// ResponseModalities, when set, is sent as generationConfig.responseModalities.
	ResponseModalities []string
}

// BuildRequest creates the request body. The prompt is the first part,
// unchanged; a reference, if any, is the second part.
func BuildRequest(prompt string, ref *types.ReferenceImage, opts BuildOptions) *Request {
	parts := []Part{{Text: prompt}}
	if ref != nil {
		parts = append(parts, Part{
			InlineData: &InlineData{
				MimeType: ref.MediaType,
				Data:     base64.StdEncoding.EncodeToString(ref.Data),
			},
		})
	}

	req := &Request{Contents: []Content{{Parts: parts}}}
	if len(opts.ResponseModalities) > 0 {
		req.GenerationConfig = &GenerationConfig{ResponseModalities: opts.ResponseModalities}
	}
	return req
}
