package generate

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/provider/gemini"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// MaxBodyBytes bounds a generation request body. References travel as URLs,
// so bodies are small.
const MaxBodyBytes = 1 << 20

const maxMultipartMemory = 1 << 20

// ParseRequest reads a generation request from a JSON body, a form body or
// the query string. Fields missing from the body fall back to the query
// string; the credential falls back to the x-goog-api-key header.
func ParseRequest(r *http.Request) (*types.GenerateRequest, error) {
	in := &types.GenerateRequest{}

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
		if err := parseBody(r, in); err != nil {
			return nil, err
		}
	}

	fillFromValues(in, r.URL.Query().Get)

	if in.Credential() == "" {
		in.APIKey = r.Header.Get(gemini.APIKeyHeader)
	}
	return in, nil
}

func parseBody(r *http.Request, in *types.GenerateRequest) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return bodyError(err)
		}
		fillFromValues(in, r.PostForm.Get)
		return nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return bodyError(err)
		}
		fillFromValues(in, r.FormValue)
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyError(err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, in); err != nil {
		return types.Validation("invalid JSON body")
	}
	return nil
}

// fillFromValues sets fields that are still empty from get.
func fillFromValues(in *types.GenerateRequest, get func(string) string) {
	if in.Credential() == "" {
		in.APIKey = firstNonEmpty(get("apiKey"), get("apikey"), get("key"))
	}
	if in.PromptText() == "" {
		in.Prompt = firstNonEmpty(get("prompt"), get("text"))
	}
	if in.ReferenceURL() == "" {
		in.Reference = firstNonEmpty(get("reference"), get("reference_image_url"))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return types.Validation("request body too large")
	}
	return types.Validation("failed to read request body")
}
