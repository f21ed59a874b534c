// Package generate serves the image generation endpoints.
package generate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mandalnilabja/drawgate/internal/delivery"
	"github.com/mandalnilabja/drawgate/internal/transport/http/middleware"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// Generator runs one generation.
type Generator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error)
}

// Handlers holds the dependencies for generation HTTP handlers.
type Handlers struct {
	Generator Generator
	Responder *delivery.Responder
	Logger    *slog.Logger
}

// New creates a new instance of generation handlers.
func New(gen Generator, responder *delivery.Responder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		Generator: gen,
		Responder: responder,
		Logger:    logger,
	}
}

// Generate handles POST and GET /api/generate and the legacy aliases.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseRequest(r)
	if err != nil {
		types.WriteKindError(w, err)
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	res, err := h.Generator.Generate(r.Context(), &types.GenerationRequest{
		RequestID:    requestID,
		Prompt:       in.PromptText(),
		ReferenceURL: in.ReferenceURL(),
		Credential:   in.Credential(),
	})
	if err != nil {
		types.WriteKindError(w, err)
		return
	}

	h.Responder.Respond(w, r, res)
}
