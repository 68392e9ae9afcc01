// Package generation is the single entry point the transport layer calls to
// produce content. It resolves the model, validates inputs, delegates the
// upstream call to the fal client and post-processes results (inline payload
// persistence, oversized video URL shortening).
package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/handler"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/media"
	"github.com/rpriscu/ai-image-generator/internal/registry"
	"github.com/rpriscu/ai-image-generator/internal/shorturl"
	"github.com/rpriscu/ai-image-generator/internal/storage"
)

// InputError carries the per-field validation messages for a rejected
// request. Generation is never attempted when it is returned.
type InputError struct {
	Errors map[string]string
}

func (e *InputError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid input: %s", strings.Join(fields, ", "))
}

// Request is one generation call as received from the transport layer.
type Request struct {
	ModelID    string
	Prompt     string
	Image      *domain.Upload
	Mask       *domain.Upload
	NumOutputs int
	Extra      map[string]any
}

type generationClient interface {
	Generate(ctx context.Context, h handler.Handler, prep handler.PreparedRequest) ([]domain.Result, error)
}

// Service orchestrates one generation call end to end.
type Service struct {
	models    *registry.Registry
	handlers  *handler.Registry
	client    generationClient
	shortener *shorturl.Shortener
	store     *storage.FileStore
	staticURL string
	logger    *infra.Logger
}

// NewService wires the generation pipeline. store may be nil when inline
// results do not need persisting (tests); shortener may not be nil.
func NewService(models *registry.Registry, handlers *handler.Registry, client generationClient, shortener *shorturl.Shortener, store *storage.FileStore, staticURL string, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	staticURL = strings.TrimRight(staticURL, "/")
	if staticURL == "" {
		staticURL = "/static"
	}
	return &Service{
		models:    models,
		handlers:  handlers,
		client:    client,
		shortener: shortener,
		store:     store,
		staticURL: staticURL,
		logger:    logger,
	}
}

// Generate validates the request, performs the upstream call and returns
// normalized results. Validation failures never reach the network layer.
func (s *Service) Generate(ctx context.Context, req Request) ([]domain.Result, error) {
	cfg, err := s.models.Get(req.ModelID)
	if err != nil {
		return nil, err
	}
	h, ok := s.handlers.Handler(cfg.ID)
	if !ok {
		return nil, fmt.Errorf("generation: %q: %w", cfg.ID, domain.ErrUnknownModel)
	}

	if v := h.ValidateInputs(req.Prompt, req.Image, req.Mask); !v.Valid {
		return nil, &InputError{Errors: v.Errors}
	}

	prep, err := h.PrepareRequest(req.Prompt, req.Image, req.Mask, req.Extra)
	if err != nil {
		return nil, err
	}
	numOutputs := h.NumOutputs(req.NumOutputs)
	if cfg.OutputKind == domain.KindImage {
		if _, fixed := prep.Payload["num_images"]; !fixed {
			prep.Payload["num_images"] = numOutputs
		}
	}

	requestID := uuid.NewString()
	s.logger.Info().
		Str("request_id", requestID).
		Str("model", cfg.ID).
		Int("num_outputs", numOutputs).
		Msg("generation started")

	results, err := s.client.Generate(ctx, h, prep)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Str("model", cfg.ID).Msg("generation failed")
		return nil, err
	}

	out := make([]domain.Result, 0, len(results))
	for i, result := range results {
		processed, err := s.postProcess(ctx, requestID, i, result)
		if err != nil {
			return nil, err
		}
		out = append(out, processed)
	}
	s.logger.Info().Str("request_id", requestID).Int("results", len(out)).Msg("generation completed")
	return out, nil
}

// postProcess persists inline data-URI payloads as static files and shortens
// oversized video URLs so they fit the asset column.
func (s *Service) postProcess(ctx context.Context, requestID string, index int, result domain.Result) (domain.Result, error) {
	if strings.HasPrefix(result.URL, "data:") && s.store != nil {
		data, mimeType, err := media.DecodeDataURI(result.URL)
		if err != nil {
			return domain.Result{}, err
		}
		key := fmt.Sprintf("generated/%s_%d.%s", requestID, index, extensionForMIME(mimeType))
		cleanKey, err := s.store.Write(ctx, key, data)
		if err != nil {
			return domain.Result{}, err
		}
		result.URL = s.staticURL + "/" + cleanKey
	}
	if result.Kind == domain.KindVideo && s.shortener != nil {
		result.URL = s.shortener.Shorten(ctx, result.URL)
	}
	return result, nil
}

func extensionForMIME(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "video/mp4":
		return "mp4"
	default:
		return "png"
	}
}
