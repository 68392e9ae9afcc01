package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/falclient"
	"github.com/rpriscu/ai-image-generator/internal/generation"
)

const maxUploadBytes = 32 << 20

type resultJSON struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Generate handles POST /api/generate. The form carries prompt, model,
// optional num_outputs, optional image/mask files and an optional JSON
// params object with model-specific overrides.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}

	req := generation.Request{
		ModelID: strings.TrimSpace(r.FormValue("model")),
		Prompt:  r.FormValue("prompt"),
	}
	if req.ModelID == "" {
		a.jsonError(w, http.StatusBadRequest, "model is required", nil)
		return
	}
	if raw := strings.TrimSpace(r.FormValue("num_outputs")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.jsonError(w, http.StatusBadRequest, "num_outputs must be an integer", nil)
			return
		}
		req.NumOutputs = n
	}
	if raw := strings.TrimSpace(r.FormValue("params")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Extra); err != nil {
			a.jsonError(w, http.StatusBadRequest, "params must be a JSON object", nil)
			return
		}
	}

	var err error
	if req.Image, err = formUpload(r, "image"); err != nil {
		a.jsonError(w, http.StatusBadRequest, "could not read image upload", nil)
		return
	}
	if req.Mask, err = formUpload(r, "mask"); err != nil {
		a.jsonError(w, http.StatusBadRequest, "could not read mask upload", nil)
		return
	}

	results, err := a.Service.Generate(r.Context(), req)
	if err != nil {
		a.writeGenerationError(w, err)
		return
	}

	out := make([]resultJSON, 0, len(results))
	for _, result := range results {
		out = append(out, resultJSON{
			URL:          result.URL,
			Type:         string(result.Kind),
			ThumbnailURL: result.ThumbnailURL,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"results": out})
}

// writeGenerationError maps the error taxonomy onto HTTP statuses. The core
// always returns a well-formed error object; the status mapping lives here.
func (a *App) writeGenerationError(w http.ResponseWriter, err error) {
	var inputErr *generation.InputError
	var validationErr *domain.ValidationError
	var missingErr *domain.MissingInputError
	var exhaustedErr *domain.ExhaustedError
	var upstreamErr *domain.UpstreamError
	var shapeErr *domain.ShapeError

	switch {
	case errors.As(err, &inputErr):
		a.jsonError(w, http.StatusBadRequest, "invalid input", inputErr.Errors)
	case errors.As(err, &validationErr):
		a.jsonError(w, http.StatusBadRequest, "invalid input", map[string]string{validationErr.Field: validationErr.Reason})
	case errors.As(err, &missingErr):
		a.jsonError(w, http.StatusBadRequest, "invalid input", map[string]string{missingErr.Field: "required"})
	case errors.Is(err, domain.ErrUnknownModel):
		a.jsonError(w, http.StatusNotFound, "unknown model", nil)
	case errors.Is(err, falclient.ErrMissingAPIKey):
		a.jsonError(w, http.StatusServiceUnavailable, "generation backend is not configured", nil)
	case errors.As(err, &exhaustedErr), errors.As(err, &upstreamErr), errors.As(err, &shapeErr):
		a.Logger.Error().Err(err).Msg("generation failed upstream")
		a.jsonError(w, http.StatusBadGateway, "generation failed", nil)
	default:
		a.Logger.Error().Err(err).Msg("generation failed")
		a.jsonError(w, http.StatusInternalServerError, "generation failed", nil)
	}
}

func formUpload(r *http.Request, field string) (*domain.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return readUpload(file, header)
}

func readUpload(file multipart.File, header *multipart.FileHeader) (*domain.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return &domain.Upload{Filename: header.Filename, Data: data}, nil
}
