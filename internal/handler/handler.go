// Package handler implements the per-archetype request builders and response
// parsers. A handler is a pure adapter around one ModelConfig: it validates
// caller inputs, merges parameters into a request payload and normalizes the
// provider's response. It performs no I/O.
package handler

import (
	"fmt"
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

// Payload is the JSON body sent to the provider, before media encoding.
type Payload map[string]any

// PreparedRequest carries the payload plus any media that still needs to be
// encoded by the generation client.
type PreparedRequest struct {
	Payload Payload
	Image   *domain.Upload
	Mask    *domain.Upload
}

// Validation is the outcome of ValidateInputs. Errors maps field name to a
// user-facing message.
type Validation struct {
	Valid  bool
	Errors map[string]string
}

// Handler is the capability contract shared by all archetypes.
type Handler interface {
	Config() registry.ModelConfig
	ValidateInputs(prompt string, image, mask *domain.Upload) Validation
	PrepareRequest(prompt string, image, mask *domain.Upload, extra map[string]any) (PreparedRequest, error)
	NumOutputs(requested int) int
	ProcessResponse(raw map[string]any) ([]domain.Result, error)
}

// New builds the handler matching the config's archetype. Hybrid models
// behave as text-to-image with an optional reference image.
func New(cfg registry.ModelConfig) Handler {
	switch cfg.Archetype {
	case registry.ArchetypeImageToVideo:
		return &ImageToVideo{base: base{cfg: cfg}}
	case registry.ArchetypeInpainting:
		return &Inpainting{base: base{cfg: cfg}}
	default:
		return &TextToImage{base: base{cfg: cfg}}
	}
}

type base struct {
	cfg registry.ModelConfig
}

func (b *base) Config() registry.ModelConfig {
	return b.cfg
}

// NumOutputs clamps the requested count to the model's limit. Zero or
// negative means "use the default", not an error.
func (b *base) NumOutputs(requested int) int {
	if requested <= 0 {
		return b.cfg.DefaultNumOutputs
	}
	if requested > b.cfg.MaxOutputs {
		return b.cfg.MaxOutputs
	}
	return requested
}

func (b *base) basePayload() Payload {
	payload := make(Payload, len(b.cfg.DefaultParams)+4)
	for k, v := range b.cfg.DefaultParams {
		payload[k] = v
	}
	return payload
}

// mergeExtra copies caller overrides into the payload. Only keys declared in
// the model's parameter schema are accepted; everything else is dropped so
// arbitrary fields never reach the provider.
func (b *base) mergeExtra(payload Payload, extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	for _, key := range b.cfg.ParamSchema {
		if v, ok := extra[key]; ok && v != nil {
			payload[key] = v
		}
	}
}

func validatePrompt(rule registry.FieldRule, prompt string, errs map[string]string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		if rule.Required {
			errs["prompt"] = "Prompt is required"
		}
		return
	}
	if rule.MinLength > 0 && len(prompt) < rule.MinLength {
		errs["prompt"] = fmt.Sprintf("Prompt must be at least %d characters", rule.MinLength)
		return
	}
	if rule.MaxLength > 0 && len(prompt) > rule.MaxLength {
		errs["prompt"] = fmt.Sprintf("Prompt must be less than %d characters", rule.MaxLength)
	}
}

func validateFile(rule registry.FieldRule, file *domain.Upload, field, requiredMsg string, errs map[string]string) {
	if file == nil || len(file.Data) == 0 {
		if rule.Required {
			errs[field] = requiredMsg
		}
		return
	}
	if rule.MaxSizeBytes > 0 && int64(len(file.Data)) > rule.MaxSizeBytes {
		errs[field] = fmt.Sprintf("File too large. Maximum size: %dMB", rule.MaxSizeBytes/(1<<20))
		return
	}
	if len(rule.AllowedFormats) > 0 {
		ext := fileExt(file.Filename)
		for _, allowed := range rule.AllowedFormats {
			if ext == strings.ToLower(allowed) {
				return
			}
		}
		errs[field] = fmt.Sprintf("Unsupported format. Allowed: %s", strings.Join(rule.AllowedFormats, ", "))
	}
}

func fileExt(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

func validation(errs map[string]string) Validation {
	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// Response shape helpers. Shapes are checked in a fixed priority order;
// anything unmatched is a ShapeError so malformed upstream payloads never
// pass as an empty success.

func imageShapeResults(raw map[string]any) []domain.Result {
	if imgs, ok := raw["images"].([]any); ok && len(imgs) > 0 {
		var results []domain.Result
		for _, entry := range imgs {
			if url := urlFromEntry(entry); url != "" {
				results = append(results, domain.Result{URL: url, Kind: domain.KindImage})
			}
		}
		if len(results) > 0 {
			return results
		}
	}
	if url := urlFromEntry(raw["image"]); url != "" {
		return []domain.Result{{URL: url, Kind: domain.KindImage}}
	}
	if url, ok := raw["image_url"].(string); ok && strings.TrimSpace(url) != "" {
		return []domain.Result{{URL: url, Kind: domain.KindImage}}
	}
	return nil
}

func videoShapeResults(raw map[string]any) []domain.Result {
	if video, ok := raw["video"].(map[string]any); ok {
		if url, ok := video["url"].(string); ok && strings.TrimSpace(url) != "" {
			result := domain.Result{URL: url, Kind: domain.KindVideo}
			if thumb, ok := video["thumbnail_url"].(string); ok {
				result.ThumbnailURL = thumb
			}
			return []domain.Result{result}
		}
	}
	if url, ok := raw["video_url"].(string); ok && strings.TrimSpace(url) != "" {
		return []domain.Result{{URL: url, Kind: domain.KindVideo}}
	}
	return nil
}

func urlFromEntry(entry any) string {
	switch v := entry.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if url, ok := v["url"].(string); ok {
			return strings.TrimSpace(url)
		}
	}
	return ""
}
