package handler

import (
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/domain"
)

// TextToImage serves standard prompt-driven models such as FLUX, Recraft and
// Stable Diffusion. Hybrid models reuse it: the reference image is optional
// and only forwarded when the config allows image input.
type TextToImage struct {
	base
}

func (h *TextToImage) ValidateInputs(prompt string, image, mask *domain.Upload) Validation {
	errs := make(map[string]string)
	validatePrompt(h.cfg.Validation.Prompt, prompt, errs)
	if image != nil {
		if !h.cfg.SupportsImageInput {
			errs["image"] = "This model does not accept a reference image"
		} else {
			validateFile(h.cfg.Validation.Image, image, "image", "Image is required", errs)
		}
	}
	return validation(errs)
}

func (h *TextToImage) PrepareRequest(prompt string, image, mask *domain.Upload, extra map[string]any) (PreparedRequest, error) {
	payload := h.basePayload()
	payload["prompt"] = strings.TrimSpace(prompt)
	h.mergeExtra(payload, extra)

	prep := PreparedRequest{Payload: payload}
	if h.cfg.SupportsImageInput && image != nil {
		prep.Image = image
	}
	return prep, nil
}

func (h *TextToImage) ProcessResponse(raw map[string]any) ([]domain.Result, error) {
	if results := imageShapeResults(raw); len(results) > 0 {
		return results, nil
	}
	return nil, &domain.ShapeError{Raw: raw}
}
