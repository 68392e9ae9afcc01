package handler

import (
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/domain"
)

// Inpainting serves mask-based fill models such as FLUX Pro Fill. Prompt,
// image and mask are all mandatory.
type Inpainting struct {
	base
}

func (h *Inpainting) ValidateInputs(prompt string, image, mask *domain.Upload) Validation {
	errs := make(map[string]string)
	validatePrompt(h.cfg.Validation.Prompt, prompt, errs)
	if image == nil || len(image.Data) == 0 {
		errs["image"] = "Image is required for inpainting"
	} else {
		validateFile(h.cfg.Validation.Image, image, "image", "Image is required for inpainting", errs)
	}
	if mask == nil || len(mask.Data) == 0 {
		errs["mask"] = "Mask is required for inpainting"
	} else {
		validateFile(h.cfg.Validation.Mask, mask, "mask", "Mask is required for inpainting", errs)
	}
	return validation(errs)
}

func (h *Inpainting) PrepareRequest(prompt string, image, mask *domain.Upload, extra map[string]any) (PreparedRequest, error) {
	if image == nil || len(image.Data) == 0 {
		return PreparedRequest{}, &domain.MissingInputError{Field: "image"}
	}
	if mask == nil || len(mask.Data) == 0 {
		return PreparedRequest{}, &domain.MissingInputError{Field: "mask"}
	}
	payload := h.basePayload()
	payload["prompt"] = strings.TrimSpace(prompt)
	h.mergeExtra(payload, extra)
	return PreparedRequest{Payload: payload, Image: image, Mask: mask}, nil
}

func (h *Inpainting) ProcessResponse(raw map[string]any) ([]domain.Result, error) {
	if results := imageShapeResults(raw); len(results) > 0 {
		return results, nil
	}
	return nil, &domain.ShapeError{Raw: raw}
}
