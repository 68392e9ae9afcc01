package handler

import (
	"github.com/rpriscu/ai-image-generator/internal/domain"
)

// ImageToVideo serves models that animate a still image. The source image is
// mandatory; the prompt is ignored.
type ImageToVideo struct {
	base
}

func (h *ImageToVideo) ValidateInputs(prompt string, image, mask *domain.Upload) Validation {
	errs := make(map[string]string)
	if image == nil || len(image.Data) == 0 {
		errs["image"] = "Image is required for video generation"
	} else {
		validateFile(h.cfg.Validation.Image, image, "image", "Image is required for video generation", errs)
	}
	return validation(errs)
}

func (h *ImageToVideo) PrepareRequest(prompt string, image, mask *domain.Upload, extra map[string]any) (PreparedRequest, error) {
	if image == nil || len(image.Data) == 0 {
		return PreparedRequest{}, &domain.MissingInputError{Field: "image"}
	}
	payload := h.basePayload()
	h.mergeExtra(payload, extra)
	return PreparedRequest{Payload: payload, Image: image}, nil
}

// ProcessResponse only consults the video shapes; an image-looking body from
// a video model is a malformed response, not a thumbnail.
func (h *ImageToVideo) ProcessResponse(raw map[string]any) ([]domain.Result, error) {
	if results := videoShapeResults(raw); len(results) > 0 {
		return results, nil
	}
	return nil, &domain.ShapeError{Raw: raw}
}
