package handler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

func imageConfig() registry.ModelConfig {
	return registry.ModelConfig{
		ID:                "flux",
		Endpoint:          "fal-ai/flux",
		Archetype:         registry.ArchetypeTextToImage,
		OutputKind:        domain.KindImage,
		MaxOutputs:        4,
		DefaultNumOutputs: 2,
		DefaultParams:     map[string]any{"image_size": "landscape_4_3"},
		ParamSchema:       []string{"seed", "guidance_scale"},
		Validation: registry.ValidationRules{
			Prompt: registry.FieldRule{Required: true, MinLength: 3, MaxLength: 500},
			Image:  registry.FieldRule{MaxSizeBytes: 1 << 20, AllowedFormats: []string{"jpg", "png"}},
		},
	}
}

func videoConfig() registry.ModelConfig {
	return registry.ModelConfig{
		ID:                "stable_video",
		Endpoint:          "fal-ai/stable-video",
		Archetype:         registry.ArchetypeImageToVideo,
		OutputKind:        domain.KindVideo,
		MaxOutputs:        1,
		DefaultNumOutputs: 1,
	}
}

func inpaintingConfig() registry.ModelConfig {
	return registry.ModelConfig{
		ID:                "flux_pro",
		Endpoint:          "fal-ai/flux-pro/v1/fill",
		Archetype:         registry.ArchetypeInpainting,
		OutputKind:        domain.KindImage,
		MaxOutputs:        4,
		DefaultNumOutputs: 1,
		Validation: registry.ValidationRules{
			Prompt: registry.FieldRule{Required: true},
		},
	}
}

func upload(name string, size int) *domain.Upload {
	return &domain.Upload{Filename: name, Data: make([]byte, size)}
}

func TestNewPicksArchetype(t *testing.T) {
	if _, ok := New(imageConfig()).(*TextToImage); !ok {
		t.Fatal("text-to-image config should build TextToImage")
	}
	if _, ok := New(videoConfig()).(*ImageToVideo); !ok {
		t.Fatal("image-to-video config should build ImageToVideo")
	}
	if _, ok := New(inpaintingConfig()).(*Inpainting); !ok {
		t.Fatal("inpainting config should build Inpainting")
	}

	hybrid := imageConfig()
	hybrid.Archetype = registry.ArchetypeHybrid
	if _, ok := New(hybrid).(*TextToImage); !ok {
		t.Fatal("hybrid config should build TextToImage")
	}
}

func TestNumOutputsClamping(t *testing.T) {
	h := New(imageConfig())
	cases := []struct {
		requested int
		want      int
	}{
		{0, 2},
		{-3, 2},
		{1, 1},
		{4, 4},
		{99, 4},
	}
	for _, tc := range cases {
		if got := h.NumOutputs(tc.requested); got != tc.want {
			t.Fatalf("NumOutputs(%d) = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestTextToImageValidateInputs(t *testing.T) {
	h := New(imageConfig())

	if v := h.ValidateInputs("a red fox", nil, nil); !v.Valid {
		t.Fatalf("valid prompt rejected: %v", v.Errors)
	}
	if v := h.ValidateInputs("", nil, nil); v.Valid || v.Errors["prompt"] != "Prompt is required" {
		t.Fatalf("empty prompt: %v", v.Errors)
	}
	if v := h.ValidateInputs("ab", nil, nil); v.Valid || v.Errors["prompt"] != "Prompt must be at least 3 characters" {
		t.Fatalf("short prompt: %v", v.Errors)
	}
	if v := h.ValidateInputs("a red fox", upload("ref.gif", 10), nil); v.Valid {
		t.Fatal("image upload should be rejected when model has no image input")
	}
}

func TestTextToImageValidatesOptionalImage(t *testing.T) {
	cfg := imageConfig()
	cfg.SupportsImageInput = true
	h := New(cfg)

	if v := h.ValidateInputs("a red fox", upload("ref.png", 10), nil); !v.Valid {
		t.Fatalf("valid reference image rejected: %v", v.Errors)
	}
	if v := h.ValidateInputs("a red fox", upload("ref.gif", 10), nil); v.Valid {
		t.Fatal("disallowed format accepted")
	}
	if v := h.ValidateInputs("a red fox", upload("ref.png", 2<<20), nil); v.Valid {
		t.Fatal("oversized image accepted")
	}
}

func TestTextToImagePrepareRequest(t *testing.T) {
	h := New(imageConfig())
	prep, err := h.PrepareRequest("  a red fox  ", upload("ref.png", 10), nil, map[string]any{
		"seed":    int64(42),
		"steps":   50,
		"sampler": "euler",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prep.Payload["prompt"] != "a red fox" {
		t.Fatalf("prompt not trimmed: %q", prep.Payload["prompt"])
	}
	if prep.Payload["image_size"] != "landscape_4_3" {
		t.Fatal("default params not applied")
	}
	if prep.Payload["seed"] != int64(42) {
		t.Fatal("schema-listed override dropped")
	}
	if _, ok := prep.Payload["steps"]; ok {
		t.Fatal("key outside the parameter schema reached the payload")
	}
	if prep.Image != nil {
		t.Fatal("image attached despite model not supporting image input")
	}
}

func TestPrepareRequestDoesNotMutateDefaults(t *testing.T) {
	cfg := imageConfig()
	h := New(cfg)
	if _, err := h.PrepareRequest("a red fox", nil, nil, map[string]any{"seed": 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cfg.DefaultParams["seed"]; ok {
		t.Fatal("config defaults mutated by PrepareRequest")
	}
	if cfg.DefaultParams["image_size"] != "landscape_4_3" {
		t.Fatal("config defaults changed")
	}
}

func TestImageToVideoRequiresImage(t *testing.T) {
	h := New(videoConfig())

	if v := h.ValidateInputs("", nil, nil); v.Valid || v.Errors["image"] != "Image is required for video generation" {
		t.Fatalf("missing image: %v", v.Errors)
	}
	if v := h.ValidateInputs("", upload("still.png", 10), nil); !v.Valid {
		t.Fatalf("valid image rejected: %v", v.Errors)
	}

	_, err := h.PrepareRequest("ignored", nil, nil, nil)
	var missing *domain.MissingInputError
	if !errors.As(err, &missing) || missing.Field != "image" {
		t.Fatalf("expected MissingInputError{image}, got %v", err)
	}
}

func TestImageToVideoPrepareOmitsPrompt(t *testing.T) {
	h := New(videoConfig())
	prep, err := h.PrepareRequest("a prompt that must be ignored", upload("still.png", 10), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := prep.Payload["prompt"]; ok {
		t.Fatal("prompt leaked into image-to-video payload")
	}
	if prep.Image == nil {
		t.Fatal("source image not attached")
	}
}

func TestInpaintingRequiresAllInputs(t *testing.T) {
	h := New(inpaintingConfig())

	v := h.ValidateInputs("", nil, nil)
	if v.Valid {
		t.Fatal("empty inputs accepted")
	}
	want := map[string]string{
		"prompt": "Prompt is required",
		"image":  "Image is required for inpainting",
		"mask":   "Mask is required for inpainting",
	}
	if !reflect.DeepEqual(v.Errors, want) {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}

	if v := h.ValidateInputs("fill the sky", upload("img.png", 10), upload("mask.png", 10)); !v.Valid {
		t.Fatalf("complete inputs rejected: %v", v.Errors)
	}
}

func TestInpaintingPrepareRequest(t *testing.T) {
	h := New(inpaintingConfig())

	_, err := h.PrepareRequest("fill the sky", nil, upload("mask.png", 10), nil)
	var missing *domain.MissingInputError
	if !errors.As(err, &missing) || missing.Field != "image" {
		t.Fatalf("expected MissingInputError{image}, got %v", err)
	}

	_, err = h.PrepareRequest("fill the sky", upload("img.png", 10), nil, nil)
	if !errors.As(err, &missing) || missing.Field != "mask" {
		t.Fatalf("expected MissingInputError{mask}, got %v", err)
	}

	prep, err := h.PrepareRequest("fill the sky", upload("img.png", 10), upload("mask.png", 10), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prep.Image == nil || prep.Mask == nil {
		t.Fatal("image or mask not attached")
	}
}

func TestImageProcessResponseShapePriority(t *testing.T) {
	h := New(imageConfig())

	cases := []struct {
		name string
		raw  map[string]any
		want []string
	}{
		{
			"images array of objects",
			map[string]any{"images": []any{
				map[string]any{"url": "https://cdn/a.png"},
				map[string]any{"url": "https://cdn/b.png"},
			}},
			[]string{"https://cdn/a.png", "https://cdn/b.png"},
		},
		{
			"images array of strings",
			map[string]any{"images": []any{"https://cdn/a.png"}},
			[]string{"https://cdn/a.png"},
		},
		{
			"images array wins over single image",
			map[string]any{
				"images": []any{"https://cdn/array.png"},
				"image":  map[string]any{"url": "https://cdn/single.png"},
			},
			[]string{"https://cdn/array.png"},
		},
		{
			"single image object",
			map[string]any{"image": map[string]any{"url": "https://cdn/single.png"}},
			[]string{"https://cdn/single.png"},
		},
		{
			"bare image_url",
			map[string]any{"image_url": "https://cdn/bare.png"},
			[]string{"https://cdn/bare.png"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := h.ProcessResponse(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := make([]string, len(results))
			for i, r := range results {
				got[i] = r.URL
				if r.Kind != domain.KindImage {
					t.Fatalf("unexpected kind %q", r.Kind)
				}
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcessResponseIsIdempotent(t *testing.T) {
	h := New(imageConfig())
	raw := map[string]any{"images": []any{"https://cdn/a.png"}}

	first, err := h.ProcessResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := h.ProcessResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeat parse differs: %v vs %v", first, second)
	}
}

func TestProcessResponseShapeError(t *testing.T) {
	h := New(imageConfig())
	for _, raw := range []map[string]any{
		{},
		{"images": []any{}},
		{"images": []any{map[string]any{"width": 512}}},
		{"video": map[string]any{"url": "https://cdn/v.mp4"}},
	} {
		_, err := h.ProcessResponse(raw)
		var shapeErr *domain.ShapeError
		if !errors.As(err, &shapeErr) {
			t.Fatalf("expected ShapeError for %v, got %v", raw, err)
		}
	}
}

func TestVideoProcessResponse(t *testing.T) {
	h := New(videoConfig())

	results, err := h.ProcessResponse(map[string]any{"video": map[string]any{
		"url":           "https://cdn/clip.mp4",
		"thumbnail_url": "https://cdn/clip.jpg",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://cdn/clip.mp4" || results[0].Kind != domain.KindVideo {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].ThumbnailURL != "https://cdn/clip.jpg" {
		t.Fatalf("thumbnail lost: %+v", results[0])
	}

	results, err = h.ProcessResponse(map[string]any{"video_url": "https://cdn/clip.mp4"})
	if err != nil || len(results) != 1 || results[0].URL != "https://cdn/clip.mp4" {
		t.Fatalf("video_url shape: results=%+v err=%v", results, err)
	}

	// An image-shaped body from a video model is malformed, not a result.
	_, err = h.ProcessResponse(map[string]any{"images": []any{"https://cdn/a.png"}})
	var shapeErr *domain.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

func TestRegistryInitializeIsIdempotent(t *testing.T) {
	configs := []registry.ModelConfig{imageConfig(), videoConfig()}
	r := NewRegistry(configs)
	if r.Len() != 2 {
		t.Fatalf("expected 2 handlers, got %d", r.Len())
	}

	h1, ok := r.Handler("flux")
	if !ok {
		t.Fatal("flux handler missing")
	}

	r.Initialize(configs)
	if r.Len() != 2 {
		t.Fatalf("expected 2 handlers after re-init, got %d", r.Len())
	}
	h2, ok := r.Handler("flux")
	if !ok {
		t.Fatal("flux handler missing after re-init")
	}
	if h1 == h2 {
		t.Fatal("re-initialize should rebuild handlers")
	}

	if _, ok := r.Handler("nope"); ok {
		t.Fatal("unknown model should have no handler")
	}
}
