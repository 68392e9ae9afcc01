package registry

import "github.com/rpriscu/ai-image-generator/internal/domain"

// DefaultCatalog returns the built-in model entries. A deployment can replace
// them with a JSON catalog via MODELS_CONFIG_PATH.
func DefaultCatalog() []ModelConfig {
	return []ModelConfig{
		{
			ID:                 "flux",
			Name:               "FLUX.1 [dev]",
			Endpoint:           "fal-ai/flux",
			Archetype:          ArchetypeHybrid,
			OutputKind:         domain.KindImage,
			Description:        "High-quality images with strong prompt adherence. Accepts an optional reference image.",
			SupportsImageInput: true,
			ReferenceAdapter:   true,
			DefaultParams: map[string]any{
				"num_inference_steps": 28,
				"guidance_scale":      3.5,
			},
			ParamSchema: []string{"negative_prompt", "guidance_scale", "num_inference_steps", "strength", "seed"},
			Validation: ValidationRules{
				Prompt: FieldRule{Required: true, MinLength: 3, MaxLength: 1000},
				Image:  FieldRule{MaxSizeBytes: 10 << 20, AllowedFormats: []string{"jpg", "jpeg", "png", "webp"}},
			},
			MaxOutputs:        4,
			DefaultNumOutputs: 4,
		},
		{
			ID:                 "flux_pro",
			Name:               "FLUX.1 [pro] Fill",
			Endpoint:           "fal-ai/flux-pro/v1/fill",
			Archetype:          ArchetypeInpainting,
			OutputKind:         domain.KindImage,
			Description:        "Premium inpainting/outpainting endpoint. Fills masked regions of an image.",
			SupportsImageInput: true,
			UseRESTFallback:    true,
			DefaultParams: map[string]any{
				"safety_tolerance": "2",
				"output_format":    "jpeg",
				"num_images":       1,
				"sync_mode":        true,
			},
			ParamSchema: []string{"seed", "safety_tolerance", "output_format"},
			Validation: ValidationRules{
				Prompt: FieldRule{Required: true, MaxLength: 1000},
				Image:  FieldRule{Required: true, MaxSizeBytes: 10 << 20, AllowedFormats: []string{"jpg", "jpeg", "png", "webp"}},
				Mask:   FieldRule{Required: true, MaxSizeBytes: 10 << 20, AllowedFormats: []string{"jpg", "jpeg", "png", "webp"}},
			},
			MaxOutputs:        1,
			DefaultNumOutputs: 1,
			AlternateFormats: []AlternateFormat{
				{
					Endpoint: "fal-ai/flux-pro/v1/fill",
					Payload: map[string]any{
						"prompt":           "{prompt}",
						"image_url":        "{image_url}",
						"mask_url":         "{mask_url}",
						"safety_tolerance": "2",
						"output_format":    "jpeg",
						"num_images":       1,
						"sync_mode":        true,
					},
				},
			},
		},
		{
			ID:          "recraft",
			Name:        "Recraft V3",
			Endpoint:    "fal-ai/recraft-v3",
			Archetype:   ArchetypeTextToImage,
			OutputKind:  domain.KindImage,
			Description: "Vector-art style images with clean lines and shapes. Text-to-image only.",
			DefaultParams: map[string]any{
				"style": "vector_illustration",
			},
			ParamSchema: []string{"style", "seed"},
			Validation: ValidationRules{
				Prompt: FieldRule{Required: true, MaxLength: 1000},
			},
			MaxOutputs:        4,
			DefaultNumOutputs: 1,
		},
		{
			ID:                 "stable_diffusion",
			Name:               "Stable Diffusion V3",
			Endpoint:           "fal-ai/stable-diffusion-v3-medium",
			Archetype:          ArchetypeHybrid,
			OutputKind:         domain.KindImage,
			Description:        "Detailed images with high fidelity. Supports both text prompts and image inputs.",
			SupportsImageInput: true,
			UseDirectClient:    true,
			DefaultParams: map[string]any{
				"num_inference_steps": 30,
				"guidance_scale":      7.5,
				"strength":            0.75,
			},
			ParamSchema: []string{"negative_prompt", "guidance_scale", "num_inference_steps", "strength", "seed"},
			Validation: ValidationRules{
				Prompt: FieldRule{Required: true, MaxLength: 1000},
				Image:  FieldRule{MaxSizeBytes: 10 << 20, AllowedFormats: []string{"jpg", "jpeg", "png", "webp"}},
			},
			MaxOutputs:        4,
			DefaultNumOutputs: 1,
		},
		{
			ID:          "stable_video",
			Name:        "Stable Video Diffusion",
			Endpoint:    "fal-ai/stable-video",
			Archetype:   ArchetypeImageToVideo,
			OutputKind:  domain.KindVideo,
			Description: "Animates a still image into a short clip. The prompt is ignored.",
			Slow:        true,
			DefaultParams: map[string]any{
				"motion_bucket_id": 127,
				"cond_aug":         0.02,
				"fps":              25,
			},
			ParamSchema: []string{"motion_bucket_id", "cond_aug", "fps", "seed"},
			Validation: ValidationRules{
				Image: FieldRule{Required: true, MaxSizeBytes: 10 << 20, AllowedFormats: []string{"jpg", "jpeg", "png", "webp"}},
			},
			MaxOutputs:        1,
			DefaultNumOutputs: 1,
		},
	}
}
