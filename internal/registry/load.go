package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rpriscu/ai-image-generator/internal/domain"
)

type fieldRuleJSON struct {
	Required       bool     `json:"required"`
	MinLength      int      `json:"min_length"`
	MaxLength      int      `json:"max_length"`
	MaxSizeBytes   int64    `json:"max_size_bytes"`
	AllowedFormats []string `json:"allowed_formats"`
}

type validationJSON struct {
	Prompt fieldRuleJSON `json:"prompt"`
	Image  fieldRuleJSON `json:"image"`
	Mask   fieldRuleJSON `json:"mask"`
}

type alternateFormatJSON struct {
	Endpoint string         `json:"endpoint"`
	Payload  map[string]any `json:"payload"`
}

type modelConfigJSON struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Endpoint           string                `json:"endpoint"`
	Archetype          string                `json:"type"`
	OutputKind         string                `json:"output_kind"`
	Description        string                `json:"description"`
	SupportsImageInput bool                  `json:"supports_image_input"`
	UseDirectClient    bool                  `json:"use_direct_client"`
	UseRESTFallback    bool                  `json:"use_rest_fallback"`
	Slow               bool                  `json:"slow"`
	ReferenceAdapter   bool                  `json:"reference_adapter"`
	DefaultParams      map[string]any        `json:"params"`
	ParamSchema        []string              `json:"param_schema"`
	Validation         validationJSON        `json:"validation"`
	MaxOutputs         int                   `json:"max_outputs"`
	DefaultNumOutputs  int                   `json:"default_num_outputs"`
	AlternateFormats   []alternateFormatJSON `json:"alt_formats"`
}

type catalogJSON struct {
	Models []modelConfigJSON `json:"models"`
}

// LoadCatalogFile reads a JSON model catalog. Decoding is strict: unknown
// keys are a load-time error, not something to silently accept.
func LoadCatalogFile(path string) ([]ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a strict JSON catalog document.
func ParseCatalog(raw []byte) ([]ModelConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc catalogJSON
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("registry: decode catalog: %w", err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("registry: catalog defines no models")
	}
	configs := make([]ModelConfig, 0, len(doc.Models))
	for _, m := range doc.Models {
		configs = append(configs, fromJSON(m))
	}
	return configs, nil
}

func fromJSON(m modelConfigJSON) ModelConfig {
	cfg := ModelConfig{
		ID:                 m.ID,
		Name:               m.Name,
		Endpoint:           m.Endpoint,
		Archetype:          Archetype(m.Archetype),
		OutputKind:         domain.Kind(m.OutputKind),
		Description:        m.Description,
		SupportsImageInput: m.SupportsImageInput,
		UseDirectClient:    m.UseDirectClient,
		UseRESTFallback:    m.UseRESTFallback,
		Slow:               m.Slow,
		ReferenceAdapter:   m.ReferenceAdapter,
		DefaultParams:      m.DefaultParams,
		ParamSchema:        m.ParamSchema,
		MaxOutputs:         m.MaxOutputs,
		DefaultNumOutputs:  m.DefaultNumOutputs,
	}
	if cfg.OutputKind == "" {
		if cfg.Archetype == ArchetypeImageToVideo {
			cfg.OutputKind = domain.KindVideo
		} else {
			cfg.OutputKind = domain.KindImage
		}
	}
	if cfg.MaxOutputs == 0 {
		cfg.MaxOutputs = 4
	}
	if cfg.DefaultNumOutputs == 0 {
		cfg.DefaultNumOutputs = 1
	}
	cfg.Validation = ValidationRules{
		Prompt: fieldRuleFromJSON(m.Validation.Prompt),
		Image:  fieldRuleFromJSON(m.Validation.Image),
		Mask:   fieldRuleFromJSON(m.Validation.Mask),
	}
	for _, alt := range m.AlternateFormats {
		cfg.AlternateFormats = append(cfg.AlternateFormats, AlternateFormat{
			Endpoint: alt.Endpoint,
			Payload:  alt.Payload,
		})
	}
	return cfg
}

func fieldRuleFromJSON(r fieldRuleJSON) FieldRule {
	return FieldRule{
		Required:       r.Required,
		MinLength:      r.MinLength,
		MaxLength:      r.MaxLength,
		MaxSizeBytes:   r.MaxSizeBytes,
		AllowedFormats: r.AllowedFormats,
	}
}
