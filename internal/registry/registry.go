// Package registry holds the static model catalog: one immutable ModelConfig
// per model id, loaded once at startup. Adding a model is a catalog change,
// not a code change, as long as an existing archetype fits.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/domain"
)

// Archetype is the input/output shape class of a generation model.
type Archetype string

const (
	ArchetypeTextToImage  Archetype = "text-to-image"
	ArchetypeImageToVideo Archetype = "image-to-video"
	ArchetypeInpainting   Archetype = "inpainting"
	ArchetypeHybrid       Archetype = "hybrid"
)

// Capability names accepted by ListByCapability.
const (
	CapabilityDirectClient = "direct_client"
	CapabilityRESTFallback = "rest_fallback"
	CapabilityImageInput   = "image_input"
	CapabilitySlow         = "slow"
)

// FieldRule constrains one caller-supplied input.
type FieldRule struct {
	Required       bool
	MinLength      int
	MaxLength      int
	MaxSizeBytes   int64
	AllowedFormats []string
}

// ValidationRules groups the per-field constraints of a model.
type ValidationRules struct {
	Prompt FieldRule
	Image  FieldRule
	Mask   FieldRule
}

// AlternateFormat is one fallback request shape. Payload values may contain
// the placeholders {prompt}, {image_url} and {mask_url}; ordering in the
// slice defines retry precedence.
type AlternateFormat struct {
	Endpoint string
	Payload  map[string]any
}

// ModelConfig is the immutable per-model record. It is data, not behavior:
// the handler archetype and the generation client read it, never write it.
type ModelConfig struct {
	ID                 string
	Name               string
	Endpoint           string
	Archetype          Archetype
	OutputKind         domain.Kind
	Description        string
	SupportsImageInput bool
	UseDirectClient    bool
	UseRESTFallback    bool
	Slow               bool
	ReferenceAdapter   bool
	DefaultParams      map[string]any
	ParamSchema        []string
	Validation         ValidationRules
	MaxOutputs         int
	DefaultNumOutputs  int
	AlternateFormats   []AlternateFormat
}

func (c ModelConfig) hasCapability(name string) bool {
	switch name {
	case CapabilityDirectClient:
		return c.UseDirectClient
	case CapabilityRESTFallback:
		return c.UseRESTFallback
	case CapabilityImageInput:
		return c.SupportsImageInput
	case CapabilitySlow:
		return c.Slow
	default:
		return false
	}
}

func (c ModelConfig) clone() ModelConfig {
	out := c
	if c.DefaultParams != nil {
		out.DefaultParams = make(map[string]any, len(c.DefaultParams))
		for k, v := range c.DefaultParams {
			out.DefaultParams[k] = v
		}
	}
	out.ParamSchema = append([]string(nil), c.ParamSchema...)
	out.AlternateFormats = make([]AlternateFormat, len(c.AlternateFormats))
	for i, alt := range c.AlternateFormats {
		payload := make(map[string]any, len(alt.Payload))
		for k, v := range alt.Payload {
			payload[k] = v
		}
		out.AlternateFormats[i] = AlternateFormat{Endpoint: alt.Endpoint, Payload: payload}
	}
	return out
}

// Registry is the read-only lookup table over the catalog. Built once, then
// shared across requests without synchronization.
type Registry struct {
	configs map[string]ModelConfig
	order   []string
}

// New validates the catalog entries and builds a registry from them.
func New(configs []ModelConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]ModelConfig, len(configs))}
	for _, cfg := range configs {
		if err := validateConfig(cfg); err != nil {
			return nil, err
		}
		if _, exists := r.configs[cfg.ID]; exists {
			return nil, fmt.Errorf("registry: duplicate model id %q", cfg.ID)
		}
		r.configs[cfg.ID] = cfg.clone()
		r.order = append(r.order, cfg.ID)
	}
	return r, nil
}

// Get returns a defensive copy of the config for the given model id.
// Unknown ids return domain.ErrUnknownModel; never used for control flow
// beyond a plain lookup failure.
func (r *Registry) Get(id string) (ModelConfig, error) {
	cfg, ok := r.configs[strings.TrimSpace(id)]
	if !ok {
		return ModelConfig{}, fmt.Errorf("registry: %q: %w", id, domain.ErrUnknownModel)
	}
	return cfg.clone(), nil
}

// List returns all configs in catalog order.
func (r *Registry) List() []ModelConfig {
	out := make([]ModelConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id].clone())
	}
	return out
}

// ListByArchetype returns the configs matching the archetype, sorted by id.
func (r *Registry) ListByArchetype(a Archetype) []ModelConfig {
	var out []ModelConfig
	for _, cfg := range r.configs {
		if cfg.Archetype == a {
			out = append(out, cfg.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListByCapability returns the configs carrying the named capability flag,
// sorted by id. Unknown flag names yield an empty result.
func (r *Registry) ListByCapability(name string) []ModelConfig {
	var out []ModelConfig
	for _, cfg := range r.configs {
		if cfg.hasCapability(name) {
			out = append(out, cfg.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validateConfig(cfg ModelConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("registry: model id is required")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return fmt.Errorf("registry: model %q: endpoint is required", cfg.ID)
	}
	switch cfg.Archetype {
	case ArchetypeTextToImage, ArchetypeImageToVideo, ArchetypeInpainting, ArchetypeHybrid:
	default:
		return fmt.Errorf("registry: model %q: unknown archetype %q", cfg.ID, cfg.Archetype)
	}
	switch cfg.OutputKind {
	case domain.KindImage, domain.KindVideo:
	default:
		return fmt.Errorf("registry: model %q: unknown output kind %q", cfg.ID, cfg.OutputKind)
	}
	if cfg.Archetype == ArchetypeImageToVideo && cfg.OutputKind != domain.KindVideo {
		return fmt.Errorf("registry: model %q: image-to-video models must produce video", cfg.ID)
	}
	if cfg.MaxOutputs < 1 {
		return fmt.Errorf("registry: model %q: max outputs must be at least 1", cfg.ID)
	}
	if cfg.DefaultNumOutputs < 1 || cfg.DefaultNumOutputs > cfg.MaxOutputs {
		return fmt.Errorf("registry: model %q: default outputs must be within [1, %d]", cfg.ID, cfg.MaxOutputs)
	}
	for i, alt := range cfg.AlternateFormats {
		if strings.TrimSpace(alt.Endpoint) == "" {
			return fmt.Errorf("registry: model %q: alternate format %d: endpoint is required", cfg.ID, i)
		}
	}
	return nil
}
