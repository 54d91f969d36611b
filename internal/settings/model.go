package settings

import (
	"time"
)

// RecordType discriminates the two provider record variants.
type RecordType string

const (
	// TypeBuiltIn records reference the built-in catalog; empty fields
	// are filled from catalog defaults.
	TypeBuiltIn RecordType = "built_in"
	// TypeCustom records must carry their own base URL and payload
	// schema.
	TypeCustom RecordType = "custom"
)

// Config is the configuration document persisted as config/config.yaml.
// It never contains secret material; credentials live in the encrypted
// secret store keyed by provider id.
type Config struct {
	Version            int                       `yaml:"version" json:"version"`
	ActiveProvider     string                    `yaml:"active_provider" json:"active_provider"`
	ActiveModel        string                    `yaml:"active_model" json:"active_model"`
	Providers          map[string]ProviderRecord `yaml:"providers" json:"providers"`
	Inference          Inference                 `yaml:"inference" json:"inference"`
	ImageGeneration    ImageGeneration           `yaml:"image_generation" json:"image_generation"`
	Limits             Limits                    `yaml:"limits" json:"limits"`
	OnboardingComplete bool                      `yaml:"onboarding_complete" json:"onboarding_complete"`
}

// ProviderRecord describes one configured LLM endpoint. Its credential
// lives in the secret store under the same id.
type ProviderRecord struct {
	ID             string     `yaml:"id" json:"id"`
	Alias          string     `yaml:"alias,omitempty" json:"alias,omitempty"`
	Type           RecordType `yaml:"type" json:"type"`
	BaseURL        string     `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	AuthHeader     string     `yaml:"auth_header,omitempty" json:"auth_header,omitempty"`
	AuthPrefix     string     `yaml:"auth_prefix,omitempty" json:"auth_prefix,omitempty"`
	ModelsEndpoint string     `yaml:"models_endpoint,omitempty" json:"models_endpoint,omitempty"`
	ModelsJSONPath string     `yaml:"models_json_path,omitempty" json:"models_json_path,omitempty"`
	PayloadSchema  string     `yaml:"payload_schema,omitempty" json:"payload_schema,omitempty"`
	Models         []string   `yaml:"models,omitempty" json:"models,omitempty"`
	LastAuthCheck  *time.Time `yaml:"last_auth_check,omitempty" json:"last_auth_check,omitempty"`
}

// Inference holds the generation defaults applied when a request does
// not override them.
type Inference struct {
	Temperature      float64 `yaml:"temperature" json:"temperature"`
	TopP             float64 `yaml:"top_p" json:"top_p"`
	MaxTokens        int     `yaml:"max_tokens" json:"max_tokens"`
	PresencePenalty  float64 `yaml:"presence_penalty" json:"presence_penalty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" json:"frequency_penalty"`
	Streaming        bool    `yaml:"streaming" json:"streaming"`
}

// ImageGeneration holds the image feature toggle and its defaults.
type ImageGeneration struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Provider     string `yaml:"provider" json:"provider"`
	Model        string `yaml:"model" json:"model"`
	OutputFormat string `yaml:"output_format" json:"output_format"`
}

// Limits bounds request sizes and runtimes.
type Limits struct {
	MaxPromptChars        int `yaml:"max_prompt_chars" json:"max_prompt_chars"`
	MaxSourcesPerRun      int `yaml:"max_sources_per_run" json:"max_sources_per_run"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
}

// Credential is the secret material for one provider. It is serialized
// to JSON and encrypted as part of the secret store blob, never written
// in the clear.
type Credential struct {
	APIKey  string            `json:"api_key"`
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultInference returns the stock generation defaults.
func DefaultInference() Inference {
	return Inference{
		Temperature:      0.7,
		TopP:             1.0,
		MaxTokens:        1024,
		PresencePenalty:  0.0,
		FrequencyPenalty: 0.0,
		Streaming:        true,
	}
}

// DefaultImageGeneration returns the stock image settings, disabled.
func DefaultImageGeneration() ImageGeneration {
	return ImageGeneration{
		Enabled:      false,
		Provider:     "openai",
		Model:        "dall-e-3",
		OutputFormat: "png",
	}
}

// DefaultLimits returns the stock request bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxPromptChars:        8000,
		MaxSourcesPerRun:      25,
		RequestTimeoutSeconds: 120,
	}
}

// DefaultConfig returns a fresh document at the current schema version.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentVersion,
		Providers:       map[string]ProviderRecord{},
		Inference:       DefaultInference(),
		ImageGeneration: DefaultImageGeneration(),
		Limits:          DefaultLimits(),
	}
}

// DeepCopy returns an independent copy; mutating the copy never touches
// the original. Save hands mutators a copy so a failing mutation cannot
// corrupt loaded state.
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Providers = make(map[string]ProviderRecord, len(c.Providers))
	for id, rec := range c.Providers {
		out.Providers[id] = rec.deepCopy()
	}
	return &out
}

func (r ProviderRecord) deepCopy() ProviderRecord {
	out := r
	if r.Models != nil {
		out.Models = append([]string(nil), r.Models...)
	}
	if r.LastAuthCheck != nil {
		ts := *r.LastAuthCheck
		out.LastAuthCheck = &ts
	}
	return out
}

func (cr Credential) deepCopy() Credential {
	out := cr
	if cr.Headers != nil {
		out.Headers = make(map[string]string, len(cr.Headers))
		for k, v := range cr.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
