// Package llm holds the catalog of built-in LLM providers and an HTTP
// probe for verifying credentials and discovering model lists.
package llm

import (
	"errors"
	"strings"
)

// ProviderType identifies a built-in provider family.
type ProviderType string

const (
	ProviderOpenAI      ProviderType = "openai"
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderMoonshot    ProviderType = "moonshot"
	ProviderHuggingFace ProviderType = "huggingface"
)

// ErrInvalidProvider is returned for unknown provider types.
var ErrInvalidProvider = errors.New("llm: invalid provider type")

// ParseProviderType normalizes a string into a known ProviderType.
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "moonshot", "kimi":
		return ProviderMoonshot, nil
	case "huggingface", "hf":
		return ProviderHuggingFace, nil
	default:
		return "", ErrInvalidProvider
	}
}

// Payload schema tags describe the request shape a provider accepts.
// Custom providers must declare one of these.
const (
	SchemaOpenAIChat        = "openai_chat"
	SchemaAnthropicMessages = "anthropic_messages"
	SchemaHFText            = "hf_text"
	SchemaRawJSON           = "raw_json"
)

// customPayloadSchemas are the schemas a custom provider may declare.
var customPayloadSchemas = map[string]struct{}{
	SchemaOpenAIChat: {},
	SchemaHFText:     {},
	SchemaRawJSON:    {},
}

// ValidCustomPayloadSchema reports whether s is an accepted payload
// schema tag for custom providers.
func ValidCustomPayloadSchema(s string) bool {
	_, ok := customPayloadSchemas[s]
	return ok
}

// Defaults holds the catalog entry for a built-in provider. An empty
// ModelsEndpoint means the provider has no discovery endpoint and
// StaticModels is authoritative.
type Defaults struct {
	DisplayName    string
	BaseURL        string
	AuthHeader     string
	AuthPrefix     string
	ModelsEndpoint string
	ModelsJSONPath string
	PayloadSchema  string
	ExtraHeaders   map[string]string
	StaticModels   []string
}

var catalog = map[ProviderType]Defaults{
	ProviderOpenAI: {
		DisplayName:    "OpenAI",
		BaseURL:        "https://api.openai.com/v1",
		AuthHeader:     "Authorization",
		AuthPrefix:     "Bearer ",
		ModelsEndpoint: "/models",
		ModelsJSONPath: "data[].id",
		PayloadSchema:  SchemaOpenAIChat,
	},
	ProviderAnthropic: {
		DisplayName:   "Anthropic Claude",
		BaseURL:       "https://api.anthropic.com/v1",
		AuthHeader:    "x-api-key",
		AuthPrefix:    "",
		PayloadSchema: SchemaAnthropicMessages,
		ExtraHeaders:  map[string]string{"anthropic-version": "2023-06-01"},
		// Anthropic has no discovery endpoint; curated list.
		StaticModels: []string{
			"claude-3-opus-20240229",
			"claude-3-sonnet-20240229",
			"claude-3-haiku-20240307",
			"claude-3-5-sonnet-20241022",
		},
	},
	ProviderMoonshot: {
		DisplayName:    "Moonshot AI",
		BaseURL:        "https://api.moonshot.cn/v1",
		AuthHeader:     "Authorization",
		AuthPrefix:     "Bearer ",
		ModelsEndpoint: "/models",
		ModelsJSONPath: "data[].id",
		PayloadSchema:  SchemaOpenAIChat,
		// Fallback when the endpoint is unreachable.
		StaticModels: []string{
			"moonshot-v1-8k",
			"moonshot-v1-32k",
			"moonshot-v1-128k",
		},
	},
	ProviderHuggingFace: {
		DisplayName:   "HuggingFace Inference",
		BaseURL:       "https://api-inference.huggingface.co",
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		PayloadSchema: SchemaHFText,
		StaticModels: []string{
			"microsoft/DialoGPT-large",
			"microsoft/DialoGPT-medium",
			"facebook/blenderbot-400M-distill",
			"HuggingFaceH4/zephyr-7b-beta",
			"mistralai/Mixtral-8x7B-Instruct-v0.1",
		},
	},
}

// BuiltinDefaults returns the catalog entry for a provider type.
func BuiltinDefaults(t ProviderType) (Defaults, bool) {
	d, ok := catalog[t]
	return d, ok
}

// BuiltinTypes lists the known built-in provider types in a stable order.
func BuiltinTypes() []ProviderType {
	return []ProviderType{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderMoonshot,
		ProviderHuggingFace,
	}
}

// DefaultBaseURL returns the catalog base URL for a provider type, or ""
// for unknown types.
func DefaultBaseURL(t ProviderType) string {
	return catalog[t].BaseURL
}

// DisplayName returns the human-readable name for a provider type, or ""
// for unknown types.
func DisplayName(t ProviderType) string {
	return catalog[t].DisplayName
}
