// Package providers defines the upstream embedding-provider modes and the
// retrying Fetcher that calls them.
//
// A provider here is an identity plus an embeddings endpoint URL; the router
// never validates model names or response dimensionality, both are opaque
// passthrough values owned by the upstream service.
package providers

import (
	"fmt"
	"strings"
)

// Provider mode names accepted in configuration.
const (
	ModeOpenAI = "openai"
	ModeOllama = "ollama"
)

// Provider identifies an upstream embedding service and knows where its
// embeddings endpoint lives.
type Provider interface {
	Name() string
	// BaseURL returns the provider's root URL (no trailing slash).
	BaseURL() string
	// EmbeddingsURL returns the full URL of the embeddings endpoint.
	EmbeddingsURL() string
}

// base carries the fields shared by provider implementations.
type base struct {
	name    string
	baseURL string
}

func (b *base) Name() string    { return b.name }
func (b *base) BaseURL() string { return b.baseURL }

// Ollama is a local Ollama-style server exposing POST /api/embed.
type Ollama struct {
	base
}

// NewOllama creates an Ollama provider. An empty baseURL defaults to the
// standard local Ollama address.
func NewOllama(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{base{name: ModeOllama, baseURL: strings.TrimRight(baseURL, "/")}}
}

// EmbeddingsURL implements Provider.
func (p *Ollama) EmbeddingsURL() string { return p.baseURL + "/api/embed" }

// OpenAICompatible is any service exposing an OpenAI-style embeddings
// endpoint at POST /api/v1/embeddings under its base URL.
type OpenAICompatible struct {
	base
}

// NewOpenAICompatible creates an OpenAI-compatible provider.
func NewOpenAICompatible(baseURL string) (*OpenAICompatible, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("openai-compatible provider requires a base URL")
	}
	return &OpenAICompatible{base{name: ModeOpenAI, baseURL: strings.TrimRight(baseURL, "/")}}, nil
}

// EmbeddingsURL implements Provider.
func (p *OpenAICompatible) EmbeddingsURL() string { return p.baseURL + "/api/v1/embeddings" }

// New creates the provider for a configured mode.
func New(mode, baseURL string) (Provider, error) {
	switch mode {
	case ModeOllama:
		return NewOllama(baseURL), nil
	case ModeOpenAI, "":
		return NewOpenAICompatible(baseURL)
	default:
		return nil, fmt.Errorf("unknown provider mode %q (want %q or %q)", mode, ModeOpenAI, ModeOllama)
	}
}
