package providers

import "testing"

func TestNewOllama_Defaults(t *testing.T) {
	p := NewOllama("")
	if p.BaseURL() != "http://localhost:11434" {
		t.Errorf("BaseURL() = %q, want default Ollama address", p.BaseURL())
	}
	if got := p.EmbeddingsURL(); got != "http://localhost:11434/api/embed" {
		t.Errorf("EmbeddingsURL() = %q", got)
	}
}

func TestNewOllama_TrimsTrailingSlash(t *testing.T) {
	p := NewOllama("http://ollama.internal:11434/")
	if got := p.EmbeddingsURL(); got != "http://ollama.internal:11434/api/embed" {
		t.Errorf("EmbeddingsURL() = %q", got)
	}
}

func TestNewOpenAICompatible(t *testing.T) {
	if _, err := NewOpenAICompatible(""); err == nil {
		t.Error("expected error for empty base URL")
	}

	p, err := NewOpenAICompatible("https://embed.example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.EmbeddingsURL(); got != "https://embed.example.com/api/v1/embeddings" {
		t.Errorf("EmbeddingsURL() = %q", got)
	}
}

func TestNew_ModeSelection(t *testing.T) {
	p, err := New(ModeOllama, "")
	if err != nil {
		t.Fatalf("New(ollama) error: %v", err)
	}
	if p.Name() != ModeOllama {
		t.Errorf("Name() = %q, want ollama", p.Name())
	}

	p, err = New(ModeOpenAI, "https://api.example.com")
	if err != nil {
		t.Fatalf("New(openai) error: %v", err)
	}
	if p.Name() != ModeOpenAI {
		t.Errorf("Name() = %q, want openai", p.Name())
	}

	if _, err := New("anthropic", "https://x"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
