package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaClassifyCitation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if req.Options.Temperature != 0.1 {
			t.Errorf("temperature = %v", req.Options.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "dandi:000003") {
			t.Error("user prompt missing dataset id")
		}

		w.Write([]byte(`{"message":{"content":"{\"relationship_type\": \"Uses\", \"confidence\": 0.9, \"reasoning\": \"analyzed\"}"}}`))
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaBaseURL(srv.URL), WithOllamaModel("gemma:2b"))
	got := o.ClassifyCitation(context.Background(),
		[]string{"we analyzed DANDI:000003"},
		PaperMetadata{Title: "A paper"}, "dandi:000003")

	if got.RelationshipType != "Uses" || got.Confidence != 0.9 {
		t.Errorf("result = %+v", got)
	}
}

func TestOllamaClassifyCitation_ServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaBaseURL(srv.URL))
	got := o.ClassifyCitation(context.Background(), []string{"ctx"}, PaperMetadata{}, "x")

	if got.RelationshipType != "Cites" || got.Confidence != 0.0 {
		t.Errorf("result = %+v, want fallback", got)
	}
	if !strings.Contains(got.Reasoning, "API error") {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
}

func TestOpenAIClassifyCitation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"relationship_type\": \"IsDocumentedBy\", \"confidence\": 0.95, \"reasoning\": \"data descriptor\"}"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(WithOpenAIBaseURL(srv.URL), WithOpenAIAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	got := o.ClassifyCitation(context.Background(), []string{"we present"}, PaperMetadata{}, "dandi:000108")

	if got.RelationshipType != "IsDocumentedBy" || got.Confidence != 0.95 {
		t.Errorf("result = %+v", got)
	}
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAI(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewOpenAI() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestOpenAIClassifyCitation_EmptyChoicesFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(WithOpenAIBaseURL(srv.URL), WithOpenAIAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	got := o.ClassifyCitation(context.Background(), nil, PaperMetadata{}, "x")
	if got.RelationshipType != "Cites" || got.Confidence != 0.0 {
		t.Errorf("result = %+v, want fallback", got)
	}
}
