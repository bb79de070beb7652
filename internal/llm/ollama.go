package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaURL is the local Ollama API endpoint.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "qwen2:7b"

// apiPathChat is the Ollama chat completion endpoint.
const apiPathChat = "/api/chat"

// Ollama is a local-inference backend.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaOption configures an Ollama backend.
type OllamaOption func(*Ollama)

// WithOllamaBaseURL sets the API base URL.
func WithOllamaBaseURL(url string) OllamaOption {
	return func(o *Ollama) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithOllamaModel sets the model name.
func WithOllamaModel(model string) OllamaOption {
	return func(o *Ollama) { o.model = model }
}

// WithOllamaTimeout sets the request timeout.
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(o *Ollama) { o.client.Timeout = d }
}

// NewOllama creates an Ollama backend.
func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL: DefaultOllamaURL,
		model:   DefaultOllamaModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Backend.
func (o *Ollama) Name() string { return "ollama" }

// Model implements Backend.
func (o *Ollama) Model() string { return o.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// ClassifyCitation implements Backend.
func (o *Ollama) ClassifyCitation(ctx context.Context, contexts []string, paper PaperMetadata, datasetID string) ClassificationResult {
	reqBody := ollamaChatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: ClassificationSystemPrompt},
			{Role: "user", Content: BuildClassificationPrompt(contexts, paper, datasetID)},
		},
		Stream: false,
	}
	// Low temperature for consistency
	reqBody.Options.Temperature = 0.1

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+apiPathChat, bytes.NewReader(payload))
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Fallback(fmt.Sprintf("API error: status %d", resp.StatusCode), contexts)
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}

	return ParseResult(chat.Message.Content, contexts)
}
