package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultOpenAIURL is the OpenAI API endpoint. Any OpenAI-compatible
// service works by overriding the base URL.
const DefaultOpenAIURL = "https://api.openai.com"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4"

// apiPathCompletions is the chat completions endpoint.
const apiPathCompletions = "/v1/chat/completions"

// OpenAI is a hosted OpenAI-compatible backend.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// OpenAIOption configures an OpenAI backend.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL sets the API base URL, for OpenAI-compatible services.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the model name.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithOpenAIAPIKey sets the API key explicitly, overriding the
// OPENAI_API_KEY environment variable.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(o *OpenAI) { o.apiKey = key }
}

// WithOpenAITimeout sets the request timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) { o.client.Timeout = d }
}

// NewOpenAI creates an OpenAI-compatible backend. The API key comes from
// the OPENAI_API_KEY environment variable unless set via option.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	o := &OpenAI{
		baseURL: DefaultOpenAIURL,
		model:   DefaultOpenAIModel,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY or pass an explicit key", ErrMissingAPIKey)
	}
	return o, nil
}

// Name implements Backend.
func (o *OpenAI) Name() string { return "openai" }

// Model implements Backend.
func (o *OpenAI) Model() string { return o.model }

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClassifyCitation implements Backend.
func (o *OpenAI) ClassifyCitation(ctx context.Context, contexts []string, paper PaperMetadata, datasetID string) ClassificationResult {
	reqBody := openAIChatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: ClassificationSystemPrompt},
			{Role: "user", Content: BuildClassificationPrompt(contexts, paper, datasetID)},
		},
		Temperature: 0.1,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+apiPathCompletions, bytes.NewReader(payload))
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Fallback(fmt.Sprintf("API error: status %d", resp.StatusCode), contexts)
	}

	var chat openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Fallback(fmt.Sprintf("API error: %v", err), contexts)
	}
	if len(chat.Choices) == 0 {
		return Fallback("API error: empty choices", contexts)
	}

	return ParseResult(chat.Choices[0].Message.Content, contexts)
}
