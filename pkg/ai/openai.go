package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// LLMClient is the interface the pipeline stages depend on. The concrete
// OpenAIClient talks to any OpenAI-compatible API; tests substitute fakes.
type LLMClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIClient is a minimal client for OpenAI-compatible chat completion and
// embedding endpoints.
type OpenAIClient struct {
	apiKey          string
	baseURL         string
	completionModel string
	embeddingModel  string
	client          *http.Client
}

// NewOpenAIClient creates a client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewOpenAIClient(cfg *config.AIConfig) *OpenAIClient {
	var apiKey, base, completionModel, embeddingModel string
	timeout := 30 * time.Second
	if cfg != nil {
		apiKey = cfg.APIKey
		base = cfg.BaseURL
		completionModel = cfg.CompletionModel
		embeddingModel = cfg.EmbeddingModel
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}
	if apiKey == "" {
		apiKey = os.Getenv("AI_API_KEY")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if completionModel == "" {
		completionModel = "gpt-4o-mini"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	return &OpenAIClient{
		apiKey:          apiKey,
		baseURL:         base,
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		client:          &http.Client{Timeout: timeout},
	}
}

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends a system+user prompt pair and returns the assistant content.
func (c *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	messages := make([]ChatMessage, 0, 2)
	if system != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: user})

	reqBody := ChatRequest{
		Model:       c.completionModel,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   8000,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("llm provider returned status %d", resp.StatusCode)
	}

	var parsed ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// CreateEmbeddings returns one embedding vector per input text, in order.
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"model": c.embeddingModel,
		"input": texts,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	vecs := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	return vecs, nil
}
