// Package vectorstore talks to a Pinecone-compatible vector index over HTTP.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// Vector is one upsert row. IDs are caller-provided and deterministic, so
// repeating an upsert replaces values instead of accumulating duplicates.
type Vector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Client is a minimal HTTP client for the vector index.
type Client struct {
	baseURL   string
	apiKey    string
	namespace string
	client    *http.Client
}

// NewClient creates a vector store client from config.
func NewClient(cfg *config.VectorConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Upsert writes vectors into the index. Existing IDs are overwritten.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	body := map[string]interface{}{
		"vectors":   vectors,
		"namespace": c.namespace,
	}
	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := c.post(ctx, "/vectors/upsert", body, &resp); err != nil {
		return fmt.Errorf("vector upsert failed: %w", err)
	}
	return nil
}

// Query returns the topK nearest vectors, optionally restricted by a
// metadata filter.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"namespace":       c.namespace,
		"includeMetadata": true,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	var resp struct {
		Matches []Match `json:"matches"`
	}
	if err := c.post(ctx, "/query", body, &resp); err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return resp.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("vector store returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode vector store response: %w", err)
		}
	}
	return nil
}
