package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

func TestChat_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "the answer"}},
			},
		})
	}))
	defer ts.Close()

	client := NewOpenAIClient(&config.AIConfig{APIKey: "test-key", BaseURL: ts.URL})
	got, err := client.Chat(context.Background(), "be helpful", "question")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if got != "the answer" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestChat_ProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewOpenAIClient(&config.AIConfig{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Chat(context.Background(), "", "question"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestCreateEmbeddings_OrderedByIndex(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		// Deliver out of order; the client must restore input order.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer ts.Close()

	client := NewOpenAIClient(&config.AIConfig{APIKey: "test-key", BaseURL: ts.URL})
	vecs, err := client.CreateEmbeddings(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embeddings failed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 0.1 || vecs[1][0] != 0.2 {
		t.Fatalf("vectors not ordered by index: %v", vecs)
	}
}

func TestCreateEmbeddings_EmptyInput(t *testing.T) {
	client := NewOpenAIClient(nil)
	vecs, err := client.CreateEmbeddings(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("empty input should short-circuit: %v %v", vecs, err)
	}
}
