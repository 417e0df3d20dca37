package graphstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

func newTestClient(url string) *Client {
	return NewClient(&config.GraphConfig{
		BaseURL:  url,
		Database: "neo4j",
		User:     "neo4j",
		Password: "secret",
	})
}

func TestVisualize_DeduplicatesNodes(t *testing.T) {
	var gotStatement string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/db/neo4j/tx/commit" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req txRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Statements) != 1 {
			t.Fatalf("expected 1 statement got %d", len(req.Statements))
		}
		gotStatement = req.Statements[0].Statement

		// Alice appears in two rows; she must come back as one node.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"data": [
			{"row": ["Alice", "Person", "WORKS_ON", "Atlas", "Project"]},
			{"row": ["Alice", "Person", "MENTIONED", "Acme", "Company"]}
		]}], "errors": []}`))
	}))
	defer server.Close()

	data, err := newTestClient(server.URL).Visualize(context.Background(), 0)
	if err != nil {
		t.Fatalf("visualize failed: %v", err)
	}
	if !strings.Contains(gotStatement, "MATCH (a)-[r]->(b)") {
		t.Fatalf("unexpected statement: %s", gotStatement)
	}
	if len(data.Nodes) != 3 {
		t.Fatalf("expected 3 deduplicated nodes got %+v", data.Nodes)
	}
	if len(data.Links) != 2 {
		t.Fatalf("expected 2 links got %+v", data.Links)
	}
	if data.Links[0].Source != "Alice" || data.Links[0].Target != "Atlas" || data.Links[0].Label != "WORKS_ON" {
		t.Fatalf("unexpected first link: %+v", data.Links[0])
	}
}

func TestVisualize_EmptyGraph(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"data": []}], "errors": []}`))
	}))
	defer server.Close()

	data, err := newTestClient(server.URL).Visualize(context.Background(), 10)
	if err != nil {
		t.Fatalf("visualize failed: %v", err)
	}
	if len(data.Nodes) != 0 || len(data.Links) != 0 {
		t.Fatalf("expected empty payload got %+v", data)
	}
}

func TestVisualize_TransactionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [], "errors": [{"code": "Neo.ClientError", "message": "boom"}]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Visualize(context.Background(), 10); err == nil {
		t.Fatal("expected error from transaction failure")
	}
}
