// Package graphstore talks to a Neo4j server through its HTTP transaction
// API. All writes use MERGE so re-running an extraction is additive, never
// destructive.
package graphstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// Client is a minimal Neo4j HTTP transaction API client.
type Client struct {
	baseURL  string
	database string
	user     string
	password string
	client   *http.Client
}

// NewClient creates a graph store client from config.
func NewClient(cfg *config.GraphConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		database: cfg.Database,
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type statement struct {
	Statement  string                 `json:"statement"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type txRequest struct {
	Statements []statement `json:"statements"`
}

type txResponse struct {
	Results []struct {
		Data []struct {
			Row []json.RawMessage `json:"row"`
		} `json:"data"`
	} `json:"results"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// MergeExtraction merges the nodes and relationships of one meeting into the
// shared graph. Nodes are keyed by name; relationships by the endpoint pair
// and type. Repeated merges of the same extraction are no-ops.
func (c *Client) MergeExtraction(ctx context.Context, extraction *entities.GraphExtraction) error {
	if extraction == nil || (len(extraction.Nodes) == 0 && len(extraction.Relationships) == 0) {
		return nil
	}

	statements := make([]statement, 0, len(extraction.Nodes)+len(extraction.Relationships))
	for _, n := range extraction.Nodes {
		statements = append(statements, statement{
			// Label comes from a closed vocabulary, so interpolation is safe.
			Statement: fmt.Sprintf("MERGE (n:%s {name: $name}) SET n.meetingId = $meetingId", n.Type),
			Parameters: map[string]interface{}{
				"name":      n.Name,
				"meetingId": n.MeetingID,
			},
		})
	}
	for _, r := range extraction.Relationships {
		statements = append(statements, statement{
			Statement: fmt.Sprintf(
				"MATCH (a {name: $from}), (b {name: $to}) MERGE (a)-[rel:%s]->(b) SET rel.meetingId = $meetingId",
				r.Type,
			),
			Parameters: map[string]interface{}{
				"from":      r.From,
				"to":        r.To,
				"meetingId": r.MeetingID,
			},
		})
	}

	return c.commit(ctx, statements, nil)
}

// NeighborFact is one (node)-[rel]->(node) triple returned by Neighbors.
type NeighborFact struct {
	From string `json:"from"`
	Rel  string `json:"rel"`
	To   string `json:"to"`
}

// Neighbors returns the relationships touching the named entities, used as
// graph context for chat answers.
func (c *Client) Neighbors(ctx context.Context, names []string, limit int) ([]NeighborFact, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}

	var facts []NeighborFact
	err := c.commit(ctx, []statement{{
		Statement: "MATCH (a)-[r]->(b) WHERE a.name IN $names OR b.name IN $names " +
			"RETURN a.name, type(r), b.name LIMIT $limit",
		Parameters: map[string]interface{}{
			"names": names,
			"limit": limit,
		},
	}}, func(rows [][]json.RawMessage) {
		for _, row := range rows {
			if len(row) != 3 {
				continue
			}
			var fact NeighborFact
			json.Unmarshal(row[0], &fact.From)
			json.Unmarshal(row[1], &fact.Rel)
			json.Unmarshal(row[2], &fact.To)
			facts = append(facts, fact)
		}
	})
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// GraphNode is one deduplicated node of the visualization payload.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphLink is one directed edge of the visualization payload.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// GraphData is the nodes-and-links shape force-graph frontends consume.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Visualize returns a bounded slice of the graph as deduplicated nodes plus
// directed links. Nodes are identified by name, labeled with their type.
func (c *Client) Visualize(ctx context.Context, limit int) (*GraphData, error) {
	if limit <= 0 {
		limit = 300
	}

	data := &GraphData{Nodes: []GraphNode{}, Links: []GraphLink{}}
	seen := make(map[string]bool)
	err := c.commit(ctx, []statement{{
		Statement: "MATCH (a)-[r]->(b) " +
			"RETURN a.name, labels(a)[0], type(r), b.name, labels(b)[0] LIMIT $limit",
		Parameters: map[string]interface{}{"limit": limit},
	}}, func(rows [][]json.RawMessage) {
		for _, row := range rows {
			if len(row) != 5 {
				continue
			}
			var from, fromLabel, rel, to, toLabel string
			json.Unmarshal(row[0], &from)
			json.Unmarshal(row[1], &fromLabel)
			json.Unmarshal(row[2], &rel)
			json.Unmarshal(row[3], &to)
			json.Unmarshal(row[4], &toLabel)
			if from == "" || to == "" {
				continue
			}
			if !seen[from] {
				seen[from] = true
				data.Nodes = append(data.Nodes, GraphNode{ID: from, Label: fromLabel})
			}
			if !seen[to] {
				seen[to] = true
				data.Nodes = append(data.Nodes, GraphNode{ID: to, Label: toLabel})
			}
			data.Links = append(data.Links, GraphLink{Source: from, Target: to, Label: rel})
		}
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) commit(ctx context.Context, statements []statement, collect func([][]json.RawMessage)) error {
	b, err := json.Marshal(txRequest{Statements: statements})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/db/%s/tx/commit", c.baseURL, c.database)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("graph store returned status %d", resp.StatusCode)
	}

	var parsed txResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return fmt.Errorf("graph transaction failed: %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}

	if collect != nil && len(parsed.Results) > 0 {
		rows := make([][]json.RawMessage, 0, len(parsed.Results[0].Data))
		for _, d := range parsed.Results[0].Data {
			rows = append(rows, d.Row)
		}
		collect(rows)
	}
	return nil
}
