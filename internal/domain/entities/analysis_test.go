package entities

import "testing"

func TestNextActionItemID(t *testing.T) {
	if got := NextActionItemID(nil); got != 1 {
		t.Fatalf("empty list should start at 1, got %d", got)
	}

	// Gapped lists continue from the max, not the length.
	items := []ActionItem{{ID: 1, Text: "a"}, {ID: 3, Text: "b"}}
	if got := NextActionItemID(items); got != 4 {
		t.Fatalf("expected 4 got %d", got)
	}
}

func TestAppendActionItem(t *testing.T) {
	items := AppendActionItem(nil, "first")
	items = AppendActionItem(items, "second")
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestRemoveActionItem(t *testing.T) {
	items := []ActionItem{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}

	items, removed := RemoveActionItem(items, 1)
	if !removed || len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("unexpected result: removed=%v items=%+v", removed, items)
	}

	_, removed = RemoveActionItem(items, 99)
	if removed {
		t.Fatal("removing a missing id must report false")
	}
}

func TestGraphExtractionFilter(t *testing.T) {
	g := GraphExtraction{
		Nodes: []GraphNode{
			{Name: "Alice", Type: NodePerson},
			{Name: "", Type: NodePerson},
			{Name: "Rocinante", Type: "Spaceship"},
		},
		Relationships: []GraphRelationship{
			{From: "Alice", To: "Apollo", Type: RelWorksOn},
			{From: "", To: "Apollo", Type: RelWorksOn},
			{From: "Alice", To: "Apollo", Type: "PILOTS"},
		},
	}

	g.Filter("m-1")
	if len(g.Nodes) != 1 || g.Nodes[0].MeetingID != "m-1" {
		t.Fatalf("unexpected nodes: %+v", g.Nodes)
	}
	if len(g.Relationships) != 1 || g.Relationships[0].MeetingID != "m-1" {
		t.Fatalf("unexpected relationships: %+v", g.Relationships)
	}
}
