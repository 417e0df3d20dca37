package entities

// ActionItem is one row of the ordered action-item list embedded in a
// meeting. IDs are small integers unique within the meeting; insertion order
// is relevance order.
type ActionItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// NextActionItemID returns max(existing ids)+1, or 1 for an empty list.
func NextActionItemID(items []ActionItem) int {
	maxID := 0
	for _, it := range items {
		if it.ID > maxID {
			maxID = it.ID
		}
	}
	return maxID + 1
}

// AppendActionItem adds text as a new item with the next sequential ID.
func AppendActionItem(items []ActionItem, text string) []ActionItem {
	return append(items, ActionItem{ID: NextActionItemID(items), Text: text})
}

// RemoveActionItem deletes the item with the given ID, preserving order.
// The second return value reports whether an item was removed.
func RemoveActionItem(items []ActionItem, id int) ([]ActionItem, bool) {
	out := make([]ActionItem, 0, len(items))
	removed := false
	for _, it := range items {
		if it.ID == id {
			removed = true
			continue
		}
		out = append(out, it)
	}
	return out, removed
}

// SentimentPoint is one entry of the sentiment time series: the start offset
// of an analysis window (seconds from meeting start) and a score in
// [-1.0, 1.0] per speaker active in that window. A window where analysis
// detected no speakers keeps the timestamp with an empty score map.
type SentimentPoint struct {
	Timestamp int                `json:"timestamp"`
	Scores    map[string]float64 `json:"scores,omitempty"`
}

// SpeakerProfile is the behavioral profile produced for one speaker.
type SpeakerProfile struct {
	Role      string `json:"role"`
	Sentiment string `json:"sentiment"`
	Trait     string `json:"trait"`
	Feedback  string `json:"feedback"`
}

// SummaryResult is the output of the summarizer stage.
type SummaryResult struct {
	Summary     string       `json:"summary"`
	ActionItems []ActionItem `json:"actionItems"`
}
