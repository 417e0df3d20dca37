package entities

// TranscriptWord is a single word with timing info, as delivered inside a
// speaker-segmented bot transcript.
type TranscriptWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptSegment is one speaker turn of a segmented bot transcript.
type TranscriptSegment struct {
	Speaker string           `json:"speaker"`
	Words   []TranscriptWord `json:"words,omitempty"`
	Text    string           `json:"text,omitempty"`
	Start   float64          `json:"start,omitempty"`
	End     float64          `json:"end,omitempty"`
}

// TranscriptWindow is one fixed-size time window of the canonical
// representation. Start is the window's offset in seconds from meeting
// start; Text is the `"speaker: text"` lines of all segments whose start
// time falls inside the window.
type TranscriptWindow struct {
	Start    int      `json:"start"`
	Text     string   `json:"text"`
	Speakers []string `json:"speakers"`
}

// NormalizedTranscript is the canonical, shape-independent representation
// every enrichment stage consumes. Normalization is deterministic: the same
// raw input always yields the same canonical output.
type NormalizedTranscript struct {
	Text     string             `json:"text"`
	Windows  []TranscriptWindow `json:"windows"`
	Speakers []string           `json:"speakers"`
}

// IsEmpty reports whether normalization produced no usable text.
func (t *NormalizedTranscript) IsEmpty() bool {
	return t == nil || t.Text == ""
}
