package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
)

// WindowSeconds is the fixed size of a canonical transcript time window.
const WindowSeconds = 30

// defaultSpeaker labels segments the bot delivered without attribution.
const defaultSpeaker = "Speaker"

// Normalize resolves the three raw transcript shapes into the canonical
// representation:
//   - a speaker-segmented word list,
//   - a plain string,
//   - an object carrying a `text` field.
//
// Shape detection happens exactly once, here; downstream stages only ever
// see the canonical form. Normalization is deterministic.
func Normalize(raw json.RawMessage) (*entities.NormalizedTranscript, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &entities.NormalizedTranscript{}, nil
	}

	switch raw[0] {
	case '[':
		var segments []entities.TranscriptSegment
		if err := json.Unmarshal(raw, &segments); err != nil {
			return nil, fmt.Errorf("failed to parse segmented transcript: %w", err)
		}
		return normalizeSegments(segments), nil
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("failed to parse string transcript: %w", err)
		}
		return &entities.NormalizedTranscript{Text: strings.TrimSpace(text)}, nil
	case '{':
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse object transcript: %w", err)
		}
		return &entities.NormalizedTranscript{Text: strings.TrimSpace(obj.Text)}, nil
	default:
		return nil, fmt.Errorf("unrecognized transcript shape")
	}
}

func normalizeSegments(segments []entities.TranscriptSegment) *entities.NormalizedTranscript {
	lines := make([]string, 0, len(segments))
	speakers := make([]string, 0, 4)
	seenSpeakers := make(map[string]bool)
	windowText := make(map[int][]string)
	windowSpeakers := make(map[int][]string)
	windowSeen := make(map[int]map[string]bool)

	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = defaultSpeaker
		}

		text := segmentText(seg)
		if text == "" {
			continue
		}

		line := speaker + ": " + text
		lines = append(lines, line)

		if !seenSpeakers[speaker] {
			seenSpeakers[speaker] = true
			speakers = append(speakers, speaker)
		}

		// A segment belongs to the window its start time falls in.
		start := segmentStart(seg)
		window := int(start) / WindowSeconds * WindowSeconds
		windowText[window] = append(windowText[window], line)
		if windowSeen[window] == nil {
			windowSeen[window] = make(map[string]bool)
		}
		if !windowSeen[window][speaker] {
			windowSeen[window][speaker] = true
			windowSpeakers[window] = append(windowSpeakers[window], speaker)
		}
	}

	// Windows with no segments are simply absent from the output.
	starts := make([]int, 0, len(windowText))
	for start := range windowText {
		starts = append(starts, start)
	}
	sort.Ints(starts)

	windows := make([]entities.TranscriptWindow, 0, len(starts))
	for _, start := range starts {
		windows = append(windows, entities.TranscriptWindow{
			Start:    start,
			Text:     strings.Join(windowText[start], "\n"),
			Speakers: windowSpeakers[start],
		})
	}

	return &entities.NormalizedTranscript{
		Text:     strings.Join(lines, "\n"),
		Windows:  windows,
		Speakers: speakers,
	}
}

func segmentText(seg entities.TranscriptSegment) string {
	if len(seg.Words) > 0 {
		words := make([]string, 0, len(seg.Words))
		for _, w := range seg.Words {
			if w.Word != "" {
				words = append(words, w.Word)
			}
		}
		return strings.TrimSpace(strings.Join(words, " "))
	}
	return strings.TrimSpace(seg.Text)
}

func segmentStart(seg entities.TranscriptSegment) float64 {
	if seg.Start > 0 {
		return seg.Start
	}
	if len(seg.Words) > 0 {
		return seg.Words[0].Start
	}
	return 0
}
