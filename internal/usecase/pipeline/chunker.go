package pipeline

import "strings"

// maxChunkSize bounds the character length of one vector-index chunk.
const maxChunkSize = 1000

// Chunk is one contiguous span of canonical text headed for the vector
// index. Speaker is the speaker of the chunk's first line.
type Chunk struct {
	Text    string
	Speaker string
}

// ChunkText splits canonical text into contiguous chunks of at most maxLen
// characters, breaking on line boundaries so a speaker turn is never split
// mid-line (a single oversized line becomes its own chunk). Deterministic:
// the same text always yields the same chunks in the same order.
func ChunkText(text string, maxLen int) []Chunk {
	if maxLen <= 0 {
		maxLen = maxChunkSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	chunks := make([]Chunk, 0, len(text)/maxLen+1)

	var current []string
	currentLen := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, "\n")
		chunks = append(chunks, Chunk{
			Text:    chunkText,
			Speaker: lineSpeaker(current[0]),
		})
		current = nil
		currentLen = 0
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		if currentLen > 0 && currentLen+len(line)+1 > maxLen {
			flush()
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}
	flush()

	return chunks
}

// lineSpeaker extracts the speaker from a canonical `"speaker: text"` line.
func lineSpeaker(line string) string {
	if idx := strings.Index(line, ": "); idx > 0 {
		return line[:idx]
	}
	return ""
}
