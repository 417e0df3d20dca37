package pipeline

import (
	"fmt"
	"strings"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
)

// FallbackSummary is returned whenever the summarizer fails, so the pipeline
// never stalls on the summary stage and the user is told where to look.
const FallbackSummary = "Meeting transcript processed successfully. Please check the full transcript for details."

// FailureSummary is persisted when processing as a whole could not produce
// anything useful. Failure stays visible, never silent.
const FailureSummary = "processing failed. please check the transcript manually."

const summarySystemPrompt = `You are a meeting assistant. Summarize the meeting transcript and extract concrete action items.
Respond ONLY with valid JSON in this exact format:
{"summary": "short prose summary", "actionItems": [{"id": 1, "text": "action item text"}]}
Action item ids are sequential starting at 1. If there are no action items, return an empty array. Do not include any other text.`

const riskSystemPrompt = `You are a project risk analyst. Analyze the meeting transcript for risks.
Respond ONLY with markdown using exactly these sections:
## Critical Risks
- one bullet per risk
## Blind Spots
- one bullet per blind spot
## Confidence
A single integer 0-100 on its own line.
Use only headings, bullets and plain text. Do not include any other sections.`

const sentimentSystemPrompt = `You are a conversation analyst. For each numbered transcript window, score the sentiment of every speaker active in that window between -1.0 (very negative) and 1.0 (very positive).
Respond ONLY with valid JSON in this exact format:
{"windows": [{"timestamp": 0, "scores": {"Speaker Name": 0.5}}]}
Use the window start timestamps given. A window where you cannot attribute sentiment to any speaker gets an empty scores object. Do not include any other text.`

const profilesSystemPrompt = `You are a meeting facilitator coach. For every unique speaker in the transcript, profile their behavior.
Respond ONLY with valid JSON mapping speaker name to profile:
{"Speaker Name": {"role": "...", "sentiment": "...", "trait": "...", "feedback": "..."}}
Do not include any other text.`

const graphSystemPrompt = `You are a knowledge graph extractor. Extract entities and relationships from the meeting transcript.
Allowed node types: Person, Project, Company, Technology, Risk, Decision.
Allowed relationship types: WORKS_ON, MANAGED_BY, MENTIONED, HAS_RISK, DECIDED_TO.
Respond ONLY with valid JSON in this exact format:
{"nodes": [{"name": "...", "type": "Person"}], "relationships": [{"from": "...", "to": "...", "type": "WORKS_ON"}]}
Use only the allowed types. Do not include any other text.`

func summaryUserPrompt(title, text string) string {
	return fmt.Sprintf("Meeting title: %s\n\nTranscript:\n%s", title, text)
}

func riskUserPrompt(text string) string {
	return "Transcript:\n" + text
}

func sentimentUserPrompt(windows []entities.TranscriptWindow) string {
	var b strings.Builder
	b.WriteString("Transcript windows:\n")
	for _, w := range windows {
		fmt.Fprintf(&b, "[window start=%d]\n%s\n\n", w.Start, w.Text)
	}
	return b.String()
}

func profilesUserPrompt(text string) string {
	return "Transcript:\n" + text
}

func graphUserPrompt(text string) string {
	return "Transcript:\n" + text
}

// truncate bounds prompt input length. A cost/safety bound, not a
// correctness requirement.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
