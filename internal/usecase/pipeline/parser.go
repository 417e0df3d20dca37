package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
)

// extractJSON strips the markdown code fences LLMs like to wrap JSON in.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Check if wrapped in markdown code block
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}

// parseSummaryResponse decodes the summarizer output. Nil action items
// become an empty list so downstream code never sees null.
func parseSummaryResponse(content string) (*entities.SummaryResult, error) {
	var result entities.SummaryResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("missing summary in response")
	}
	if result.ActionItems == nil {
		result.ActionItems = []entities.ActionItem{}
	}
	// Re-sequence IDs: 1-based, in order, regardless of what the model put.
	for i := range result.ActionItems {
		result.ActionItems[i].ID = i + 1
	}
	return &result, nil
}

// parseSentimentResponse decodes one batch of per-window sentiment scores.
func parseSentimentResponse(content string) ([]entities.SentimentPoint, error) {
	var result struct {
		Windows []entities.SentimentPoint `json:"windows"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}
	for _, p := range result.Windows {
		for speaker, score := range p.Scores {
			if score < -1.0 || score > 1.0 {
				return nil, fmt.Errorf("sentiment score out of range for %s: %f", speaker, score)
			}
		}
	}
	return result.Windows, nil
}

// parseProfilesResponse decodes the speaker profile mapping.
func parseProfilesResponse(content string) (map[string]entities.SpeakerProfile, error) {
	var profiles map[string]entities.SpeakerProfile
	if err := json.Unmarshal([]byte(extractJSON(content)), &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles response: %w", err)
	}
	return profiles, nil
}

// parseGraphResponse decodes a graph extraction and drops anything outside
// the closed node/relationship vocabularies.
func parseGraphResponse(content string, meetingID string) (*entities.GraphExtraction, error) {
	var extraction entities.GraphExtraction
	if err := json.Unmarshal([]byte(extractJSON(content)), &extraction); err != nil {
		return nil, fmt.Errorf("failed to parse graph response: %w", err)
	}
	extraction.Filter(meetingID)
	return &extraction, nil
}
