package pipeline

import (
	"encoding/json"
	"fmt"
)

// completionEventNames is the known set of "recording finished" event names.
// The bot platform has renamed this event more than once, so classification
// also falls back to payload contents.
var completionEventNames = map[string]bool{
	"complete":               true,
	"completed":              true,
	"bot.completed":          true,
	"recording_done":         true,
	"transcription_complete": true,
}

// BotEvent is the parsed webhook payload from the bot platform.
type BotEvent struct {
	Event        string          `json:"event"`
	BotID        string          `json:"bot_id"`
	Transcript   json.RawMessage `json:"transcript,omitempty"`
	RecordingURL string          `json:"mp4,omitempty"`
	Speakers     []string        `json:"speakers,omitempty"`
}

// ParseBotEvent decodes a webhook body, tolerating both snake_case and
// camelCase field names for the data block.
func ParseBotEvent(body []byte) (*BotEvent, error) {
	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook body: %w", err)
	}

	event := &BotEvent{Event: envelope.Event}
	if len(envelope.Data) == 0 {
		return event, nil
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse webhook data: %w", err)
	}

	event.BotID = stringField(data, "bot_id", "botId")
	event.RecordingURL = stringField(data, "mp4", "mp4_url", "recording_url", "recordingUrl")
	if raw := rawField(data, "transcript"); len(raw) > 0 && string(raw) != "null" {
		event.Transcript = raw
	}
	if raw := rawField(data, "speakers"); len(raw) > 0 {
		var speakers []string
		if err := json.Unmarshal(raw, &speakers); err == nil {
			event.Speakers = speakers
		}
	}

	return event, nil
}

// IsCompletion classifies the event: a known completion name, or any event
// that already carries transcript or media artifacts.
func (e *BotEvent) IsCompletion() bool {
	if completionEventNames[e.Event] {
		return true
	}
	return len(e.Transcript) > 0 || e.RecordingURL != ""
}

func stringField(data map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if raw, ok := data[key]; ok {
			var value string
			if err := json.Unmarshal(raw, &value); err == nil && value != "" {
				return value
			}
		}
	}
	return ""
}

func rawField(data map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := data[key]; ok {
			return raw
		}
	}
	return nil
}
