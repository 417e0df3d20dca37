package pipeline

import (
	"testing"
)

func TestParseBotEvent_SnakeCase(t *testing.T) {
	body := []byte(`{"event": "complete", "data": {"bot_id": "bot-1", "mp4": "https://cdn/rec.mp4", "transcript": [{"speaker": "A"}], "speakers": ["A", "B"]}}`)

	event, err := ParseBotEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.BotID != "bot-1" {
		t.Fatalf("unexpected bot id: %q", event.BotID)
	}
	if event.RecordingURL != "https://cdn/rec.mp4" {
		t.Fatalf("unexpected recording url: %q", event.RecordingURL)
	}
	if len(event.Transcript) == 0 {
		t.Fatal("transcript not captured")
	}
	if len(event.Speakers) != 2 {
		t.Fatalf("unexpected speakers: %v", event.Speakers)
	}
	if !event.IsCompletion() {
		t.Fatal("expected completion event")
	}
}

func TestParseBotEvent_CamelCase(t *testing.T) {
	body := []byte(`{"event": "bot.completed", "data": {"botId": "bot-2", "recordingUrl": "https://cdn/r.mp4"}}`)

	event, err := ParseBotEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.BotID != "bot-2" {
		t.Fatalf("unexpected bot id: %q", event.BotID)
	}
	if event.RecordingURL != "https://cdn/r.mp4" {
		t.Fatalf("unexpected recording url: %q", event.RecordingURL)
	}
}

func TestParseBotEvent_UnknownEventWithArtifactsIsCompletion(t *testing.T) {
	body := []byte(`{"event": "bot.done.v3", "data": {"bot_id": "bot-3", "transcript": "raw text"}}`)

	event, err := ParseBotEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !event.IsCompletion() {
		t.Fatal("event with transcript payload should classify as completion")
	}
}

func TestParseBotEvent_StatusPingIsNotCompletion(t *testing.T) {
	body := []byte(`{"event": "bot.status_change", "data": {"bot_id": "bot-4"}}`)

	event, err := ParseBotEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.IsCompletion() {
		t.Fatal("status ping must not classify as completion")
	}
}

func TestParseBotEvent_NullTranscriptDropped(t *testing.T) {
	body := []byte(`{"event": "complete", "data": {"bot_id": "bot-5", "transcript": null}}`)

	event, err := ParseBotEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.Transcript != nil {
		t.Fatalf("null transcript should be dropped, got %q", event.Transcript)
	}
}

func TestParseBotEvent_Malformed(t *testing.T) {
	if _, err := ParseBotEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
