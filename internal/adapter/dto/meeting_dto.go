package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
)

// MeetingResponse represents the API response for a meeting
type MeetingResponse struct {
	ID              uuid.UUID                          `json:"id"`
	BotID           string                             `json:"bot_id"`
	CalendarEventID string                             `json:"calendar_event_id,omitempty"`
	Title           string                             `json:"title"`
	StartTime       *time.Time                         `json:"start_time,omitempty"`
	EndTime         *time.Time                         `json:"end_time,omitempty"`
	RecordingURL    string                             `json:"recording_url,omitempty"`
	ArchiveURL      string                             `json:"archive_url,omitempty"`
	Summary         string                             `json:"summary,omitempty"`
	ActionItems     []entities.ActionItem              `json:"action_items"`
	RiskAnalysis    string                             `json:"risk_analysis,omitempty"`
	SentimentSeries []entities.SentimentPoint          `json:"sentiment_series,omitempty"`
	SpeakerProfiles map[string]entities.SpeakerProfile `json:"speaker_profiles,omitempty"`
	Processed       bool                               `json:"processed"`
	EmailSent       bool                               `json:"email_sent"`
	RAGProcessed    bool                               `json:"rag_processed"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

// MeetingListItem is the trimmed shape used by the list endpoint
type MeetingListItem struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Processed bool       `json:"processed"`
	CreatedAt time.Time  `json:"created_at"`
}

// TranscriptChunkItem is one ordered span of the indexed transcript
type TranscriptChunkItem struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// AddActionItemRequest represents the request to add an action item
type AddActionItemRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

// ChatRequest represents a question over indexed meetings
type ChatRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// ChatResponse represents a chat answer
type ChatResponse struct {
	Answer string `json:"answer"`
	Cached bool   `json:"cached"`
}

// ReprocessResponse acknowledges a re-enqueued pipeline run
type ReprocessResponse struct {
	JobID string `json:"job_id"`
}
