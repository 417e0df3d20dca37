package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Meeting is the durable record for one recorded meeting. It is created when
// a bot is dispatched (or on first calendar sync) and mutated incrementally
// by the processing pipeline. Every enrichment stage writes only the columns
// it owns, so concurrent stage updates never conflict.
type Meeting struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BotID           string    `gorm:"index" json:"bot_id"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	CreatedByID     string    `gorm:"index;not null" json:"created_by_id"`
	OwnerEmail      string    `json:"owner_email,omitempty"`
	Title           string    `json:"title"`

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Raw artifacts delivered by the bot platform.
	RawTranscript datatypes.JSON `gorm:"type:jsonb" json:"raw_transcript,omitempty"`
	RecordingURL  string         `json:"recording_url,omitempty"`
	ArchiveURL    string         `json:"archive_url,omitempty"`
	Speakers      datatypes.JSON `gorm:"type:jsonb" json:"speakers,omitempty"`

	// Pipeline state flags, each with the timestamp of when it was set.
	MeetingEnded      bool       `gorm:"default:false" json:"meeting_ended"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	TranscriptReady   bool       `gorm:"default:false" json:"transcript_ready"`
	TranscriptReadyAt *time.Time `json:"transcript_ready_at,omitempty"`
	Processed         bool       `gorm:"default:false" json:"processed"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	EmailSent         bool       `gorm:"default:false" json:"email_sent"`
	EmailSentAt       *time.Time `json:"email_sent_at,omitempty"`
	RAGProcessed      bool       `gorm:"default:false" json:"rag_processed"`
	RAGProcessedAt    *time.Time `json:"rag_processed_at,omitempty"`

	// Derived artifacts, one owner stage per field.
	Summary         string         `gorm:"type:text" json:"summary,omitempty"`
	ActionItems     datatypes.JSON `gorm:"type:jsonb" json:"action_items,omitempty"`
	RiskAnalysis    string         `gorm:"type:text" json:"risk_analysis,omitempty"`
	SentimentSeries datatypes.JSON `gorm:"type:jsonb" json:"sentiment_series,omitempty"`
	SpeakerProfiles datatypes.JSON `gorm:"type:jsonb" json:"speaker_profiles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMeeting creates a meeting record linked to a dispatched bot.
func NewMeeting(botID, createdByID, title string) *Meeting {
	return &Meeting{
		ID:          uuid.New(),
		BotID:       botID,
		CreatedByID: createdByID,
		Title:       title,
	}
}

func (Meeting) TableName() string {
	return "meetings"
}

// GetActionItems decodes the embedded action item list. A missing or null
// column decodes to an empty list.
func (m *Meeting) GetActionItems() ([]ActionItem, error) {
	if len(m.ActionItems) == 0 {
		return []ActionItem{}, nil
	}
	var items []ActionItem
	if err := json.Unmarshal(m.ActionItems, &items); err != nil {
		return nil, fmt.Errorf("failed to decode action items: %w", err)
	}
	if items == nil {
		items = []ActionItem{}
	}
	return items, nil
}

// SetActionItems encodes the list back into the JSONB column.
func (m *Meeting) SetActionItems(items []ActionItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode action items: %w", err)
	}
	m.ActionItems = raw
	return nil
}

// GetSpeakers decodes the speaker list delivered by the bot platform.
func (m *Meeting) GetSpeakers() []string {
	if len(m.Speakers) == 0 {
		return nil
	}
	var speakers []string
	if err := json.Unmarshal(m.Speakers, &speakers); err != nil {
		return nil
	}
	return speakers
}

// IsOwnedBy reports whether userID owns this record.
func (m *Meeting) IsOwnedBy(userID string) bool {
	return userID != "" && m.CreatedByID == userID
}

// ArchiveObjectName is the deterministic object-storage key of the archived
// recording. Archival and URL signing must agree on it.
func (m *Meeting) ArchiveObjectName() string {
	return "recordings/" + m.ID.String() + ".mp4"
}
