package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptChunk is the local metadata row for one indexed span of
// canonical transcript text. The vector-store reference ID is deterministic
// from (meeting, index), which is what makes re-ingestion an upsert instead
// of duplicate accumulation.
type TranscriptChunk struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MeetingID  uuid.UUID `gorm:"type:uuid;index:idx_meeting_chunk,unique;not null" json:"meeting_id"`
	ChunkIndex int       `gorm:"index:idx_meeting_chunk,unique;not null" json:"chunk_index"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Speaker    string    `json:"speaker,omitempty"`
	VectorID   string    `gorm:"index;not null" json:"vector_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkVectorID builds the deterministic vector-store reference ID.
func ChunkVectorID(meetingID uuid.UUID, index int) string {
	return fmt.Sprintf("%s_chunk_%d", meetingID, index)
}

// NewTranscriptChunk creates a chunk row with its derived vector ID.
func NewTranscriptChunk(meetingID uuid.UUID, index int, text, speaker string) *TranscriptChunk {
	return &TranscriptChunk{
		ID:         uuid.New(),
		MeetingID:  meetingID,
		ChunkIndex: index,
		Text:       text,
		Speaker:    speaker,
		VectorID:   ChunkVectorID(meetingID, index),
	}
}

func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}
