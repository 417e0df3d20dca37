package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
)

// MeetingRepository persists meeting records. Every Update* method writes
// only the columns owned by one pipeline stage; the stages rely on that to
// stay commutative under concurrent execution.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *entities.Meeting) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)
	GetByBotID(ctx context.Context, botID string) (*entities.Meeting, error)
	ListByOwner(ctx context.Context, userID string) ([]*entities.Meeting, error)

	// MarkTranscriptReady performs the ingress write: raw artifacts plus the
	// meeting_ended and transcript_ready flags, in one update.
	MarkTranscriptReady(ctx context.Context, id uuid.UUID, rawTranscript []byte, recordingURL string, speakers []string) error

	UpdateSummary(ctx context.Context, id uuid.UUID, summary string, actionItems []entities.ActionItem) error
	UpdateActionItems(ctx context.Context, id uuid.UUID, items []entities.ActionItem) error
	UpdateRiskAnalysis(ctx context.Context, id uuid.UUID, document string) error
	UpdateSentimentSeries(ctx context.Context, id uuid.UUID, series []entities.SentimentPoint) error
	UpdateSpeakerProfiles(ctx context.Context, id uuid.UUID, profiles map[string]entities.SpeakerProfile) error
	UpdateArchiveURL(ctx context.Context, id uuid.UUID, url string) error

	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	MarkRAGProcessed(ctx context.Context, id uuid.UUID) error
}

// ChunkRepository persists transcript chunk metadata rows.
type ChunkRepository interface {
	// CreateSkippingDuplicates inserts the chunks, silently skipping rows
	// that would violate the (meeting_id, chunk_index) uniqueness. Returns
	// the number of rows actually inserted.
	CreateSkippingDuplicates(ctx context.Context, chunks []*entities.TranscriptChunk) (int64, error)
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.TranscriptChunk, error)
	CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int64, error)
}
