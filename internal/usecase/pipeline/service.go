package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/vectorstore"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/queue"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
)

// defaultStageTimeout bounds each fanned-out stage's external calls. A
// timed-out stage is an ordinary stage failure.
const defaultStageTimeout = 2 * time.Minute

// JobQueue is the durable queue the ingress submits processing jobs to.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.ProcessingJob) (string, error)
}

// VectorStore is the slice of the vector index the indexer stage needs.
type VectorStore interface {
	Upsert(ctx context.Context, vectors []vectorstore.Vector) error
}

// GraphStore is the slice of the graph store the extractor stage needs.
type GraphStore interface {
	MergeExtraction(ctx context.Context, extraction *entities.GraphExtraction) error
}

// EmailSender delivers the post-summary notification mail.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Archiver copies the bot's recording into long-term storage.
type Archiver interface {
	ArchiveFromURL(ctx context.Context, objectName, sourceURL string) (string, error)
}

// IngestStatus classifies the outcome of a webhook delivery.
type IngestStatus string

const (
	// IngestIgnored: not a completion event, acknowledged and dropped.
	IngestIgnored IngestStatus = "ignored"
	// IngestQueued: artifacts persisted and a processing job enqueued.
	IngestQueued IngestStatus = "queued"
	// IngestAccepted: artifacts persisted but the enqueue failed; the
	// webhook is still acked, recovery is manual reprocessing.
	IngestAccepted IngestStatus = "accepted"
)

// IngestResult is what the webhook handler reports back to the sender.
type IngestResult struct {
	Status    IngestStatus
	MeetingID uuid.UUID
	JobID     string
}

// Service is the transcript processing pipeline.
type Service interface {
	// HandleBotEvent runs the ingress path: classify, resolve the meeting,
	// persist raw artifacts, enqueue. Signature verification happens at the
	// handler before this is called.
	HandleBotEvent(ctx context.Context, event *BotEvent) (*IngestResult, error)

	// ProcessJob runs the worker path for one dequeued job: normalize,
	// summarize, notify, then fan out the independent enrichment stages.
	ProcessJob(ctx context.Context, job queue.ProcessingJob) error

	// Reprocess re-enqueues a processing job for an existing meeting.
	Reprocess(ctx context.Context, meetingID uuid.UUID) (string, error)
}

type service struct {
	meetings     repositories.MeetingRepository
	chunks       repositories.ChunkRepository
	jobs         JobQueue
	llm          ai.LLMClient
	vectors      VectorStore
	graph        GraphStore
	email        EmailSender
	archiver     Archiver
	logger       *zap.Logger
	stageTimeout time.Duration
}

// NewService wires the pipeline. email and archiver may be nil; the
// corresponding steps are then skipped.
func NewService(
	meetings repositories.MeetingRepository,
	chunks repositories.ChunkRepository,
	jobs JobQueue,
	llm ai.LLMClient,
	vectors VectorStore,
	graph GraphStore,
	email EmailSender,
	archiver Archiver,
	logger *zap.Logger,
) Service {
	return &service{
		meetings:     meetings,
		chunks:       chunks,
		jobs:         jobs,
		llm:          llm,
		vectors:      vectors,
		graph:        graph,
		email:        email,
		archiver:     archiver,
		logger:       logger,
		stageTimeout: defaultStageTimeout,
	}
}

func (s *service) HandleBotEvent(ctx context.Context, event *BotEvent) (*IngestResult, error) {
	if !event.IsCompletion() {
		if s.logger != nil {
			s.logger.Info("📥 Ignoring non-completion webhook event", zap.String("event", event.Event))
		}
		return &IngestResult{Status: IngestIgnored}, nil
	}

	if event.BotID == "" {
		if s.logger != nil {
			s.logger.Warn("⚠️ Completion event without bot id, ignoring", zap.String("event", event.Event))
		}
		return &IngestResult{Status: IngestIgnored}, nil
	}

	meeting, err := s.meetings.GetByBotID(ctx, event.BotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Terminal for the sender: retries cannot make an unknown bot
			// resolve. Loud log for operator visibility, zero writes.
			if s.logger != nil {
				s.logger.Error("❌ No meeting found for bot id", zap.String("bot_id", event.BotID))
			}
			return nil, apperrors.ErrMeetingNotFound(event.BotID)
		}
		return nil, apperrors.ErrPersistenceFailed(err)
	}

	// Fast synchronous writes: artifacts plus the ended/ready flags.
	if err := s.meetings.MarkTranscriptReady(ctx, meeting.ID, event.Transcript, event.RecordingURL, event.Speakers); err != nil {
		return nil, apperrors.ErrPersistenceFailed(err)
	}

	jobID, err := s.jobs.Enqueue(ctx, queue.ProcessingJob{
		MeetingID:    meeting.ID.String(),
		BotID:        event.BotID,
		Transcript:   event.Transcript,
		MeetingTitle: meeting.Title,
	})
	if err != nil {
		// Losing the trigger is recoverable by manual reprocessing; failing
		// the webhook ack repeatedly is not. Log and ack anyway.
		if s.logger != nil {
			s.logger.Error("❌ Failed to enqueue processing job",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
		return &IngestResult{Status: IngestAccepted, MeetingID: meeting.ID}, nil
	}

	if s.logger != nil {
		s.logger.Info("✅ Processing job enqueued",
			zap.String("meeting_id", meeting.ID.String()),
			zap.String("job_id", jobID))
	}
	return &IngestResult{Status: IngestQueued, MeetingID: meeting.ID, JobID: jobID}, nil
}

func (s *service) ProcessJob(ctx context.Context, job queue.ProcessingJob) error {
	meetingID, err := uuid.Parse(job.MeetingID)
	if err != nil {
		return apperrors.ErrInvalidPayload(fmt.Errorf("bad meeting id %q: %w", job.MeetingID, err))
	}

	// Re-fetch: ownership and title come from the current record, never
	// from stale job fields.
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logger != nil {
				s.logger.Error("❌ Job references missing meeting, dropping",
					zap.String("meeting_id", job.MeetingID))
			}
			return apperrors.ErrMeetingNotFound(job.BotID)
		}
		return apperrors.ErrPersistenceFailed(err)
	}

	rawTranscript := job.Transcript
	if len(rawTranscript) == 0 {
		rawTranscript = []byte(meeting.RawTranscript)
	}
	normalized, err := Normalize(rawTranscript)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Transcript normalization failed, continuing with empty transcript",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
		normalized = &entities.NormalizedTranscript{}
	}

	// Summarizer + email run exactly once per meeting, guarded by the
	// processed flag. The independent stages below always re-run: each is
	// idempotent or last-write-wins on its own fields.
	if !meeting.Processed {
		s.runSummaryPhase(ctx, meeting, normalized)
	} else if s.logger != nil {
		s.logger.Info("👷 Meeting already processed, skipping summary and email",
			zap.String("meeting_id", meeting.ID.String()))
	}

	stages := []Stage{
		{Name: "vector_index", Run: func(ctx context.Context) error {
			return s.stageVectorIndex(ctx, meeting, normalized)
		}},
		{Name: "risk_analysis", Run: func(ctx context.Context) error {
			return s.stageRiskAnalysis(ctx, meeting, normalized)
		}},
		{Name: "graph_extract", Run: func(ctx context.Context) error {
			return s.stageGraphExtract(ctx, meeting, normalized)
		}},
		{Name: "sentiment_arc", Run: func(ctx context.Context) error {
			return s.stageSentimentArc(ctx, meeting, normalized)
		}},
		{Name: "speaker_profiles", Run: func(ctx context.Context) error {
			return s.stageSpeakerProfiles(ctx, meeting, normalized)
		}},
	}
	if s.archiver != nil && meeting.RecordingURL != "" {
		stages = append(stages, Stage{Name: "recording_archive", Run: func(ctx context.Context) error {
			return s.stageArchiveRecording(ctx, meeting)
		}})
	}

	results := settleAll(ctx, s.stageTimeout, stages)
	for _, r := range results {
		if r.Succeeded() {
			if s.logger != nil {
				s.logger.Info("✅ Stage completed",
					zap.String("meeting_id", meeting.ID.String()),
					zap.String("stage", r.Name),
					zap.Duration("duration", r.Duration))
			}
			continue
		}
		if s.logger != nil {
			s.logger.Error("❌ Stage failed",
				zap.String("meeting_id", meeting.ID.String()),
				zap.String("stage", r.Name),
				zap.Duration("duration", r.Duration),
				zap.Error(r.Err))
		}
	}

	// Per-stage failures were settled and logged; the job itself succeeded.
	return nil
}

func (s *service) Reprocess(ctx context.Context, meetingID uuid.UUID) (string, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFound("meeting")
		}
		return "", apperrors.ErrPersistenceFailed(err)
	}

	jobID, err := s.jobs.Enqueue(ctx, queue.ProcessingJob{
		MeetingID:    meeting.ID.String(),
		BotID:        meeting.BotID,
		Transcript:   []byte(meeting.RawTranscript),
		MeetingTitle: meeting.Title,
	})
	if err != nil {
		return "", apperrors.ErrEnqueueFailed(err)
	}
	return jobID, nil
}
