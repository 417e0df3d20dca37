package handler

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/adapter/dto"
	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
	"github.com/haidang-dev/meeting-insight/internal/usecase/pipeline"
)

// archiveURLExpiry bounds how long a signed recording link stays valid.
const archiveURLExpiry = time.Hour

// ArchiveSigner mints short-lived download URLs for archived recordings.
type ArchiveSigner interface {
	GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// Meeting serves the read/edit API over processed meetings.
type Meeting struct {
	meetings repositories.MeetingRepository
	chunks   repositories.ChunkRepository
	pipeline pipeline.Service
	archive  ArchiveSigner
	logger   *zap.Logger
}

// NewMeeting creates the meeting API handler. archive may be nil; responses
// then carry the stored archive URL as-is.
func NewMeeting(meetings repositories.MeetingRepository, chunks repositories.ChunkRepository, pipelineService pipeline.Service, archive ArchiveSigner, logger *zap.Logger) *Meeting {
	return &Meeting{
		meetings: meetings,
		chunks:   chunks,
		pipeline: pipelineService,
		archive:  archive,
		logger:   logger,
	}
}

// List returns the caller's meetings, newest first.
func (h *Meeting) List(c echo.Context) error {
	userID := getUserID(c)
	if userID == "" {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	meetings, err := h.meetings.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrPersistenceFailed(err))
	}

	items := make([]dto.MeetingListItem, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, dto.MeetingListItem{
			ID:        m.ID,
			Title:     m.Title,
			StartTime: m.StartTime,
			Processed: m.Processed,
			CreatedAt: m.CreatedAt,
		})
	}
	return HandleSuccess(h.logger, c, items)
}

// Get returns one meeting with its derived artifacts. When a signer is
// configured, the archive URL is replaced with a short-lived signed link so
// the bucket can stay private.
func (h *Meeting) Get(c echo.Context) error {
	meeting, err := h.ownedMeeting(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := toMeetingResponse(meeting)
	if h.archive != nil && meeting.ArchiveURL != "" {
		signed, err := h.archive.GetFileURL(c.Request().Context(), meeting.ArchiveObjectName(), archiveURLExpiry)
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("⚠️ Failed to sign archive URL",
					zap.String("meeting_id", meeting.ID.String()),
					zap.Error(err))
			}
		} else {
			resp.ArchiveURL = signed
		}
	}
	return HandleSuccess(h.logger, c, resp)
}

// Transcript returns the meeting's indexed transcript spans in order.
func (h *Meeting) Transcript(c echo.Context) error {
	meeting, err := h.ownedMeeting(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	chunks, err := h.chunks.ListByMeeting(c.Request().Context(), meeting.ID)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrPersistenceFailed(err))
	}

	items := make([]dto.TranscriptChunkItem, 0, len(chunks))
	for _, chunk := range chunks {
		items = append(items, dto.TranscriptChunkItem{
			Index:   chunk.ChunkIndex,
			Speaker: chunk.Speaker,
			Text:    chunk.Text,
		})
	}
	return HandleSuccess(h.logger, c, items)
}

// AddActionItem appends a manual action item to the meeting.
func (h *Meeting) AddActionItem(c echo.Context) error {
	meeting, err := h.ownedMeeting(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req dto.AddActionItemRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	items, err := meeting.GetActionItems()
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}
	items = entities.AppendActionItem(items, req.Text)

	if err := h.meetings.UpdateActionItems(c.Request().Context(), meeting.ID, items); err != nil {
		return HandleError(h.logger, c, apperrors.ErrPersistenceFailed(err))
	}

	if h.logger != nil {
		h.logger.Info("📝 Action item added",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Int("item_id", items[len(items)-1].ID))
	}
	return HandleSuccess(h.logger, c, items)
}

// DeleteActionItem removes an action item by its numeric id.
func (h *Meeting) DeleteActionItem(c echo.Context) error {
	meeting, err := h.ownedMeeting(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("item id must be a number"))
	}

	items, err := meeting.GetActionItems()
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}
	items, removed := entities.RemoveActionItem(items, itemID)
	if !removed {
		return HandleError(h.logger, c, apperrors.ErrNotFound("action item"))
	}

	if err := h.meetings.UpdateActionItems(c.Request().Context(), meeting.ID, items); err != nil {
		return HandleError(h.logger, c, apperrors.ErrPersistenceFailed(err))
	}
	return HandleSuccess(h.logger, c, items)
}

// Reprocess re-enqueues the full pipeline for a meeting that already has a
// stored transcript.
func (h *Meeting) Reprocess(c echo.Context) error {
	meeting, err := h.ownedMeeting(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	jobID, err := h.pipeline.Reprocess(c.Request().Context(), meeting.ID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.ReprocessResponse{JobID: jobID})
}

// ownedMeeting loads the :id meeting and enforces ownership.
func (h *Meeting) ownedMeeting(c echo.Context) (*entities.Meeting, error) {
	userID := getUserID(c)
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated()
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperrors.ErrInvalidArgument("meeting id must be a uuid")
	}

	meeting, err := h.meetings.GetByID(c.Request().Context(), meetingID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("meeting")
		}
		return nil, apperrors.ErrPersistenceFailed(err)
	}
	if !meeting.IsOwnedBy(userID) {
		return nil, apperrors.ErrPermissionDenied("access this meeting")
	}
	return meeting, nil
}

func toMeetingResponse(m *entities.Meeting) dto.MeetingResponse {
	items, _ := m.GetActionItems()

	var series []entities.SentimentPoint
	if len(m.SentimentSeries) > 0 {
		_ = json.Unmarshal(m.SentimentSeries, &series)
	}
	var profiles map[string]entities.SpeakerProfile
	if len(m.SpeakerProfiles) > 0 {
		_ = json.Unmarshal(m.SpeakerProfiles, &profiles)
	}

	return dto.MeetingResponse{
		ID:              m.ID,
		BotID:           m.BotID,
		CalendarEventID: m.CalendarEventID,
		Title:           m.Title,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		RecordingURL:    m.RecordingURL,
		ArchiveURL:      m.ArchiveURL,
		Summary:         m.Summary,
		ActionItems:     items,
		RiskAnalysis:    m.RiskAnalysis,
		SentimentSeries: series,
		SpeakerProfiles: profiles,
		Processed:       m.Processed,
		EmailSent:       m.EmailSent,
		RAGProcessed:    m.RAGProcessed,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
