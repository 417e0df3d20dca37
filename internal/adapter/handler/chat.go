package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/adapter/dto"
	"github.com/haidang-dev/meeting-insight/internal/usecase/rag"
)

// Chat serves retrieval-augmented questions over indexed transcripts.
type Chat struct {
	rag    rag.Service
	logger *zap.Logger
}

// NewChat creates the chat handler.
func NewChat(ragService rag.Service, logger *zap.Logger) *Chat {
	return &Chat{
		rag:    ragService,
		logger: logger,
	}
}

// Ask answers a question over all of the caller's meetings.
func (h *Chat) Ask(c echo.Context) error {
	userID := getUserID(c)
	if userID == "" {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	req, err := bindChatRequest(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	answer, err := h.rag.ChatAllMeetings(c.Request().Context(), userID, req.Question)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.ChatResponse{Answer: answer.Text, Cached: answer.Cached})
}

// AskMeeting answers a question scoped to a single meeting the caller owns.
func (h *Chat) AskMeeting(c echo.Context) error {
	userID := getUserID(c)
	if userID == "" {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("meeting id must be a uuid"))
	}

	req, err := bindChatRequest(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	answer, err := h.rag.ChatMeeting(c.Request().Context(), userID, meetingID, req.Question)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.ChatResponse{Answer: answer.Text, Cached: answer.Cached})
}

func bindChatRequest(c echo.Context) (*dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.ErrInvalidArgument("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, apperrors.ErrInvalidArgument(err.Error())
	}
	return &req, nil
}
