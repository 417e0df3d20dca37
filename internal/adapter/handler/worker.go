package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/haidang-dev/meeting-insight/internal/infrastructure/queue"
	"github.com/haidang-dev/meeting-insight/internal/usecase/pipeline"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
)

// Worker receives dispatched queue jobs. It sits behind its own signature
// scheme because the queue is a different trust boundary than the webhook
// ingress.
type Worker struct {
	service pipeline.Service
	secret  string
	logger  *zap.Logger
}

// NewWorker creates the queue dispatch endpoint handler.
func NewWorker(service pipeline.Service, secret string, logger *zap.Logger) *Worker {
	return &Worker{
		service: service,
		secret:  secret,
		logger:  logger,
	}
}

// ProcessMeeting verifies the dispatch signature and runs the pipeline for
// one job. 4xx responses tell the dispatcher the job is not retryable.
func (h *Worker) ProcessMeeting(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "unreadable body"})
	}

	signature := c.Request().Header.Get(pipeline.QueueSignatureHeader)
	if !ai.VerifyHMAC(h.secret, body, signature) {
		if h.logger != nil {
			h.logger.Warn("🚨 Queue dispatch signature verification failed",
				zap.String("request_id", getRequestID(c)))
		}
		return c.JSON(http.StatusUnauthorized, webhookResponse{Success: false, Message: "invalid signature"})
	}

	var job queue.ProcessingJob
	if err := json.Unmarshal(body, &job); err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "invalid job payload"})
	}
	if job.MeetingID == "" {
		return c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "meetingId is required"})
	}

	if err := h.service.ProcessJob(c.Request().Context(), job); err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.JSON(http.StatusOK, webhookResponse{Success: true, Message: "processed"})
}
