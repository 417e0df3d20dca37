package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/haidang-dev/meeting-insight/internal/usecase/pipeline"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
)

// BotSignatureHeader carries the HMAC-SHA256 hex digest of the raw body.
const BotSignatureHeader = "X-Meeting-Bot-Signature"

// webhookResponse is the envelope the bot platform expects.
type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BotWebhook handles inbound events from the meeting bot platform.
type BotWebhook struct {
	service pipeline.Service
	secret  string
	logger  *zap.Logger
}

// NewBotWebhook creates the webhook ingress handler.
func NewBotWebhook(service pipeline.Service, secret string, logger *zap.Logger) *BotWebhook {
	return &BotWebhook{
		service: service,
		secret:  secret,
		logger:  logger,
	}
}

// Handle verifies the signature over the raw body, classifies the event and
// hands completion events to the pipeline. The sender always gets a 2xx for
// anything it should not retry.
func (h *BotWebhook) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "unreadable body"})
	}

	if h.secret == "" {
		// Explicit degraded mode: configured without a secret, the ingress
		// accepts unauthenticated deliveries rather than crashing.
		if h.logger != nil {
			h.logger.Warn("🚨 Webhook secret not configured, accepting UNAUTHENTICATED webhook delivery")
		}
	} else {
		signature := c.Request().Header.Get(BotSignatureHeader)
		if !ai.VerifyHMAC(h.secret, body, signature) {
			// Security boundary: reject before anything touches the pipeline.
			if h.logger != nil {
				h.logger.Warn("🚨 Webhook signature verification failed",
					zap.String("request_id", getRequestID(c)))
			}
			return c.JSON(http.StatusUnauthorized, webhookResponse{Success: false, Message: "invalid signature"})
		}
	}

	event, err := pipeline.ParseBotEvent(body)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("⚠️ Unparseable webhook payload", zap.Error(err))
		}
		return c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "invalid payload"})
	}

	result, err := h.service.HandleBotEvent(c.Request().Context(), event)
	if err != nil {
		// Unknown bot: non-retryable for the sender, surfaced as 404.
		return HandleError(h.logger, c, err)
	}

	switch result.Status {
	case pipeline.IngestIgnored:
		return c.JSON(http.StatusOK, webhookResponse{Success: true, Message: "event ignored"})
	case pipeline.IngestAccepted:
		return c.JSON(http.StatusOK, webhookResponse{Success: true, Message: "accepted, queueing deferred"})
	default:
		return c.JSON(http.StatusOK, webhookResponse{Success: true, Message: "processing queued"})
	}
}
