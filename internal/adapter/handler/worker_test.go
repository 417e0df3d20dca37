package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/usecase/pipeline"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
)

func postJob(h *Worker, body string, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/internal/queue/process-meeting", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(pipeline.QueueSignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ProcessMeeting(e.NewContext(req, rec))
	return rec
}

func TestWorker_RejectsBadSignature(t *testing.T) {
	svc := &fakePipeline{}
	h := NewWorker(svc, "dispatch-secret", nil)

	body := `{"meetingId": "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"}`
	rec := postJob(h, body, "bogus")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(svc.jobs) != 0 {
		t.Fatal("unsigned job reached the pipeline")
	}
}

func TestWorker_ProcessesSignedJob(t *testing.T) {
	svc := &fakePipeline{}
	h := NewWorker(svc, "dispatch-secret", nil)

	body := `{"meetingId": "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", "botId": "bot-1"}`
	rec := postJob(h, body, ai.SignHMAC("dispatch-secret", []byte(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.jobs) != 1 || svc.jobs[0].BotID != "bot-1" {
		t.Fatalf("job not delivered: %+v", svc.jobs)
	}
}

func TestWorker_MissingMeetingIDIs400(t *testing.T) {
	h := NewWorker(&fakePipeline{}, "dispatch-secret", nil)

	body := `{"botId": "bot-1"}`
	rec := postJob(h, body, ai.SignHMAC("dispatch-secret", []byte(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWorker_MissingMeetingIs404(t *testing.T) {
	svc := &fakePipeline{processErr: apperrors.ErrMeetingNotFound("bot-1")}
	h := NewWorker(svc, "dispatch-secret", nil)

	body := `{"meetingId": "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"}`
	rec := postJob(h, body, ai.SignHMAC("dispatch-secret", []byte(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
