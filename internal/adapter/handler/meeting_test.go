package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
	pkgvalidator "github.com/haidang-dev/meeting-insight/pkg/validator"
)

// fakeMeetingRepo covers the lookups and writes the meeting handler uses.
type fakeMeetingRepo struct {
	repositories.MeetingRepository
	meeting *entities.Meeting
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	if f.meeting == nil || f.meeting.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.meeting, nil
}

func (f *fakeMeetingRepo) UpdateActionItems(ctx context.Context, id uuid.UUID, items []entities.ActionItem) error {
	return f.meeting.SetActionItems(items)
}

// fakeChunkList serves the ordered transcript spans the handler reads.
type fakeChunkList struct {
	repositories.ChunkRepository
	chunks []*entities.TranscriptChunk
}

func (f *fakeChunkList) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.TranscriptChunk, error) {
	return f.chunks, nil
}

type fakeSigner struct {
	base string
}

func (f *fakeSigner) GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return f.base + "/" + objectName + "?signed=1", nil
}

func newMeetingContext(method, path, body, userID string, pathParams map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(pathParams))
	values := make([]string, 0, len(pathParams))
	for name, value := range pathParams {
		names = append(names, name)
		values = append(values, value)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func TestAddActionItem_AssignsNextID(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	meeting.SetActionItems([]entities.ActionItem{{ID: 1, Text: "a"}, {ID: 3, Text: "b"}})
	repo := &fakeMeetingRepo{meeting: meeting}
	h := NewMeeting(repo, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodPost, "/api/meetings/"+meeting.ID.String()+"/action-items",
		`{"text": "follow up"}`, "user-1", map[string]string{"id": meeting.ID.String()})

	if err := h.AddActionItem(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	items, _ := meeting.GetActionItems()
	if len(items) != 3 || items[2].ID != 4 || items[2].Text != "follow up" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestAddActionItem_RejectsNonOwner(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	repo := &fakeMeetingRepo{meeting: meeting}
	h := NewMeeting(repo, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodPost, "/api/meetings/"+meeting.ID.String()+"/action-items",
		`{"text": "sneaky"}`, "intruder", map[string]string{"id": meeting.ID.String()})

	h.AddActionItem(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	items, _ := meeting.GetActionItems()
	if len(items) != 0 {
		t.Fatal("non-owner wrote an action item")
	}
}

func TestAddActionItem_ValidatesBody(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodPost, "/api/meetings/"+meeting.ID.String()+"/action-items",
		`{"text": ""}`, "user-1", map[string]string{"id": meeting.ID.String()})

	h.AddActionItem(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDeleteActionItem(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	meeting.SetActionItems([]entities.ActionItem{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}})
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodDelete, "/api/meetings/"+meeting.ID.String()+"/action-items/1",
		"", "user-1", map[string]string{"id": meeting.ID.String(), "itemId": "1"})

	h.DeleteActionItem(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	items, _ := meeting.GetActionItems()
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("unexpected items after delete: %+v", items)
	}
}

func TestDeleteActionItem_MissingIDIs404(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	meeting.SetActionItems([]entities.ActionItem{{ID: 1, Text: "a"}})
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodDelete, "/api/meetings/"+meeting.ID.String()+"/action-items/99",
		"", "user-1", map[string]string{"id": meeting.ID.String(), "itemId": "99"})

	h.DeleteActionItem(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestGetMeeting_SignsArchiveURL(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	meeting.ArchiveURL = "http://minio.internal/archive/recordings/x.mp4"
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{},
		&fakeSigner{base: "https://files.example.com"}, nil)

	c, rec := newMeetingContext(http.MethodGet, "/api/meetings/"+meeting.ID.String(),
		"", "user-1", map[string]string{"id": meeting.ID.String()})

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	want := "https://files.example.com/" + meeting.ArchiveObjectName() + "?signed=1"
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("response does not carry the signed url %q: %s", want, rec.Body.String())
	}
}

func TestGetMeeting_NoSignerKeepsStoredURL(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	meeting.ArchiveURL = "http://minio.internal/archive/rec.mp4"
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodGet, "/api/meetings/"+meeting.ID.String(),
		"", "user-1", map[string]string{"id": meeting.ID.String()})

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), meeting.ArchiveURL) {
		t.Fatalf("stored archive url missing from response: %s", rec.Body.String())
	}
}

func TestMeetingTranscript_ReturnsOrderedSpans(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	chunks := &fakeChunkList{chunks: []*entities.TranscriptChunk{
		entities.NewTranscriptChunk(meeting.ID, 0, "Alice: kickoff", "Alice"),
		entities.NewTranscriptChunk(meeting.ID, 1, "Bob: blocked", "Bob"),
	}}
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, chunks, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodGet, "/api/meetings/"+meeting.ID.String()+"/transcript",
		"", "user-1", map[string]string{"id": meeting.ID.String()})

	if err := h.Transcript(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Alice: kickoff") || !strings.Contains(body, "Bob: blocked") {
		t.Fatalf("transcript spans missing: %s", body)
	}
	if strings.Index(body, "Alice: kickoff") > strings.Index(body, "Bob: blocked") {
		t.Fatalf("spans out of order: %s", body)
	}
}

func TestMeetingTranscript_RejectsNonOwner(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, &fakeChunkList{}, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodGet, "/api/meetings/"+meeting.ID.String()+"/transcript",
		"", "intruder", map[string]string{"id": meeting.ID.String()})

	h.Transcript(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestGetMeeting_RequiresIdentity(t *testing.T) {
	meeting := entities.NewMeeting("bot-1", "user-1", "Weekly sync")
	h := NewMeeting(&fakeMeetingRepo{meeting: meeting}, nil, &fakePipeline{}, nil, nil)

	c, rec := newMeetingContext(http.MethodGet, "/api/meetings/"+meeting.ID.String(),
		"", "", map[string]string{"id": meeting.ID.String()})

	h.Get(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
