package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/vectorstore"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/queue"
)

// fakeMeetingRepo is an in-memory MeetingRepository tracking per-field writes.
type fakeMeetingRepo struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*entities.Meeting
	byBot    map[string]uuid.UUID

	summaryCalls   int
	processedCalls int
	writeErr       error
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{
		meetings: make(map[uuid.UUID]*entities.Meeting),
		byBot:    make(map[string]uuid.UUID),
	}
}

func (f *fakeMeetingRepo) add(m *entities.Meeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[m.ID] = m
	if m.BotID != "" {
		f.byBot[m.BotID] = m.ID
	}
}

func (f *fakeMeetingRepo) Create(ctx context.Context, m *entities.Meeting) error {
	f.add(m)
	return nil
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *m
	return &copy, nil
}

func (f *fakeMeetingRepo) GetByBotID(ctx context.Context, botID string) (*entities.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byBot[botID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *f.meetings[id]
	return &copy, nil
}

func (f *fakeMeetingRepo) ListByOwner(ctx context.Context, userID string) ([]*entities.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Meeting
	for _, m := range f.meetings {
		if m.CreatedByID == userID {
			copy := *m
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeMeetingRepo) get(id uuid.UUID) (*entities.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (f *fakeMeetingRepo) MarkTranscriptReady(ctx context.Context, id uuid.UUID, rawTranscript []byte, recordingURL string, speakers []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	m, err := f.get(id)
	if err != nil {
		return err
	}
	m.RawTranscript = rawTranscript
	m.RecordingURL = recordingURL
	m.MeetingEnded = true
	m.TranscriptReady = true
	return nil
}

func (f *fakeMeetingRepo) UpdateSummary(ctx context.Context, id uuid.UUID, summary string, items []entities.ActionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	m, err := f.get(id)
	if err != nil {
		return err
	}
	f.summaryCalls++
	m.Summary = summary
	return m.SetActionItems(items)
}

func (f *fakeMeetingRepo) UpdateActionItems(ctx context.Context, id uuid.UUID, items []entities.ActionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	return m.SetActionItems(items)
}

func (f *fakeMeetingRepo) UpdateRiskAnalysis(ctx context.Context, id uuid.UUID, document string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	m.RiskAnalysis = document
	return nil
}

func (f *fakeMeetingRepo) UpdateSentimentSeries(ctx context.Context, id uuid.UUID, series []entities.SentimentPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	raw, marshalErr := json.Marshal(series)
	if marshalErr != nil {
		return marshalErr
	}
	m.SentimentSeries = raw
	return nil
}

func (f *fakeMeetingRepo) UpdateSpeakerProfiles(ctx context.Context, id uuid.UUID, profiles map[string]entities.SpeakerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	raw, marshalErr := json.Marshal(profiles)
	if marshalErr != nil {
		return marshalErr
	}
	m.SpeakerProfiles = raw
	return nil
}

func (f *fakeMeetingRepo) UpdateArchiveURL(ctx context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	m.ArchiveURL = url
	return nil
}

func (f *fakeMeetingRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	f.processedCalls++
	m.Processed = true
	return nil
}

func (f *fakeMeetingRepo) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	m.EmailSent = true
	return nil
}

func (f *fakeMeetingRepo) MarkRAGProcessed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(id)
	if err != nil {
		return err
	}
	m.RAGProcessed = true
	return nil
}

// fakeChunkRepo enforces (meeting, index) uniqueness like the real table.
type fakeChunkRepo struct {
	mu   sync.Mutex
	rows map[string]*entities.TranscriptChunk
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{rows: make(map[string]*entities.TranscriptChunk)}
}

func (f *fakeChunkRepo) CreateSkippingDuplicates(ctx context.Context, chunks []*entities.TranscriptChunk) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inserted int64
	for _, c := range chunks {
		key := fmt.Sprintf("%s/%d", c.MeetingID, c.ChunkIndex)
		if _, exists := f.rows[key]; exists {
			continue
		}
		f.rows[key] = c
		inserted++
	}
	return inserted, nil
}

func (f *fakeChunkRepo) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.TranscriptChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.TranscriptChunk
	for _, c := range f.rows {
		if c.MeetingID == meetingID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkRepo) CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int64, error) {
	rows, _ := f.ListByMeeting(ctx, meetingID)
	return int64(len(rows)), nil
}

// fakeLLM scripts chat responses per system prompt and returns fixed-size
// embeddings.
type fakeLLM struct {
	mu        sync.Mutex
	responses map[string]string
	chatErr   error
	embedErr  error
	chatCalls []string
}

func (f *fakeLLM) Chat(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, system)
	f.mu.Unlock()
	if f.chatErr != nil {
		return "", f.chatErr
	}
	if resp, ok := f.responses[system]; ok {
		return resp, nil
	}
	return "{}", nil
}

func (f *fakeLLM) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	return out, nil
}

// fakeVectorStore records upserted vectors by ID.
type fakeVectorStore struct {
	mu      sync.Mutex
	vectors map[string]vectorstore.Vector
	upserts int
	err     error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{vectors: make(map[string]vectorstore.Vector)}
}

func (f *fakeVectorStore) Upsert(ctx context.Context, vectors []vectorstore.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts++
	for _, v := range vectors {
		f.vectors[v.ID] = v
	}
	return nil
}

// fakeGraphStore records merged extractions.
type fakeGraphStore struct {
	mu          sync.Mutex
	extractions []*entities.GraphExtraction
	err         error
}

func (f *fakeGraphStore) MergeExtraction(ctx context.Context, e *entities.GraphExtraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.extractions = append(f.extractions, e)
	return nil
}

// fakeQueue records enqueued jobs.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.ProcessingJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job queue.ProcessingJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return fmt.Sprintf("job-%d", len(f.jobs)), nil
}

// fakeEmail records sent mail.
type fakeEmail struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}
