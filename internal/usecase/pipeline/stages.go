package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/vectorstore"
)

// Stage input bounds. Cost/safety limits, not correctness requirements.
const (
	riskInputLimit     = 15000
	profilesInputLimit = 20000
	sentimentBatchSize = 5
	llmMaxRetries      = 2
)

// chatWithRetry wraps one LLM call with exponential backoff for transient
// provider failures.
func (s *service) chatWithRetry(ctx context.Context, system, user string) (string, error) {
	var content string
	operation := func() error {
		var err error
		content, err = s.llm.Chat(ctx, system, user)
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), llmMaxRetries), ctx))
	return content, err
}

// runSummaryPhase is the synchronous head of the pipeline: summarize,
// persist, notify, mark processed. The summarizer itself never fails (it
// falls back), and persistence failures after the email went out are
// accepted as at-least-once side effects.
func (s *service) runSummaryPhase(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) {
	result := s.runSummarizer(ctx, meeting.Title, normalized)

	if err := s.meetings.UpdateSummary(ctx, meeting.ID, result.Summary, result.ActionItems); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to persist summary",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
	}

	if s.email != nil && meeting.OwnerEmail != "" {
		subject := fmt.Sprintf("Meeting summary: %s", meeting.Title)
		if err := s.email.Send(ctx, meeting.OwnerEmail, subject, summaryEmailHTML(meeting.Title, result)); err != nil {
			if s.logger != nil {
				s.logger.Warn("⚠️ Failed to send summary email",
					zap.String("meeting_id", meeting.ID.String()),
					zap.Error(err))
			}
		} else if err := s.meetings.MarkEmailSent(ctx, meeting.ID); err != nil && s.logger != nil {
			// Email already left; the flag is best-effort.
			s.logger.Warn("⚠️ Email sent but flag not persisted",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
	}

	if err := s.meetings.MarkProcessed(ctx, meeting.ID); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to mark meeting processed",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
	}
}

// runSummarizer produces the summary and action items. It never propagates
// failure: a transcript that yielded no usable text gets the failure summary,
// and any provider error yields the fallback summary with an empty action
// item list.
func (s *service) runSummarizer(ctx context.Context, title string, normalized *entities.NormalizedTranscript) *entities.SummaryResult {
	if normalized.IsEmpty() {
		return &entities.SummaryResult{
			Summary:     FailureSummary,
			ActionItems: []entities.ActionItem{},
		}
	}

	fallback := &entities.SummaryResult{
		Summary:     FallbackSummary,
		ActionItems: []entities.ActionItem{},
	}

	content, err := s.chatWithRetry(ctx, summarySystemPrompt, summaryUserPrompt(title, normalized.Text))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Summarizer call failed, using fallback", zap.Error(err))
		}
		return fallback
	}

	result, err := parseSummaryResponse(content)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Summarizer response unparseable, using fallback", zap.Error(err))
		}
		return fallback
	}
	return result
}

// stageVectorIndex chunks the canonical text, embeds each chunk and upserts
// the vectors under deterministic IDs, then persists chunk metadata rows.
// Deterministic IDs make the whole stage idempotent.
func (s *service) stageVectorIndex(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) error {
	if normalized.IsEmpty() {
		return nil
	}

	textChunks := ChunkText(normalized.Text, maxChunkSize)
	if len(textChunks) == 0 {
		return nil
	}

	texts := make([]string, len(textChunks))
	for i, c := range textChunks {
		texts[i] = c.Text
	}
	embeddings, err := s.llm.CreateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != len(textChunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(textChunks))
	}

	vectors := make([]vectorstore.Vector, len(textChunks))
	chunkRows := make([]*entities.TranscriptChunk, len(textChunks))
	for i, c := range textChunks {
		chunkRows[i] = entities.NewTranscriptChunk(meeting.ID, i, c.Text, c.Speaker)
		vectors[i] = vectorstore.Vector{
			ID:     chunkRows[i].VectorID,
			Values: embeddings[i],
			Metadata: map[string]interface{}{
				"meetingId":    meeting.ID.String(),
				"meetingTitle": meeting.Title,
				"userId":       meeting.CreatedByID,
				"chunkIndex":   i,
				"speaker":      c.Speaker,
				"text":         c.Text,
			},
		}
	}

	if err := s.vectors.Upsert(ctx, vectors); err != nil {
		return err
	}

	inserted, err := s.chunks.CreateSkippingDuplicates(ctx, chunkRows)
	if err != nil {
		return fmt.Errorf("chunk metadata insert failed: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("📦 Transcript indexed",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Int("chunks", len(chunkRows)),
			zap.Int64("new_rows", inserted))
	}

	return s.meetings.MarkRAGProcessed(ctx, meeting.ID)
}

// stageRiskAnalysis produces the structured risk document. On failure the
// field is simply left unset.
func (s *service) stageRiskAnalysis(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) error {
	if normalized.IsEmpty() {
		return nil
	}

	input := truncate(normalized.Text, riskInputLimit)
	content, err := s.chatWithRetry(ctx, riskSystemPrompt, riskUserPrompt(input))
	if err != nil {
		return err
	}
	return s.meetings.UpdateRiskAnalysis(ctx, meeting.ID, content)
}

// stageSentimentArc scores each canonical window per speaker, batching
// windows to bound external-call fan-out, and merges the batches into one
// ordered series keyed by window start offset.
func (s *service) stageSentimentArc(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) error {
	if len(normalized.Windows) == 0 {
		return nil
	}

	byStart := make(map[int]entities.SentimentPoint, len(normalized.Windows))
	for start := 0; start < len(normalized.Windows); start += sentimentBatchSize {
		end := start + sentimentBatchSize
		if end > len(normalized.Windows) {
			end = len(normalized.Windows)
		}
		batch := normalized.Windows[start:end]

		content, err := s.chatWithRetry(ctx, sentimentSystemPrompt, sentimentUserPrompt(batch))
		if err != nil {
			return err
		}
		points, err := parseSentimentResponse(content)
		if err != nil {
			return err
		}
		for _, p := range points {
			byStart[p.Timestamp] = p
		}
		// A window the model skipped still gets a timestamp-only entry.
		for _, w := range batch {
			if _, ok := byStart[w.Start]; !ok {
				byStart[w.Start] = entities.SentimentPoint{Timestamp: w.Start}
			}
		}
	}

	series := make([]entities.SentimentPoint, 0, len(normalized.Windows))
	for _, w := range normalized.Windows {
		if p, ok := byStart[w.Start]; ok {
			series = append(series, p)
		}
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp < series[j].Timestamp })

	return s.meetings.UpdateSentimentSeries(ctx, meeting.ID, series)
}

// stageSpeakerProfiles profiles every unique speaker over a bounded prefix
// of canonical text. The model identifies speakers from the text itself, so
// the stage runs even for shapes where normalization yields no speaker list.
func (s *service) stageSpeakerProfiles(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) error {
	if normalized.IsEmpty() {
		return nil
	}

	input := truncate(normalized.Text, profilesInputLimit)
	content, err := s.chatWithRetry(ctx, profilesSystemPrompt, profilesUserPrompt(input))
	if err != nil {
		return err
	}
	profiles, err := parseProfilesResponse(content)
	if err != nil {
		return err
	}
	return s.meetings.UpdateSpeakerProfiles(ctx, meeting.ID, profiles)
}

// stageGraphExtract extracts typed entities and relationships and merges
// them additively into the shared graph.
func (s *service) stageGraphExtract(ctx context.Context, meeting *entities.Meeting, normalized *entities.NormalizedTranscript) error {
	if normalized.IsEmpty() {
		return nil
	}

	content, err := s.chatWithRetry(ctx, graphSystemPrompt, graphUserPrompt(normalized.Text))
	if err != nil {
		return err
	}
	extraction, err := parseGraphResponse(content, meeting.ID.String())
	if err != nil {
		return err
	}
	return s.graph.MergeExtraction(ctx, extraction)
}

// stageArchiveRecording copies the bot's mp4 into object storage.
func (s *service) stageArchiveRecording(ctx context.Context, meeting *entities.Meeting) error {
	url, err := s.archiver.ArchiveFromURL(ctx, meeting.ArchiveObjectName(), meeting.RecordingURL)
	if err != nil {
		return err
	}
	return s.meetings.UpdateArchiveURL(ctx, meeting.ID, url)
}

func summaryEmailHTML(title string, result *entities.SummaryResult) string {
	html := fmt.Sprintf("<h2>%s</h2><p>%s</p>", title, result.Summary)
	if len(result.ActionItems) > 0 {
		html += "<h3>Action items</h3><ul>"
		for _, item := range result.ActionItems {
			html += "<li>" + item.Text + "</li>"
		}
		html += "</ul>"
	}
	html += fmt.Sprintf("<p><small>Generated %s</small></p>", time.Now().Format("Jan 2, 2006"))
	return html
}
