package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
)

type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a gorm-backed meeting repository.
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *entities.Meeting) error {
	if err := r.db.WithContext(ctx).Create(meeting).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (r *meetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).First(&meeting, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &meeting, nil
}

func (r *meetingRepository) GetByBotID(ctx context.Context, botID string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).First(&meeting, "bot_id = ?", botID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting by bot id: %w", err)
	}
	return &meeting, nil
}

func (r *meetingRepository) ListByOwner(ctx context.Context, userID string) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	err := r.db.WithContext(ctx).
		Where("created_by_id = ?", userID).
		Order("created_at DESC").
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

func (r *meetingRepository) MarkTranscriptReady(ctx context.Context, id uuid.UUID, rawTranscript []byte, recordingURL string, speakers []string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"meeting_ended":       true,
		"ended_at":            now,
		"transcript_ready":    true,
		"transcript_ready_at": now,
	}
	if len(rawTranscript) > 0 {
		updates["raw_transcript"] = rawTranscript
	}
	if recordingURL != "" {
		updates["recording_url"] = recordingURL
	}
	if len(speakers) > 0 {
		raw, err := json.Marshal(speakers)
		if err != nil {
			return fmt.Errorf("failed to encode speakers: %w", err)
		}
		updates["speakers"] = raw
	}
	return r.updateColumns(ctx, id, updates)
}

func (r *meetingRepository) UpdateSummary(ctx context.Context, id uuid.UUID, summary string, actionItems []entities.ActionItem) error {
	raw, err := json.Marshal(actionItems)
	if err != nil {
		return fmt.Errorf("failed to encode action items: %w", err)
	}
	return r.updateColumns(ctx, id, map[string]interface{}{
		"summary":      summary,
		"action_items": raw,
	})
}

func (r *meetingRepository) UpdateActionItems(ctx context.Context, id uuid.UUID, items []entities.ActionItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode action items: %w", err)
	}
	return r.updateColumns(ctx, id, map[string]interface{}{"action_items": raw})
}

func (r *meetingRepository) UpdateRiskAnalysis(ctx context.Context, id uuid.UUID, document string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"risk_analysis": document})
}

func (r *meetingRepository) UpdateSentimentSeries(ctx context.Context, id uuid.UUID, series []entities.SentimentPoint) error {
	raw, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode sentiment series: %w", err)
	}
	return r.updateColumns(ctx, id, map[string]interface{}{"sentiment_series": raw})
}

func (r *meetingRepository) UpdateSpeakerProfiles(ctx context.Context, id uuid.UUID, profiles map[string]entities.SpeakerProfile) error {
	raw, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to encode speaker profiles: %w", err)
	}
	return r.updateColumns(ctx, id, map[string]interface{}{"speaker_profiles": raw})
}

func (r *meetingRepository) UpdateArchiveURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"archive_url": url})
}

func (r *meetingRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"processed":    true,
		"processed_at": time.Now(),
	})
}

func (r *meetingRepository) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"email_sent":    true,
		"email_sent_at": time.Now(),
	})
}

func (r *meetingRepository) MarkRAGProcessed(ctx context.Context, id uuid.UUID) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"rag_processed":    true,
		"rag_processed_at": time.Now(),
	})
}

// updateColumns writes only the given columns. Stage updates go through here
// so no stage ever touches a column it does not own.
func (r *meetingRepository) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update meeting: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
