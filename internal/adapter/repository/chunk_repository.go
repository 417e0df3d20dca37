package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haidang-dev/meeting-insight/internal/domain/entities"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
)

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository creates a gorm-backed transcript chunk repository.
func NewChunkRepository(db *gorm.DB) repositories.ChunkRepository {
	return &chunkRepository{db: db}
}

func (r *chunkRepository) CreateSkippingDuplicates(ctx context.Context, chunks []*entities.TranscriptChunk) (int64, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "chunk_index"}},
			DoNothing: true,
		}).
		Create(&chunks)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert transcript chunks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *chunkRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.TranscriptChunk, error) {
	var chunks []*entities.TranscriptChunk
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript chunks: %w", err)
	}
	return chunks, nil
}

func (r *chunkRepository) CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.TranscriptChunk{}).
		Where("meeting_id = ?", meetingID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transcript chunks: %w", err)
	}
	return count, nil
}
