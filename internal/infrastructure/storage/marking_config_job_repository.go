package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

var _ repository.MarkingConfigJobRepository = (*MarkingConfigJobRepository)(nil)

// MarkingConfigJobRepository implements repository.MarkingConfigJobRepository
// using Bun ORM.
type MarkingConfigJobRepository struct {
	db *bun.DB
}

// NewMarkingConfigJobRepository creates a new MarkingConfigJobRepository.
func NewMarkingConfigJobRepository(db *bun.DB) *MarkingConfigJobRepository {
	return &MarkingConfigJobRepository{db: db}
}

func (r *MarkingConfigJobRepository) Create(ctx context.Context, j *models.MarkingConfigJobModel) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(j).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create marking config job: %w", err)
	}
	return nil
}

func (r *MarkingConfigJobRepository) Get(ctx context.Context, id uuid.UUID) (*models.MarkingConfigJobModel, error) {
	j := &models.MarkingConfigJobModel{}
	err := r.db.NewSelect().Model(j).Where("mcj.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("marking config job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find marking config job: %w", err)
	}
	return j, nil
}

func (r *MarkingConfigJobRepository) Update(ctx context.Context, j *models.MarkingConfigJobModel) error {
	_, err := r.db.NewUpdate().
		Model(j).
		Column("status", "marking_config_path", "processing_started_at",
			"processing_completed_at", "error_message", "updated_at").
		Where("id = ?", j.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update marking config job: %w", err)
	}
	return nil
}

func (r *MarkingConfigJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.MarkingConfigJobModel)(nil)).
		Set("status = ?", "PROCESSING").
		Set("processing_started_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark marking config job processing: %w", err)
	}
	return nil
}

func (r *MarkingConfigJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, markingConfigPath string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.MarkingConfigJobModel)(nil)).
		Set("status = ?", "COMPLETED").
		Set("marking_config_path = ?", markingConfigPath).
		Set("processing_completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark marking config job completed: %w", err)
	}
	return nil
}

func (r *MarkingConfigJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.MarkingConfigJobModel)(nil)).
		Set("status = ?", "FAILED").
		Set("error_message = ?", errMsg).
		Set("processing_completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark marking config job failed: %w", err)
	}
	return nil
}
