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

var _ repository.TemplateConfigJobRepository = (*TemplateConfigJobRepository)(nil)

// TemplateConfigJobRepository implements repository.TemplateConfigJobRepository
// using Bun ORM.
type TemplateConfigJobRepository struct {
	db *bun.DB
}

// NewTemplateConfigJobRepository creates a new TemplateConfigJobRepository.
func NewTemplateConfigJobRepository(db *bun.DB) *TemplateConfigJobRepository {
	return &TemplateConfigJobRepository{db: db}
}

func (r *TemplateConfigJobRepository) Create(ctx context.Context, j *models.TemplateConfigJobModel) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(j).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create template config job: %w", err)
	}
	return nil
}

func (r *TemplateConfigJobRepository) Get(ctx context.Context, id uuid.UUID) (*models.TemplateConfigJobModel, error) {
	j := &models.TemplateConfigJobModel{}
	err := r.db.NewSelect().Model(j).Where("tcj.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template config job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find template config job: %w", err)
	}
	return j, nil
}

func (r *TemplateConfigJobRepository) Update(ctx context.Context, j *models.TemplateConfigJobModel) error {
	_, err := r.db.NewUpdate().
		Model(j).
		Column("status", "template_config_path", "output_image_path", "debug_image_path",
			"processing_started_at", "processing_completed_at", "error_message", "updated_at").
		Where("id = ?", j.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update template config job: %w", err)
	}
	return nil
}

func (r *TemplateConfigJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.TemplateConfigJobModel)(nil)).
		Set("status = ?", "PROCESSING").
		Set("processing_started_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark template config job processing: %w", err)
	}
	return nil
}

func (r *TemplateConfigJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, templateConfigPath, outputImagePath, debugImagePath string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.TemplateConfigJobModel)(nil)).
		Set("status = ?", "COMPLETED").
		Set("template_config_path = ?", templateConfigPath).
		Set("output_image_path = ?", outputImagePath).
		Set("debug_image_path = ?", debugImagePath).
		Set("processing_completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark template config job completed: %w", err)
	}
	return nil
}

func (r *TemplateConfigJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.TemplateConfigJobModel)(nil)).
		Set("status = ?", "FAILED").
		Set("error_message = ?", errMsg).
		Set("processing_completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark template config job failed: %w", err)
	}
	return nil
}

func (r *TemplateConfigJobRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*models.TemplateConfigJobModel, error) {
	var jobs []*models.TemplateConfigJobModel
	err := r.db.NewSelect().
		Model(&jobs).
		Where("template_id = ?", templateID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list template config jobs: %w", err)
	}
	return jobs, nil
}
