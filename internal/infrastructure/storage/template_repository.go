package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

var _ repository.TemplateRepository = (*TemplateRepository)(nil)

// TemplateRepository implements repository.TemplateRepository using Bun ORM.
type TemplateRepository struct {
	db *bun.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *bun.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, t *models.TemplateModel) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(t).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, id uuid.UUID) (*models.TemplateModel, error) {
	t := &models.TemplateModel{}
	err := r.db.NewSelect().Model(t).Where("t.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) GetWithRelations(ctx context.Context, id uuid.UUID) (*models.TemplateModel, error) {
	t := &models.TemplateModel{}
	err := r.db.NewSelect().
		Model(t).
		Relation("ConfigJob").
		Relation("MarkingJobs").
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find template with relations: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.NewUpdate().
		Model((*models.TemplateModel)(nil)).
		Set("status = ?", status).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update template status: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Update(ctx context.Context, t *models.TemplateModel) error {
	_, err := r.db.NewUpdate().
		Model(t).
		Column("name", "description", "status", "num_questions", "options_per_question",
			"column_row_distribution", "template_file_id", "configuration_file_id", "updated_at").
		Where("id = ?", t.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) List(ctx context.Context, owner string, limit, offset int) ([]*models.TemplateModel, error) {
	var templates []*models.TemplateModel
	q := r.db.NewSelect().Model(&templates).Order("created_at DESC")
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
