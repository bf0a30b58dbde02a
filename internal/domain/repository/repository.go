// Package repository defines narrow persistence interfaces for the three
// persisted job kinds (template-config, marking-config, marking), the
// templates, and the artifact-metadata table. Each interface exposes
// Get/Update/List and Create plus the status-transition and progress
// methods its producer, worker and result consumer need; callers that
// need cross-cutting queries compose these rather than reaching for a
// God-repository.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// TemplateRepository persists TemplateModel rows.
type TemplateRepository interface {
	Create(ctx context.Context, t *models.TemplateModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.TemplateModel, error)
	GetWithRelations(ctx context.Context, id uuid.UUID) (*models.TemplateModel, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Update(ctx context.Context, t *models.TemplateModel) error
	List(ctx context.Context, owner string, limit, offset int) ([]*models.TemplateModel, error)
}

// TemplateConfigJobRepository persists TemplateConfigJobModel rows.
type TemplateConfigJobRepository interface {
	Create(ctx context.Context, j *models.TemplateConfigJobModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.TemplateConfigJobModel, error)
	Update(ctx context.Context, j *models.TemplateConfigJobModel) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, templateConfigPath, outputImagePath, debugImagePath string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*models.TemplateConfigJobModel, error)
}

// MarkingConfigJobRepository persists MarkingConfigJobModel rows.
type MarkingConfigJobRepository interface {
	Create(ctx context.Context, j *models.MarkingConfigJobModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.MarkingConfigJobModel, error)
	Update(ctx context.Context, j *models.MarkingConfigJobModel) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, markingConfigPath string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// MarkingJobRepository persists MarkingJobModel rows, including the
// progress counters the fan-in orchestrator increments per sheet.
type MarkingJobRepository interface {
	Create(ctx context.Context, j *models.MarkingJobModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.MarkingJobModel, error)
	Update(ctx context.Context, j *models.MarkingJobModel) error
	MarkProcessing(ctx context.Context, id uuid.UUID, totalAnswerSheets int) error
	IncrementProgress(ctx context.Context, id uuid.UUID, sheetSucceeded bool) (*models.MarkingJobModel, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status string, resultsSummary models.JSONBMap) error
	List(ctx context.Context, templateID *uuid.UUID, limit, offset int) ([]*models.MarkingJobModel, error)
}

// FileRepository persists FileOrFolderModel artifact-metadata rows.
type FileRepository interface {
	Create(ctx context.Context, f *models.FileOrFolderModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.FileOrFolderModel, error)
	GetByPath(ctx context.Context, path string) (*models.FileOrFolderModel, error)
	Update(ctx context.Context, f *models.FileOrFolderModel) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.FileOrFolderModel, error)
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.FileOrFolderModel, error)
}
