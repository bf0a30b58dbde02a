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

var _ repository.MarkingJobRepository = (*MarkingJobRepository)(nil)

// MarkingJobRepository implements repository.MarkingJobRepository using Bun
// ORM. IncrementProgress is the hot path the fan-in orchestrator calls once
// per completed sheet; it updates the progress counters and flips the job
// to its terminal status atomically in a single transaction so concurrent
// sheet completions never race past the total.
type MarkingJobRepository struct {
	db *bun.DB
}

// NewMarkingJobRepository creates a new MarkingJobRepository.
func NewMarkingJobRepository(db *bun.DB) *MarkingJobRepository {
	return &MarkingJobRepository{db: db}
}

func (r *MarkingJobRepository) Create(ctx context.Context, j *models.MarkingJobModel) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(j).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create marking job: %w", err)
	}
	return nil
}

func (r *MarkingJobRepository) Get(ctx context.Context, id uuid.UUID) (*models.MarkingJobModel, error) {
	j := &models.MarkingJobModel{}
	err := r.db.NewSelect().Model(j).Where("mj.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("marking job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find marking job: %w", err)
	}
	return j, nil
}

func (r *MarkingJobRepository) Update(ctx context.Context, j *models.MarkingJobModel) error {
	_, err := r.db.NewUpdate().
		Model(j).
		Column("status", "total_answer_sheets", "processed_answer_sheets", "failed_answer_sheets",
			"results_summary", "processing_started_at", "processing_completed_at", "error_message", "updated_at").
		Where("id = ?", j.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update marking job: %w", err)
	}
	return nil
}

func (r *MarkingJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID, totalAnswerSheets int) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.MarkingJobModel)(nil)).
		Set("status = ?", "PROCESSING").
		Set("total_answer_sheets = ?", totalAnswerSheets).
		Set("processing_started_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark marking job processing: %w", err)
	}
	return nil
}

func (r *MarkingJobRepository) IncrementProgress(ctx context.Context, id uuid.UUID, sheetSucceeded bool) (*models.MarkingJobModel, error) {
	var updated *models.MarkingJobModel

	err := r.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		j := &models.MarkingJobModel{}
		if err := tx.NewSelect().Model(j).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			return fmt.Errorf("failed to lock marking job: %w", err)
		}

		j.ProcessedAnswerSheets++
		if !sheetSucceeded {
			j.FailedAnswerSheets++
		}

		cols := []string{"processed_answer_sheets", "failed_answer_sheets", "updated_at"}
		j.UpdatedAt = time.Now()

		if j.TotalAnswerSheets > 0 && j.ProcessedAnswerSheets >= j.TotalAnswerSheets && !j.IsTerminal() {
			succeeded := j.ProcessedAnswerSheets - j.FailedAnswerSheets
			if float64(succeeded)/float64(j.ProcessedAnswerSheets) >= 0.5 {
				j.Status = "COMPLETED"
			} else {
				j.Status = "FAILED"
			}
			now := j.UpdatedAt
			j.ProcessingCompletedAt = &now
			cols = append(cols, "status", "processing_completed_at")
		}

		if _, err := tx.NewUpdate().Model(j).Column(cols...).Where("id = ?", j.ID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to persist marking job progress: %w", err)
		}

		updated = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MarkingJobRepository) MarkTerminal(ctx context.Context, id uuid.UUID, status string, resultsSummary models.JSONBMap) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.MarkingJobModel)(nil)).
		Set("status = ?", status).
		Set("results_summary = ?", resultsSummary).
		Set("processing_completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark marking job terminal: %w", err)
	}
	return nil
}

func (r *MarkingJobRepository) List(ctx context.Context, templateID *uuid.UUID, limit, offset int) ([]*models.MarkingJobModel, error) {
	var jobs []*models.MarkingJobModel
	q := r.db.NewSelect().Model(&jobs).Order("created_at DESC")
	if templateID != nil {
		q = q.Where("template_id = ?", *templateID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list marking jobs: %w", err)
	}
	return jobs, nil
}
