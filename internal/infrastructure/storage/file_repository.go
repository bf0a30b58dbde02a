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

var _ repository.FileRepository = (*FileRepository)(nil)

// FileRepository implements repository.FileRepository using Bun ORM. Rows
// are metadata only; the bytes live in the artifact store (C1).
type FileRepository struct {
	db *bun.DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *bun.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *models.FileOrFolderModel) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(f).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (r *FileRepository) Get(ctx context.Context, id uuid.UUID) (*models.FileOrFolderModel, error) {
	f := &models.FileOrFolderModel{}
	err := r.db.NewSelect().Model(f).Where("f.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return f, nil
}

func (r *FileRepository) GetByPath(ctx context.Context, path string) (*models.FileOrFolderModel, error) {
	f := &models.FileOrFolderModel{}
	err := r.db.NewSelect().Model(f).Where("path = ?", path).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find file by path: %w", err)
	}
	return f, nil
}

func (r *FileRepository) Update(ctx context.Context, f *models.FileOrFolderModel) error {
	_, err := r.db.NewUpdate().
		Model(f).
		Column("name", "status", "size", "deletion_date", "updated_at").
		Where("id = ?", f.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update file record: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*models.FileOrFolderModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

func (r *FileRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.FileOrFolderModel, error) {
	var files []*models.FileOrFolderModel
	q := r.db.NewSelect().
		Model(&files).
		Where("deletion_date < ? AND status != ?", before, "DELETED").
		Order("deletion_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.FileOrFolderModel, error) {
	var files []*models.FileOrFolderModel
	q := r.db.NewSelect().Model(&files).Where("owner = ?", owner).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list files by owner: %w", err)
	}
	return files, nil
}
