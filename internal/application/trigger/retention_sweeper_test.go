package trigger

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

type fakeFileRepository struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*models.FileOrFolderModel
	deleted []uuid.UUID
}

func newFakeFileRepository() *fakeFileRepository {
	return &fakeFileRepository{rows: make(map[uuid.UUID]*models.FileOrFolderModel)}
}

func (f *fakeFileRepository) Create(ctx context.Context, m *models.FileOrFolderModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.rows[m.ID] = m
	return nil
}

func (f *fakeFileRepository) Get(ctx context.Context, id uuid.UUID) (*models.FileOrFolderModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id], nil
}

func (f *fakeFileRepository) GetByPath(ctx context.Context, path string) (*models.FileOrFolderModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.Path == path {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeFileRepository) Update(ctx context.Context, m *models.FileOrFolderModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[m.ID] = m
	return nil
}

func (f *fakeFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFileRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.FileOrFolderModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FileOrFolderModel
	for _, m := range f.rows {
		if m.DeletionDate.Before(before) {
			out = append(out, m)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeFileRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.FileOrFolderModel, error) {
	return nil, nil
}

func TestRetentionSweeperDeletesExpiredArtifacts(t *testing.T) {
	store, err := artifact.New(t.TempDir())
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	if _, _, err := store.Save(context.Background(), "templates/t1/sheet.jpg", strings.NewReader("stale bytes")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := store.Save(context.Background(), "templates/t1/keep.jpg", strings.NewReader("fresh bytes")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	files := newFakeFileRepository()
	expired := &models.FileOrFolderModel{ID: uuid.New(), Path: "templates/t1/sheet.jpg", DeletionDate: time.Now().Add(-time.Hour)}
	fresh := &models.FileOrFolderModel{ID: uuid.New(), Path: "templates/t1/keep.jpg", DeletionDate: time.Now().Add(24 * time.Hour)}
	_ = files.Create(context.Background(), expired)
	_ = files.Create(context.Background(), fresh)

	sweeper := NewRetentionSweeper(files, store, time.Hour)
	sweeper.sweepOnce()

	if _, err := store.Get(context.Background(), "templates/t1/sheet.jpg"); err == nil {
		t.Fatal("expected expired artifact to be deleted from the store")
	}
	if _, err := store.Get(context.Background(), "templates/t1/keep.jpg"); err != nil {
		t.Fatalf("expected fresh artifact to survive, got: %v", err)
	}
	if _, ok := files.rows[expired.ID]; ok {
		t.Fatal("expected expired metadata row to be deleted")
	}
	if _, ok := files.rows[fresh.ID]; !ok {
		t.Fatal("expected fresh metadata row to survive")
	}
}
