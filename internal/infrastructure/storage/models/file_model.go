package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FileOrFolderModel represents an artifact-store record: the
// bytes live under Path in the artifact store, this row is only metadata.
type FileOrFolderModel struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name         string    `bun:"name,notnull" json:"name" validate:"required"`
	OriginalName string    `bun:"original_name,notnull" json:"original_name"`
	Path         string    `bun:"path,notnull,unique" json:"path" validate:"required"`
	Size         int64     `bun:"size,notnull,default:0" json:"size"`
	Extension    string    `bun:"extension" json:"extension,omitempty"`
	FileType     string    `bun:"file_type" json:"file_type,omitempty"`
	Status       string    `bun:"status,notnull,default:'PENDING'" json:"status" validate:"required,oneof=PENDING UPLOADING UPLOADED FAILED DELETED"`
	DeletionDate time.Time `bun:"deletion_date,notnull" json:"deletion_date"`
	Owner        string    `bun:"owner,notnull" json:"owner" validate:"required"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (FileOrFolderModel) TableName() string { return "files" }

func (f *FileOrFolderModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.DeletionDate.IsZero() {
		f.DeletionDate = now.Add(7 * 24 * time.Hour)
	}
	return nil
}

func (f *FileOrFolderModel) BeforeUpdate(ctx interface{}) error {
	f.UpdatedAt = time.Now()
	return nil
}

// IsExpired reports whether the artifact's retention window has elapsed.
// The retention sweep (internal/application/trigger) does not call it; it
// selects expired rows with FileRepository.ListExpired.
func (f *FileOrFolderModel) IsExpired() bool {
	return time.Now().After(f.DeletionDate)
}
