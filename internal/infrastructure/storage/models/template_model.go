package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TemplateModel represents a blank answer-sheet form. Exactly
// one live TemplateConfigJob drives its lifecycle; Status mirrors that
// job's terminal state.
type TemplateModel struct {
	bun.BaseModel `bun:"table:templates,alias:t"`

	ID                    uuid.UUID   `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name                  string      `bun:"name,notnull" json:"name" validate:"required,max=255"`
	Description           string      `bun:"description" json:"description,omitempty"`
	ConfigType            string      `bun:"config_type,notnull" json:"config_type" validate:"required,oneof=grid_based clustering_based"`
	Status                string      `bun:"status,notnull,default:'QUEUED'" json:"status" validate:"required,oneof=QUEUED PROCESSING COMPLETED FAILED CANCELLED"`
	NumQuestions          int         `bun:"num_questions,default:0" json:"num_questions"`
	OptionsPerQuestion    int         `bun:"options_per_question,default:0" json:"options_per_question"`
	ColumnRowDistribution StringArray `bun:"column_row_distribution,type:text[],default:'{}'" json:"column_row_distribution,omitempty"`
	TemplateFileID        *uuid.UUID  `bun:"template_file_id,type:uuid" json:"template_file_id,omitempty"`
	ConfigurationFileID   *uuid.UUID  `bun:"configuration_file_id,type:uuid" json:"configuration_file_id,omitempty"`
	Owner                 string      `bun:"owner,notnull" json:"owner" validate:"required"`
	CreatedAt             time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt             time.Time   `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	ConfigJob   *TemplateConfigJobModel `bun:"rel:has-one,join:id=template_id" json:"config_job,omitempty"`
	MarkingJobs []*MarkingJobModel      `bun:"rel:has-many,join:id=template_id" json:"marking_jobs,omitempty"`
}

func (TemplateModel) TableName() string { return "templates" }

func (t *TemplateModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = "QUEUED"
	}
	return nil
}

func (t *TemplateModel) BeforeUpdate(ctx interface{}) error {
	t.UpdatedAt = time.Now()
	return nil
}

func (t *TemplateModel) IsCompleted() bool { return t.Status == "COMPLETED" }
func (t *TemplateModel) IsTerminal() bool {
	switch t.Status {
	case "COMPLETED", "FAILED", "CANCELLED":
		return true
	default:
		return false
	}
}
