package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TemplateConfigJobModel is the CV job that detects bubble coordinates on
// a blank template.
type TemplateConfigJobModel struct {
	bun.BaseModel `bun:"table:template_config_jobs,alias:tcj"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TemplateID uuid.UUID `bun:"template_id,notnull,type:uuid" json:"template_id" validate:"required"`
	Priority   string    `bun:"priority,notnull,default:'NORMAL'" json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Status     string    `bun:"status,notnull,default:'PENDING'" json:"status" validate:"required,oneof=PENDING QUEUED PROCESSING COMPLETED FAILED CANCELLED"`

	TemplatePath string `bun:"template_path,notnull" json:"template_path" validate:"required"`
	ConfigType   string `bun:"config_type,notnull" json:"config_type" validate:"required,oneof=grid_based clustering_based"`

	NumColumns            int `bun:"num_columns,default:0" json:"num_columns,omitempty"`
	NumRowsPerColumn      int `bun:"num_rows_per_column,default:0" json:"num_rows_per_column,omitempty"`
	NumOptionsPerQuestion int `bun:"num_options_per_question,default:0" json:"num_options_per_question,omitempty"`

	TemplateConfigPath string `bun:"template_config_path" json:"template_config_path,omitempty"`
	OutputImagePath    string `bun:"output_image_path" json:"output_image_path,omitempty"`
	DebugImagePath     string `bun:"debug_image_path" json:"debug_image_path,omitempty"`

	ProcessingStartedAt   *time.Time `bun:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `bun:"processing_completed_at" json:"processing_completed_at,omitempty"`
	ErrorMessage          *string    `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Template *TemplateModel `bun:"rel:belongs-to,join:template_id=id" json:"template,omitempty"`
}

func (TemplateConfigJobModel) TableName() string { return "template_config_jobs" }

func (j *TemplateConfigJobModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = "PENDING"
	}
	if j.Priority == "" {
		j.Priority = "NORMAL"
	}
	return nil
}

func (j *TemplateConfigJobModel) BeforeUpdate(ctx interface{}) error {
	j.UpdatedAt = time.Now()
	return nil
}

func (j *TemplateConfigJobModel) IsTerminal() bool {
	switch j.Status {
	case "COMPLETED", "FAILED", "CANCELLED":
		return true
	default:
		return false
	}
}
