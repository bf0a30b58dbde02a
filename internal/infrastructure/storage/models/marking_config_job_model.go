package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MarkingConfigJobModel converts a marking-scheme image plus a completed
// template config into cached marked-bubble coordinates.
type MarkingConfigJobModel struct {
	bun.BaseModel `bun:"table:marking_config_jobs,alias:mcj"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TemplateID uuid.UUID `bun:"template_id,notnull,type:uuid" json:"template_id" validate:"required"`
	Priority   string    `bun:"priority,notnull,default:'NORMAL'" json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Status     string    `bun:"status,notnull,default:'PENDING'" json:"status" validate:"required,oneof=PENDING QUEUED PROCESSING COMPLETED FAILED CANCELLED"`

	TemplatePath       string `bun:"template_path,notnull" json:"template_path" validate:"required"`
	MarkingSchemePath  string `bun:"marking_scheme_path,notnull" json:"marking_scheme_path" validate:"required"`
	TemplateConfigPath string `bun:"template_config_path,notnull" json:"template_config_path" validate:"required"`

	MarkingConfigPath string `bun:"marking_config_path" json:"marking_config_path,omitempty"`

	ProcessingStartedAt   *time.Time `bun:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `bun:"processing_completed_at" json:"processing_completed_at,omitempty"`
	ErrorMessage          *string    `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Template *TemplateModel `bun:"rel:belongs-to,join:template_id=id" json:"template,omitempty"`
}

func (MarkingConfigJobModel) TableName() string { return "marking_config_jobs" }

func (j *MarkingConfigJobModel) BeforeInsert(ctx interface{}) error {
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

func (j *MarkingConfigJobModel) BeforeUpdate(ctx interface{}) error {
	j.UpdatedAt = time.Now()
	return nil
}
