package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MarkingJobModel is a batch job scoring every sheet in a folder against a
// marking scheme.
type MarkingJobModel struct {
	bun.BaseModel `bun:"table:marking_jobs,alias:mj"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TemplateID uuid.UUID `bun:"template_id,notnull,type:uuid" json:"template_id" validate:"required"`
	Priority   string    `bun:"priority,notnull,default:'NORMAL'" json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Status     string    `bun:"status,notnull,default:'PENDING'" json:"status" validate:"required,oneof=PENDING QUEUED PROCESSING COMPLETED FAILED CANCELLED"`

	MarkingSchemePath       string `bun:"marking_scheme_path,notnull" json:"marking_scheme_path" validate:"required"`
	AnswerSheetsFolderPath  string `bun:"answer_sheets_folder_path,notnull" json:"answer_sheets_folder_path" validate:"required"`
	OutputPath              string `bun:"output_path,notnull" json:"output_path" validate:"required"`
	IntermediateResultsPath string `bun:"intermediate_results_path" json:"intermediate_results_path,omitempty"`
	SaveIntermediateResults bool   `bun:"save_intermediate_results,default:false" json:"save_intermediate_results"`

	TotalAnswerSheets     int      `bun:"total_answer_sheets,default:0" json:"total_answer_sheets"`
	ProcessedAnswerSheets int      `bun:"processed_answer_sheets,default:0" json:"processed_answer_sheets"`
	FailedAnswerSheets    int      `bun:"failed_answer_sheets,default:0" json:"failed_answer_sheets"`
	ResultsSummary        JSONBMap `bun:"results_summary,type:jsonb,default:'{}'" json:"results_summary,omitempty"`

	ProcessingStartedAt   *time.Time `bun:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `bun:"processing_completed_at" json:"processing_completed_at,omitempty"`
	ErrorMessage          *string    `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Template *TemplateModel `bun:"rel:belongs-to,join:template_id=id" json:"template,omitempty"`
}

func (MarkingJobModel) TableName() string { return "marking_jobs" }

func (j *MarkingJobModel) BeforeInsert(ctx interface{}) error {
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
	if j.ResultsSummary == nil {
		j.ResultsSummary = make(JSONBMap)
	}
	return nil
}

func (j *MarkingJobModel) BeforeUpdate(ctx interface{}) error {
	j.UpdatedAt = time.Now()
	return nil
}

func (j *MarkingJobModel) IsTerminal() bool {
	switch j.Status {
	case "COMPLETED", "FAILED", "CANCELLED":
		return true
	default:
		return false
	}
}
