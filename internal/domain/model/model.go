// Package model defines the plain domain types the application layer
// operates on. These are deliberately free of storage tags: the
// repository layer (internal/infrastructure/storage) owns the mapping to
// and from its own Bun models, so that producers, consumers, and workers
// never leak an ORM type across a package boundary.
package model

import (
	"time"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
)

type ConfigType string

const (
	ConfigTypeGridBased       ConfigType = "grid_based"
	ConfigTypeClusteringBased ConfigType = "clustering_based"
)

// TemplateStatus mirrors the TemplateConfigJob's terminal state; modeled
// separately from jobkind.Status because a Template additionally starts
// out life with no job at all.
type TemplateStatus string

const (
	TemplateQueued     TemplateStatus = "QUEUED"
	TemplateProcessing TemplateStatus = "PROCESSING"
	TemplateCompleted  TemplateStatus = "COMPLETED"
	TemplateFailed     TemplateStatus = "FAILED"
	TemplateCancelled  TemplateStatus = "CANCELLED"
)

// Template represents a blank answer-sheet form.
type Template struct {
	ID                  string
	Name                string
	Description         string
	ConfigType          ConfigType
	Status              TemplateStatus
	NumQuestions        int
	OptionsPerQuestion  int
	ColumnRowDistribution []int
	TemplateFileID      *string
	ConfigurationFileID *string
	Owner               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TemplateConfigJob detects bubble coordinates on a blank template.
type TemplateConfigJob struct {
	ID         string
	TemplateID string
	Priority   jobkind.Priority
	Status     jobkind.Status

	TemplatePath string
	ConfigType   ConfigType

	// Layout inputs; the clustering and grid modes both read them.
	NumColumns           int
	NumRowsPerColumn     int
	NumOptionsPerQuestion int

	TemplateConfigPath string
	OutputImagePath    string
	DebugImagePath     string

	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	ErrorMessage          *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkingConfigJob converts a marking-scheme image plus a completed
// template config into cached marked-bubble coordinates.
type MarkingConfigJob struct {
	ID         string
	TemplateID string
	Priority   jobkind.Priority
	Status     jobkind.Status

	TemplatePath       string
	MarkingSchemePath  string
	TemplateConfigPath string

	MarkingConfigPath string

	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	ErrorMessage          *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkingJob is a batch job scoring every sheet in a folder against a
// marking scheme.
type MarkingJob struct {
	ID         string
	TemplateID string
	Priority   jobkind.Priority
	Status     jobkind.Status

	MarkingSchemePath       string
	AnswerSheetsFolderPath  string
	OutputPath              string
	IntermediateResultsPath string
	SaveIntermediateResults bool

	TotalAnswerSheets     int
	ProcessedAnswerSheets int
	FailedAnswerSheets    int
	ResultsSummary        map[string]any

	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	ErrorMessage          *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminalStatus derives the batch's final status from the aggregate
// rule: success requires at least half of processed sheets to succeed.
func (m *MarkingJob) TerminalStatus() jobkind.Status {
	if m.ProcessedAnswerSheets == 0 {
		return jobkind.StatusFailed
	}
	succeeded := m.ProcessedAnswerSheets - m.FailedAnswerSheets
	if float64(succeeded)/float64(m.ProcessedAnswerSheets) >= 0.5 {
		return jobkind.StatusCompleted
	}
	return jobkind.StatusFailed
}

// AnswerSheetResult is a transient per-sheet scoring result;
// never persisted row-by-row, only summarized into the output
// spreadsheet.
type AnswerSheetResult struct {
	SheetID      string
	Path         string
	Correct      []int
	Incorrect    []int
	MultiMarked  []int
	Unmarked     []int
	ColumnTotals map[int]int
	Score        int
	Flag         bool
	FlagReason   string
	IndexNumber  *string
	IndexConfidence *float64
	LabeledPoints []LabeledPoint
}

// LabeledPoint is one scored bubble's pixel position plus its
// classification, used to render intermediate annotated images and to
// populate the spreadsheet's labeled_points_json column.
type LabeledPoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Class string `json:"class"` // correct | incorrect | multi_marked | unmarked
}

// FileStatus is the lifecycle of an uploaded or generated artifact record.
type FileStatus string

const (
	FileStatusPending   FileStatus = "PENDING"
	FileStatusUploading FileStatus = "UPLOADING"
	FileStatusUploaded  FileStatus = "UPLOADED"
	FileStatusFailed    FileStatus = "FAILED"
	FileStatusDeleted   FileStatus = "DELETED"
)

// FileOrFolder is metadata about an artifact; the bytes
// themselves live in the artifact store (C1), addressed by Path.
type FileOrFolder struct {
	ID           string
	Name         string
	OriginalName string
	Path         string
	Size         int64
	Extension    string
	FileType     string
	Status       FileStatus
	DeletionDate time.Time
	Owner        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultDeletionWindow is how far in the future a fresh artifact's
// deletion_date is stamped.
const DefaultDeletionWindow = 7 * 24 * time.Hour
