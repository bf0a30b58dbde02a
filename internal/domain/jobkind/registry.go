package jobkind

import "time"

// QueueNames holds the broker topology for one job kind: its request queue
// plus, where the kind publishes one, its result queue. The Queue* fields
// of config.BrokerConfig are not applied to it.
type QueueNames struct {
	RequestQueue  string
	RequestKey    string
	ResultQueue   string
	ResultKey     string
}

// DefaultQueues is the queue topology, keyed by Kind. IndexTask's
// "request" queue is the one the marking orchestrator publishes to and the
// index worker consumes; its "result" queue is the one the index worker
// publishes to and the orchestrator's fan-in consumer reads.
var DefaultQueues = map[Kind]QueueNames{
	TemplateConfig: {
		RequestQueue: "template_config_queue", RequestKey: "template.config",
		ResultQueue: "template_config_results", ResultKey: "template.config.result",
	},
	MarkingConfig: {
		RequestQueue: "marking_config_queue", RequestKey: "marking.config",
		ResultQueue: "marking_config_results", ResultKey: "marking.config.result",
	},
	MarkingJob: {
		RequestQueue: "marking_job_queue", RequestKey: "marking.job",
		ResultQueue: "marking_job_results", ResultKey: "marking.job.result",
	},
	IndexTask: {
		RequestQueue: "index_task_queue", RequestKey: "index.task",
		ResultQueue: "index_task_results", ResultKey: "index.task.result",
	},
}

const ExchangeName = "mcq_ocr"

// RequestEnvelope is the worker-input message shape: a job id,
// a discriminant name, and kind-specific fields folded in via Fields.
type RequestEnvelope struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Kind   Kind           `json:"kind"`
	Fields map[string]any `json:"fields"`
}

// ResultStatus is the outcome reported in a ResultEnvelope.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// ResultEnvelope is the single shape every job kind publishes on its
// result queue; Result carries the kind-specific payload as a
// free-form map so that the four consumer loops share one decode path and
// branch only on Kind.
type ResultEnvelope struct {
	JobID        string         `json:"job_id"`
	Kind         Kind           `json:"kind"`
	Status       ResultStatus   `json:"status"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// TemplateConfigResult is the typed view of Result for Kind ==
// TemplateConfig, used by the worker to build the envelope and by the
// result consumer to apply it.
type TemplateConfigResult struct {
	TemplateConfigPath string          `json:"template_config_path"`
	OutputImagePath    string          `json:"output_image_path"`
	ResultImagePath    string          `json:"result_image_path,omitempty"`
	BubbleConfig       map[string]any  `json:"bubble_config"`
	ImageDimensions    *ImageDimension `json:"image_dimensions,omitempty"`
	NumQuestions       int             `json:"num_questions"`
	OptionsPerQuestion int             `json:"options_per_question"`
}

type ImageDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MarkingConfigResult is the typed view of Result for Kind == MarkingConfig.
type MarkingConfigResult struct {
	MarkingConfigPath string `json:"marking_config_path"`
	MarkingSchemePath string `json:"marking_scheme_path"`
}

// MarkingJobResult is the typed view of Result for Kind == MarkingJob.
type MarkingJobResult struct {
	OutputPath               string         `json:"output_path"`
	IntermediateResultsPath  string         `json:"intermediate_results_path,omitempty"`
	TotalAnswerSheets        int            `json:"total_answer_sheets"`
	ProcessedAnswerSheets    int            `json:"processed_answer_sheets"`
	FailedAnswerSheets       int            `json:"failed_answer_sheets"`
	ProcessingStartedAt      time.Time      `json:"processing_started_at"`
	ProcessingCompletedAt    time.Time      `json:"processing_completed_at"`
	ResultsSummary           map[string]any `json:"results_summary,omitempty"`
}

// IndexTaskFlag is the confidence-derived flag on an index-recognition
// result.
type IndexTaskFlag string

const (
	IndexFlagOK             IndexTaskFlag = "ok"
	IndexFlagLowConfidence  IndexTaskFlag = "low_confidence"
)

// IndexTaskResult is the typed view of Result for Kind == IndexTask.
type IndexTaskResult struct {
	TaskID      string        `json:"task_id"`
	SheetID     string        `json:"sheet_id"`
	IndexNumber string        `json:"index_number"`
	Confidence  float64       `json:"confidence"`
	Flag        IndexTaskFlag `json:"flag"`
}

// LowConfidenceThreshold is the cutoff below which an index result is
// flagged low_confidence.
const LowConfidenceThreshold = 0.8
