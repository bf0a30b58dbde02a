package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/application/producer"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// JobHandlers submits and reports on the three repository-backed job
// kinds.
type JobHandlers struct {
	templateConfigs *producer.TemplateConfigProducer
	markingConfigs  *producer.MarkingConfigProducer
	markingJobs     *producer.MarkingJobProducer

	templateConfigRepo repository.TemplateConfigJobRepository
	markingConfigRepo  repository.MarkingConfigJobRepository
	markingJobRepo     repository.MarkingJobRepository

	log *logger.Logger
}

func NewJobHandlers(
	templateConfigs *producer.TemplateConfigProducer,
	markingConfigs *producer.MarkingConfigProducer,
	markingJobs *producer.MarkingJobProducer,
	templateConfigRepo repository.TemplateConfigJobRepository,
	markingConfigRepo repository.MarkingConfigJobRepository,
	markingJobRepo repository.MarkingJobRepository,
	log *logger.Logger,
) *JobHandlers {
	return &JobHandlers{
		templateConfigs:    templateConfigs,
		markingConfigs:     markingConfigs,
		markingJobs:        markingJobs,
		templateConfigRepo: templateConfigRepo,
		markingConfigRepo:  markingConfigRepo,
		markingJobRepo:     markingJobRepo,
		log:                log,
	}
}

type createTemplateConfigJobRequest struct {
	TemplateID            uuid.UUID `json:"template_id" binding:"required"`
	TemplatePath           string    `json:"template_path" binding:"required"`
	ConfigType             string    `json:"config_type" binding:"required,oneof=grid_based clustering_based"`
	NumColumns             int       `json:"num_columns"`
	NumRowsPerColumn       int       `json:"num_rows_per_column"`
	NumOptionsPerQuestion  int       `json:"num_options_per_question"`
	Priority               string    `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

func (h *JobHandlers) CreateTemplateConfigJob(c *gin.Context) {
	var req createTemplateConfigJobRequest
	if bindJSON(c, &req) != nil {
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = "NORMAL"
	}

	job := &models.TemplateConfigJobModel{
		TemplateID:            req.TemplateID,
		Priority:              priority,
		Status:                "PENDING",
		TemplatePath:           req.TemplatePath,
		ConfigType:             req.ConfigType,
		NumColumns:             req.NumColumns,
		NumRowsPerColumn:       req.NumRowsPerColumn,
		NumOptionsPerQuestion:  req.NumOptionsPerQuestion,
	}
	if err := h.templateConfigs.Submit(c.Request.Context(), job); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusAccepted, job)
}

func (h *JobHandlers) GetTemplateConfigJob(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	job, err := h.templateConfigRepo.Get(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, job)
}

type createMarkingConfigJobRequest struct {
	TemplateID         uuid.UUID `json:"template_id" binding:"required"`
	TemplatePath       string    `json:"template_path" binding:"required"`
	MarkingSchemePath  string    `json:"marking_scheme_path" binding:"required"`
	TemplateConfigPath string    `json:"template_config_path" binding:"required"`
	Priority           string    `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

func (h *JobHandlers) CreateMarkingConfigJob(c *gin.Context) {
	var req createMarkingConfigJobRequest
	if bindJSON(c, &req) != nil {
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = "NORMAL"
	}

	job := &models.MarkingConfigJobModel{
		TemplateID:         req.TemplateID,
		Priority:           priority,
		Status:             "PENDING",
		TemplatePath:       req.TemplatePath,
		MarkingSchemePath:  req.MarkingSchemePath,
		TemplateConfigPath: req.TemplateConfigPath,
	}
	if err := h.markingConfigs.Submit(c.Request.Context(), job); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusAccepted, job)
}

func (h *JobHandlers) GetMarkingConfigJob(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	job, err := h.markingConfigRepo.Get(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, job)
}

type createMarkingJobRequest struct {
	TemplateID              uuid.UUID `json:"template_id" binding:"required"`
	MarkingSchemePath       string    `json:"marking_scheme_path" binding:"required"`
	AnswerSheetsFolderPath  string    `json:"answer_sheets_folder_path" binding:"required"`
	OutputPath              string    `json:"output_path" binding:"required"`
	IntermediateResultsPath string    `json:"intermediate_results_path"`
	SaveIntermediateResults bool      `json:"save_intermediate_results"`
	Priority                string    `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

func (h *JobHandlers) CreateMarkingJob(c *gin.Context) {
	var req createMarkingJobRequest
	if bindJSON(c, &req) != nil {
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = "NORMAL"
	}

	job := &models.MarkingJobModel{
		TemplateID:              req.TemplateID,
		Priority:                priority,
		Status:                  "PENDING",
		MarkingSchemePath:       req.MarkingSchemePath,
		AnswerSheetsFolderPath:  req.AnswerSheetsFolderPath,
		OutputPath:              req.OutputPath,
		IntermediateResultsPath: req.IntermediateResultsPath,
		SaveIntermediateResults: req.SaveIntermediateResults,
	}
	if err := h.markingJobs.Submit(c.Request.Context(), job); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusAccepted, job)
}

func (h *JobHandlers) GetMarkingJob(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	job, err := h.markingJobRepo.Get(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, job)
}

func (h *JobHandlers) ListMarkingJobs(c *gin.Context) {
	limit := getQueryInt(c, "limit", 20)
	offset := getQueryInt(c, "offset", 0)

	var templateID *uuid.UUID
	if raw := c.Query("template_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondAPIErrorWithRequestID(c, ErrInvalidID)
			return
		}
		templateID = &id
	}

	items, err := h.markingJobRepo.List(c.Request.Context(), templateID, limit, offset)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondList(c, http.StatusOK, items, len(items), limit, offset)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam, ok := getParam(c, "id")
	if !ok {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(idParam)
	if err != nil {
		respondAPIErrorWithRequestID(c, ErrInvalidID)
		return uuid.UUID{}, false
	}
	return id, true
}
