package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// TemplateHandlers exposes CRUD over answer-sheet templates:
// the parent resource every TemplateConfig/MarkingConfig/MarkingJob is
// submitted against.
type TemplateHandlers struct {
	templates repository.TemplateRepository
	log       *logger.Logger
}

func NewTemplateHandlers(templates repository.TemplateRepository, log *logger.Logger) *TemplateHandlers {
	return &TemplateHandlers{templates: templates, log: log}
}

type createTemplateRequest struct {
	Name                  string   `json:"name" binding:"required,max=255"`
	Description           string   `json:"description"`
	ConfigType            string   `json:"config_type" binding:"required,oneof=grid_based clustering_based"`
	NumQuestions          int      `json:"num_questions" binding:"required,min=1"`
	OptionsPerQuestion    int      `json:"options_per_question" binding:"required,min=2"`
	ColumnRowDistribution []string `json:"column_row_distribution"`
	Owner                 string   `json:"owner" binding:"required"`
}

func (h *TemplateHandlers) Create(c *gin.Context) {
	var req createTemplateRequest
	if bindJSON(c, &req) != nil {
		return
	}

	tmpl := &models.TemplateModel{
		Name:                  req.Name,
		Description:           req.Description,
		ConfigType:            req.ConfigType,
		Status:                "QUEUED",
		NumQuestions:          req.NumQuestions,
		OptionsPerQuestion:    req.OptionsPerQuestion,
		ColumnRowDistribution: models.StringArray(req.ColumnRowDistribution),
		Owner:                 req.Owner,
	}
	if err := h.templates.Create(c.Request.Context(), tmpl); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, tmpl)
}

func (h *TemplateHandlers) Get(c *gin.Context) {
	idParam, ok := getParam(c, "id")
	if !ok {
		return
	}
	id, err := uuid.Parse(idParam)
	if err != nil {
		respondAPIErrorWithRequestID(c, ErrInvalidID)
		return
	}

	tmpl, err := h.templates.GetWithRelations(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, tmpl)
}

func (h *TemplateHandlers) List(c *gin.Context) {
	owner := getQuery(c, "owner", "")
	limit := getQueryInt(c, "limit", 20)
	offset := getQueryInt(c, "offset", 0)

	items, err := h.templates.List(c.Request.Context(), owner, limit, offset)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondList(c, http.StatusOK, items, len(items), limit, offset)
}
