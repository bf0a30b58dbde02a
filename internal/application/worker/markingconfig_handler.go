package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/cv"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// MarkingConfigFile is the JSON document persisted alongside the computed
// marking scheme:
// the answer key expressed as one Mark per bubble, in the template's
// bubble order, so the marking-job handler can score against it without
// re-running the marking-scheme image through detection again.
type MarkingConfigFile struct {
	Bubbles cv.BubbleConfig `json:"bubbles"`
	Answers []cv.Mark       `json:"answers"`
}

// MarkingConfigHandler detects anchors on the marking-scheme (answer key)
// image, estimates the homography against the already-detected template
// bubble layout, then reads which bubble is filled for every question.
type MarkingConfigHandler struct {
	store *artifact.Store
	jobs  repository.MarkingConfigJobRepository
}

func NewMarkingConfigHandler(store *artifact.Store, jobs repository.MarkingConfigJobRepository) *MarkingConfigHandler {
	return &MarkingConfigHandler{store: store, jobs: jobs}
}

// Handle runs one MarkingConfig job end to end.
func (h *MarkingConfigHandler) Handle(ctx context.Context, req jobkind.RequestEnvelope) (jobkind.MarkingConfigResult, error) {
	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: parse job id: %w", err)
	}
	if err := h.jobs.MarkProcessing(ctx, jobID); err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: mark processing: %w", err)
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: load job: %w", err)
	}

	var configFile TemplateConfigFile
	if err := loadJSONFromStore(ctx, h.store, job.TemplateConfigPath, &configFile); err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: load template config: %w", err)
	}

	schemeImg, err := loadImageFromStore(ctx, h.store, job.MarkingSchemePath)
	if err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: load marking scheme image: %w", err)
	}

	h2s, err := homographyFromAnchors(schemeImg)
	if err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: %w", err)
	}
	if cv.AlignmentFailed(h2s.sheetToTarget, h2s.corners) {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: marking scheme image failed alignment")
	}

	gray := cv.ToGrayMatrix(schemeImg)
	binarized := cv.BinarizeForMarking(gray)
	answers := cv.ReadMarks(binarized, configFile.Bubbles.BubbleCenters, h2s.targetToSheet)

	markingFile := MarkingConfigFile{Bubbles: configFile.Bubbles, Answers: answers}
	markingConfigPath := artifact.NamePath(fmt.Sprintf("marking-configs/%s", job.TemplateID), fmt.Sprintf("%s_marking.json", job.ID))
	if err := saveJSONToStore(ctx, h.store, markingConfigPath, markingFile); err != nil {
		return jobkind.MarkingConfigResult{}, fmt.Errorf("marking config handler: save marking config: %w", err)
	}

	logger.Default().Info("marking config handler: completed", "job_id", job.ID, "template_id", job.TemplateID)

	return jobkind.MarkingConfigResult{
		MarkingConfigPath: markingConfigPath,
		MarkingSchemePath: job.MarkingSchemePath,
	}, nil
}

