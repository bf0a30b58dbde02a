package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/cv"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// TemplateConfigFile is the JSON document persisted alongside the warped
// template image. It is
// the shape both the marking-config and marking-job handlers load back in
// to replay bubble detection against a different image of the same
// template.
type TemplateConfigFile struct {
	ConfigType cv.ConfigType `json:"config_type"`
	Bubbles    cv.BubbleConfig `json:"bubbles"`
}

// TemplateConfigHandler detects anchors, warps to the fixed target
// rectangle, runs grid- or clustering-based bubble detection, and
// persists both the warped image and the bubble config.
type TemplateConfigHandler struct {
	store *artifact.Store
	jobs  repository.TemplateConfigJobRepository
}

func NewTemplateConfigHandler(store *artifact.Store, jobs repository.TemplateConfigJobRepository) *TemplateConfigHandler {
	return &TemplateConfigHandler{store: store, jobs: jobs}
}

// Handle runs one TemplateConfig job end to end and returns the result
// envelope to publish. A non-nil error means the caller should publish a
// failed envelope with this error's message instead.
func (h *TemplateConfigHandler) Handle(ctx context.Context, req jobkind.RequestEnvelope) (jobkind.TemplateConfigResult, error) {
	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: parse job id: %w", err)
	}
	if err := h.jobs.MarkProcessing(ctx, jobID); err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: mark processing: %w", err)
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: load job: %w", err)
	}

	img, err := h.loadImage(ctx, job.TemplatePath)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: load template image: %w", err)
	}

	gray := cv.ToGrayMatrix(img)
	edgeMask := cv.SobelEdges(gray, 60)

	corners, err := cv.DetectAnchors(edgeMask)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: %w", err)
	}

	transform, err := cv.PerspectiveTransform(corners)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: perspective transform: %w", err)
	}

	warped, err := warpImage(img, transform, cv.TargetWidth, cv.TargetHeight)
	if err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: %w", err)
	}
	warpedGray := cv.ToGrayMatrix(warped)
	warpedMask := cv.SobelEdges(warpedGray, 60)

	var bubbles cv.BubbleConfig
	switch cv.ConfigType(job.ConfigType) {
	case cv.ConfigGridBased:
		bubbles, err = cv.DetectGridBubbles(warpedMask, job.NumRowsPerColumn*job.NumColumns, job.NumOptionsPerQuestion, evenDistribution(job.NumColumns, job.NumRowsPerColumn))
	case cv.ConfigClusteringBased:
		thickLineY := cv.DetectThickLineY(warpedMask, cv.TargetWidth)
		bubbles, err = cv.DetectClusteringBubbles(warpedMask, job.NumColumns, job.NumRowsPerColumn, job.NumOptionsPerQuestion, thickLineY)
	default:
		err = fmt.Errorf("template config handler: unknown config type %q", job.ConfigType)
	}
	if err != nil {
		return jobkind.TemplateConfigResult{}, err
	}

	warpedImagePath := artifact.NamePath(fmt.Sprintf("templates/%s", job.TemplateID), fmt.Sprintf("%s_template.jpg", job.TemplateID))
	if _, err := h.saveJPEG(ctx, warpedImagePath, warped); err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: save warped image: %w", err)
	}

	configFile := TemplateConfigFile{ConfigType: cv.ConfigType(job.ConfigType), Bubbles: bubbles}
	configPath := artifact.NamePath(fmt.Sprintf("templates/%s", job.TemplateID), fmt.Sprintf("%s_config.json", job.TemplateID))
	if err := h.saveJSON(ctx, configPath, configFile); err != nil {
		return jobkind.TemplateConfigResult{}, fmt.Errorf("template config handler: save config json: %w", err)
	}

	logger.Default().Info("template config handler: completed", "job_id", job.ID, "template_id", job.TemplateID)

	return jobkind.TemplateConfigResult{
		TemplateConfigPath: configPath,
		OutputImagePath:    warpedImagePath,
		BubbleConfig:       map[string]any{"bubbles": bubbles},
		ImageDimensions:    &jobkind.ImageDimension{Width: cv.TargetWidth, Height: cv.TargetHeight},
		NumQuestions:       bubbles.NumQuestions,
		OptionsPerQuestion: bubbles.OptionsPerQuestion,
	}, nil
}

func evenDistribution(numColumns, rowsPerColumn int) []int {
	if numColumns <= 0 {
		return []int{rowsPerColumn}
	}
	dist := make([]int, numColumns)
	for i := range dist {
		dist[i] = rowsPerColumn
	}
	return dist
}

func (h *TemplateConfigHandler) loadImage(ctx context.Context, relPath string) (image.Image, error) {
	rc, err := h.store.Get(ctx, relPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	return img, err
}

func (h *TemplateConfigHandler) saveJPEG(ctx context.Context, relPath string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", err
	}
	_, _, err := h.store.Save(ctx, relPath, bytes.NewReader(buf.Bytes()))
	return relPath, err
}

func (h *TemplateConfigHandler) saveJSON(ctx context.Context, relPath string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = h.store.Save(ctx, relPath, bytes.NewReader(raw))
	return err
}

// waitForDeadline is used by handlers that need a context with a bounded
// deadline shorter than the caller's, e.g. the orchestrator's fan-in wait.
func waitForDeadline(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
