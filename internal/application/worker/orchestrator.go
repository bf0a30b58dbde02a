package worker

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/cv"
	"github.com/smilemakc/mcqflow/internal/application/producer"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/model"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

var sheetImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
}

// MarkingJobHandler is the marking orchestrator: for a batch of answer
// sheets, score each synchronously against the marking config, write the
// result spreadsheet, fan out one IndexTask per sheet for asynchronous
// index-number recognition, and wait out a bounded deadline for that
// fan-in to complete before returning.
//
// The batch's marking_scheme_path is read as the marking-config job's
// output JSON (the computed answer key, not a raw image) so scoring never
// has to re-run bubble detection against the key sheet a second time.
type MarkingJobHandler struct {
	store         *artifact.Store
	jobs          repository.MarkingJobRepository
	indexProducer *producer.IndexTaskProducer
	pool          *Pool
	fanInPerSheet time.Duration
	fanInMax      time.Duration
	fanIn         *broker.FanInTracker
}

// NewMarkingJobHandler creates a new MarkingJobHandler. fanInPerSheet and
// fanInMax come from config.ArtifactConfig. fanIn may be nil: the
// Postgres-backed wait in waitForFanIn works identically either way, with
// or without the Redis fast path.
func NewMarkingJobHandler(
	store *artifact.Store,
	jobs repository.MarkingJobRepository,
	indexProducer *producer.IndexTaskProducer,
	fanInPerSheet, fanInMax time.Duration,
	fanIn *broker.FanInTracker,
) *MarkingJobHandler {
	return &MarkingJobHandler{
		store:         store,
		jobs:          jobs,
		indexProducer: indexProducer,
		pool:          NewPool(8),
		fanInPerSheet: fanInPerSheet,
		fanInMax:      fanInMax,
		fanIn:         fanIn,
	}
}

// Handle runs one MarkingJob end to end.
func (h *MarkingJobHandler) Handle(ctx context.Context, req jobkind.RequestEnvelope) (jobkind.MarkingJobResult, error) {
	startedAt := time.Now()

	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: parse job id: %w", err)
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: load job: %w", err)
	}

	var markingFile MarkingConfigFile
	if err := loadJSONFromStore(ctx, h.store, job.MarkingSchemePath, &markingFile); err != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: load marking config: %w", err)
	}

	sheets, err := h.listAnswerSheets(ctx, job.AnswerSheetsFolderPath)
	if err != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: list answer sheets: %w", err)
	}
	if len(sheets) == 0 {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: no answer sheets found under %s", job.AnswerSheetsFolderPath)
	}
	total := len(sheets)

	if err := h.jobs.MarkProcessing(ctx, jobID, total); err != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: mark processing: %w", err)
	}

	sheetRows := make(map[string]int, total)
	for i := range sheets {
		sheetRows[strconv.Itoa(i)] = rowForSheet(i)
	}
	if err := h.fanIn.Init(ctx, jobID, sheetRows, h.fanInDeadline(total)); err != nil {
		logger.Default().Error("marking job handler: fan-in tracker init failed", "job_id", job.ID, "error", err)
	}

	choiceDistribution := make([]int, markingFile.Bubbles.NumQuestions)
	for i := range choiceDistribution {
		choiceDistribution[i] = markingFile.Bubbles.OptionsPerQuestion
	}

	wb := newWorkbook()
	priority := jobkind.Priority(job.Priority)

	fns := make([]func() error, total)
	for i, relPath := range sheets {
		i, relPath := i, relPath
		fns[i] = func() error {
			h.processSheet(ctx, wb, job, i, relPath, markingFile, choiceDistribution, priority)
			return nil
		}
	}
	_ = h.pool.Run(fns)

	lock := lockForPath(job.OutputPath)
	lock.Lock()
	saveErr := saveWorkbook(ctx, h.store, job.OutputPath, wb)
	lock.Unlock()
	if saveErr != nil {
		return jobkind.MarkingJobResult{}, fmt.Errorf("marking job handler: save workbook: %w", saveErr)
	}

	row, reachedTerminal := h.waitForFanIn(ctx, jobID, total)
	if err := h.fanIn.Delete(ctx, jobID); err != nil {
		logger.Default().Error("marking job handler: fan-in tracker delete failed", "job_id", job.ID, "error", err)
	}
	if !reachedTerminal {
		if err := MarkIndexTimeout(ctx, h.store, job.OutputPath, total); err != nil {
			logger.Default().Error("marking job handler: mark index timeout failed", "job_id", job.ID, "error", err)
		}
	}

	summary := map[string]any{
		"total_answer_sheets": total,
		"timed_out":           !reachedTerminal,
	}
	processed, failed := 0, 0
	if row != nil {
		processed, failed = row.ProcessedAnswerSheets, row.FailedAnswerSheets
		summary["processed_answer_sheets"] = processed
		summary["failed_answer_sheets"] = failed
	}

	logger.Default().Info("marking job handler: completed",
		"job_id", job.ID, "total_sheets", total, "reached_terminal", reachedTerminal)

	return jobkind.MarkingJobResult{
		OutputPath:              job.OutputPath,
		IntermediateResultsPath: job.IntermediateResultsPath,
		TotalAnswerSheets:       total,
		ProcessedAnswerSheets:   processed,
		FailedAnswerSheets:      failed,
		ProcessingStartedAt:     startedAt,
		ProcessingCompletedAt:   time.Now(),
		ResultsSummary:          summary,
	}, nil
}

// listAnswerSheets returns every image file under folder, sorted
// lexically: the row-index invariant (row at index i+2 corresponds to the
// i-th sheet, the i-th file in lexical order) depends on this exact
// ordering and on it never changing between the scoring pass and the
// index-recognition fan-in.
func (h *MarkingJobHandler) listAnswerSheets(ctx context.Context, folder string) ([]string, error) {
	all, err := h.store.List(ctx, folder, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range all {
		if sheetImageExtensions[strings.ToLower(filepath.Ext(p))] {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// processSheet scores one answer sheet and writes its spreadsheet row. It
// never returns an error to the caller: a sheet this handler cannot align
// or read is recorded as a flagged row,
// not a batch failure.
func (h *MarkingJobHandler) processSheet(
	ctx context.Context,
	wb *excelize.File,
	job *models.MarkingJobModel,
	sheetIndex int,
	relPath string,
	markingFile MarkingConfigFile,
	choiceDistribution []int,
	priority jobkind.Priority,
) {
	row, debugImage := h.scoreSheet(ctx, job, relPath, markingFile, choiceDistribution)

	lock := lockForPath(job.OutputPath)
	lock.Lock()
	err := appendRow(wb, sheetIndex, row)
	lock.Unlock()
	if err != nil {
		logger.Default().Error("marking job handler: append row failed", "job_id", job.ID, "sheet_index", sheetIndex, "error", err)
	}

	if job.SaveIntermediateResults && debugImage != nil {
		debugPath := artifact.NamePath(job.IntermediateResultsPath, fmt.Sprintf("sheet_%d.jpg", sheetIndex))
		if _, err := saveJPEGToStore(ctx, h.store, debugPath, debugImage); err != nil {
			logger.Default().Error("marking job handler: save intermediate image failed", "job_id", job.ID, "sheet_index", sheetIndex, "error", err)
		}
	}

	if h.indexProducer == nil {
		return
	}
	if _, err := h.indexProducer.Dispatch(ctx, job.ID.String(), strconv.Itoa(sheetIndex), relPath, priority); err != nil {
		logger.Default().Error("marking job handler: dispatch index task failed", "job_id", job.ID, "sheet_index", sheetIndex, "error", err)
		if _, incErr := h.jobs.IncrementProgress(ctx, job.ID, false); incErr != nil {
			logger.Default().Error("marking job handler: increment progress after dispatch failure", "job_id", job.ID, "error", incErr)
		}
	}
}

func projectPoints(points []cv.Point, h cv.Homography) []cv.Point {
	out := make([]cv.Point, len(points))
	for i, p := range points {
		out[i] = h.Apply(p)
	}
	return out
}

// labeledPointsFor pairs each projected bubble center with the outcome
// AnnotateMarks would have drawn for it, for the spreadsheet's
// labeled_points_json column. Pairing stops at len(outcomes), the same
// bound AnnotateMarks applies.
func labeledPointsFor(points []cv.Point, outcomes []cv.QuestionOutcome) []model.LabeledPoint {
	n := len(outcomes)
	if len(points) < n {
		n = len(points)
	}
	out := make([]model.LabeledPoint, n)
	for i := 0; i < n; i++ {
		out[i] = model.LabeledPoint{
			X:     int(points[i].X),
			Y:     int(points[i].Y),
			Class: string(outcomes[i]),
		}
	}
	return out
}

// fanInDeadline computes the bounded wait for a batch of total sheets:
// fanInPerSheet * total, capped at fanInMax.
func (h *MarkingJobHandler) fanInDeadline(total int) time.Duration {
	deadline := h.fanInPerSheet * time.Duration(total)
	if h.fanInMax > 0 && (deadline > h.fanInMax || deadline <= 0) {
		deadline = h.fanInMax
	}
	return deadline
}

// waitForFanIn polls the MarkingJob row until it reaches a terminal status
// or the fan-in deadline elapses (deadline = min(fanInPerSheet * total,
// fanInMax)). Postgres is what this actually blocks on; the Redis tracker
// is consulted only to log how many sheets are still outstanding, the
// same snapshot a restarted orchestrator would read instead of
// re-deriving it from the spreadsheet. Returns the last row it observed
// and whether it was terminal.
func (h *MarkingJobHandler) waitForFanIn(ctx context.Context, jobID uuid.UUID, total int) (*models.MarkingJobModel, bool) {
	deadline := h.fanInDeadline(total)
	waitCtx, cancel := waitForDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		row, err := h.jobs.Get(ctx, jobID)
		if err == nil && row.IsTerminal() {
			return row, true
		}
		select {
		case <-waitCtx.Done():
			row, _ := h.jobs.Get(ctx, jobID)
			if outstanding, err := h.fanIn.Outstanding(ctx, jobID); err == nil && len(outstanding) > 0 {
				logger.Default().Info("marking job handler: fan-in deadline elapsed",
					"job_id", jobID, "outstanding_sheets", len(outstanding))
			}
			return row, false
		case <-ticker.C:
		}
	}
}

// scoreSheet aligns and scores one answer-sheet image. A sheet whose
// anchors cannot be found or whose fitted homography fails AlignmentFailed
// is recorded with an alignment_failed flag and no score, rather than
// aborting the batch.
func (h *MarkingJobHandler) scoreSheet(
	ctx context.Context,
	job *models.MarkingJobModel,
	relPath string,
	markingFile MarkingConfigFile,
	choiceDistribution []int,
) (ResultRow, image.Image) {
	img, err := loadImageFromStore(ctx, h.store, relPath)
	if err != nil {
		logger.Default().Error("marking job handler: load sheet image failed", "job_id", job.ID, "path", relPath, "error", err)
		return ResultRow{Flag: true, FlagReason: "alignment_failed"}, nil
	}

	enhanced := imaging.AdjustContrast(img, 15)

	geom, err := homographyFromAnchors(enhanced)
	if err != nil || cv.AlignmentFailed(geom.sheetToTarget, geom.corners) {
		return ResultRow{Flag: true, FlagReason: "alignment_failed"}, nil
	}

	gray := cv.ToGrayMatrix(enhanced)
	binarized := cv.BinarizeForMarking(gray)
	studentAnswers := cv.ReadMarks(binarized, markingFile.Bubbles.BubbleCenters, geom.targetToSheet)
	score := cv.Score(markingFile.Answers, studentAnswers, choiceDistribution, markingFile.Bubbles.ColumnRowDistribution)

	projected := projectPoints(markingFile.Bubbles.BubbleCenters, geom.targetToSheet)
	outcomes := cv.OutcomesForQuestions(markingFile.Bubbles.NumQuestions, score)

	row := ResultRow{
		Correct:       score.Correct,
		Incorrect:     score.Incorrect,
		MultiMarked:   score.MultiMarked,
		Unmarked:      score.Unmarked,
		ColumnTotals:  score.ColumnTotals,
		Score:         score.Score,
		Flag:          score.Flag,
		FlagReason:    score.FlagReason,
		LabeledPoints: labeledPointsFor(projected, outcomes),
	}

	if !job.SaveIntermediateResults {
		return row, nil
	}

	annotated := cv.AnnotateMarks(enhanced, projected, outcomes, 6)
	return row, annotated
}
