package worker

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/cv"
	"github.com/smilemakc/mcqflow/internal/application/recognizer"
	"github.com/smilemakc/mcqflow/internal/domain/apperr"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// IndexTaskHandler crops the handwritten index box off a sheet image and
// hands it to a Recognizer. Unlike the other three handlers, an IndexTask
// has no repository row of its own — its request Fields carry everything
// the handler needs directly, and its result only ever reaches the
// marking job it belongs to via the IndexTaskConsumer applying the result
// envelope.
type IndexTaskHandler struct {
	store      *artifact.Store
	recognizer recognizer.Recognizer
}

func NewIndexTaskHandler(store *artifact.Store, r recognizer.Recognizer) *IndexTaskHandler {
	return &IndexTaskHandler{store: store, recognizer: r}
}

// Handle runs one IndexTask end to end.
func (h *IndexTaskHandler) Handle(ctx context.Context, req jobkind.RequestEnvelope) (jobkind.IndexTaskResult, error) {
	sheetID, _ := req.Fields["sheet_id"].(string)
	sheetImagePath, _ := req.Fields["sheet_image_path"].(string)
	if sheetID == "" || sheetImagePath == "" {
		return jobkind.IndexTaskResult{}, apperr.NewValidation("index task handler: request is missing sheet_id or sheet_image_path")
	}

	img, err := loadImageFromStore(ctx, h.store, sheetImagePath)
	if err != nil {
		return jobkind.IndexTaskResult{}, fmt.Errorf("index task handler: load sheet image: %w", err)
	}

	gray := cv.ToGrayMatrix(img)
	edgeMask := cv.SobelEdges(gray, 60)

	box, err := cv.DetectIndexSection(edgeMask)
	if err != nil {
		return jobkind.IndexTaskResult{}, fmt.Errorf("index task handler: detect index section: %w", err)
	}

	cropped := cropImage(img, box)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: 90}); err != nil {
		return jobkind.IndexTaskResult{}, fmt.Errorf("index task handler: encode crop: %w", err)
	}

	index, confidence, err := h.recognizer.Recognize(ctx, buf.Bytes())
	if err != nil {
		return jobkind.IndexTaskResult{}, fmt.Errorf("index task handler: recognize: %w", err)
	}

	flag := jobkind.IndexFlagOK
	if confidence < jobkind.LowConfidenceThreshold {
		flag = jobkind.IndexFlagLowConfidence
	}

	logger.Default().Info("index task handler: completed", "task_id", req.ID, "sheet_id", sheetID, "confidence", confidence, "flag", flag)

	return jobkind.IndexTaskResult{
		TaskID:      req.ID,
		SheetID:     sheetID,
		IndexNumber: index,
		Confidence:  confidence,
		Flag:        flag,
	}, nil
}
