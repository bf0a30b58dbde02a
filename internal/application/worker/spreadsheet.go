package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/domain/model"
)

// resultSheetName is the single worksheet every result workbook carries.
const resultSheetName = "Results"

// spreadsheetHeader is the fixed column layout for a result workbook row.
// Column A (index_no) is the one cell the index-recognition fan-in
// patches after the row is first written.
var spreadsheetHeader = []string{
	"index_no", "correct", "incorrect", "more_than_one_marked", "not_marked",
	"column_totals", "score", "flag", "flag_reason", "labeled_points_json",
}

const (
	colIndexNo          = 1
	colCorrect          = 2
	colIncorrect        = 3
	colMoreThanOneMarked = 4
	colNotMarked         = 5
	colColumnTotal       = 6
	colScore             = 7
	colFlag              = 8
	colFlagReason        = 9
	colLabeledPointsJSON = 10
)

// rowForSheet maps a 0-based sheet index to its 1-based spreadsheet row:
// row 1 is the header, so sheet 0 lands on row 2.
func rowForSheet(sheetIndex int) int { return sheetIndex + 2 }

// spreadsheetLocks serializes read-modify-write access to one output path
// at a time. The orchestrator appends/updates rows while it scores a
// batch, and the index-result fan-in (IndexTaskConsumer) patches a single
// cell per sheet as OCR results trickle in from a separate consumer loop
// in the same process; both sides share one mutex per path.
var spreadsheetLocks sync.Map // map[string]*sync.Mutex

func lockForPath(path string) *sync.Mutex {
	v, _ := spreadsheetLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ResultRow is one scored sheet, ready to append to the workbook.
type ResultRow struct {
	Correct       []int
	Incorrect     []int
	MultiMarked   []int
	Unmarked      []int
	ColumnTotals  map[int]int
	Score         int
	Flag          bool
	FlagReason    string
	LabeledPoints []model.LabeledPoint
}

func newWorkbook() *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), resultSheetName)
	for i, h := range spreadsheetHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultSheetName, cell, h)
	}
	return f
}

func intsToCSV(xs []int) string {
	if len(xs) == 0 {
		return ""
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func columnTotalsJSON(totals map[int]int) string {
	raw, err := json.Marshal(totals)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func labeledPointsJSON(points []model.LabeledPoint) string {
	if len(points) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// appendRow writes row at sheetIndex's spreadsheet row. It leaves the
// index_no cell untouched (blank) for the index-result fan-in to fill in
// later.
func appendRow(f *excelize.File, sheetIndex int, row ResultRow) error {
	rowNum := rowForSheet(sheetIndex)
	values := map[int]any{
		colCorrect:           intsToCSV(row.Correct),
		colIncorrect:         intsToCSV(row.Incorrect),
		colMoreThanOneMarked: intsToCSV(row.MultiMarked),
		colNotMarked:         intsToCSV(row.Unmarked),
		colColumnTotal:       columnTotalsJSON(row.ColumnTotals),
		colScore:             row.Score,
		colFlag:              row.Flag,
		colFlagReason:        row.FlagReason,
		colLabeledPointsJSON: labeledPointsJSON(row.LabeledPoints),
	}
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col, rowNum)
		if err := f.SetCellValue(resultSheetName, cell, v); err != nil {
			return fmt.Errorf("spreadsheet: set cell %s: %w", cell, err)
		}
	}
	return nil
}

// saveWorkbook writes f to outputPath in the artifact store.
func saveWorkbook(ctx context.Context, store *artifact.Store, outputPath string, f *excelize.File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("spreadsheet: encode workbook: %w", err)
	}
	_, _, err := store.Save(ctx, outputPath, bytes.NewReader(buf.Bytes()))
	return err
}

// openWorkbook reads the workbook at outputPath back from the artifact
// store, used by the index-result fan-in to patch a single cell into an
// already-persisted batch.
func openWorkbook(ctx context.Context, store *artifact.Store, outputPath string) (*excelize.File, error) {
	rc, err := store.Get(ctx, outputPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return excelize.OpenReader(rc)
}

// UpdateIndexCell patches the index_no cell for one sheet's row under
// outputPath's lock. flagReason, if non-empty, is written only when the
// row does not already carry a flag reason from scoring (an alignment or
// marking failure takes priority over a merely-uncertain or failed index
// read). It is the index-result fan-in's only write against the shared
// workbook.
func UpdateIndexCell(ctx context.Context, store *artifact.Store, outputPath string, sheetIndex int, indexNumber string, flagReason string) error {
	lock := lockForPath(outputPath)
	lock.Lock()
	defer lock.Unlock()

	f, err := openWorkbook(ctx, store, outputPath)
	if err != nil {
		return fmt.Errorf("update index cell: open workbook: %w", err)
	}

	rowNum := rowForSheet(sheetIndex)
	indexCell, _ := excelize.CoordinatesToCellName(colIndexNo, rowNum)
	if err := f.SetCellValue(resultSheetName, indexCell, indexNumber); err != nil {
		return fmt.Errorf("update index cell: set index_no: %w", err)
	}

	if flagReason != "" {
		reasonCell, _ := excelize.CoordinatesToCellName(colFlagReason, rowNum)
		existing, _ := f.GetCellValue(resultSheetName, reasonCell)
		if existing == "" {
			flagCell, _ := excelize.CoordinatesToCellName(colFlag, rowNum)
			if err := f.SetCellValue(resultSheetName, flagCell, true); err != nil {
				return fmt.Errorf("update index cell: set flag: %w", err)
			}
			if err := f.SetCellValue(resultSheetName, reasonCell, flagReason); err != nil {
				return fmt.Errorf("update index cell: set flag_reason: %w", err)
			}
		}
	}

	return saveWorkbook(ctx, store, outputPath, f)
}

// MarkIndexTimeout patches every row from sheet 0 to totalSheets-1 whose
// index_no cell is still blank with a
// flag_reason=index_timeout, called by the orchestrator once the fan-in
// deadline elapses.
func MarkIndexTimeout(ctx context.Context, store *artifact.Store, outputPath string, totalSheets int) error {
	lock := lockForPath(outputPath)
	lock.Lock()
	defer lock.Unlock()

	f, err := openWorkbook(ctx, store, outputPath)
	if err != nil {
		return fmt.Errorf("mark index timeout: open workbook: %w", err)
	}

	changed := false
	for i := 0; i < totalSheets; i++ {
		rowNum := rowForSheet(i)
		indexCell, _ := excelize.CoordinatesToCellName(colIndexNo, rowNum)
		val, _ := f.GetCellValue(resultSheetName, indexCell)
		if val != "" {
			continue
		}
		reasonCell, _ := excelize.CoordinatesToCellName(colFlagReason, rowNum)
		existing, _ := f.GetCellValue(resultSheetName, reasonCell)
		if existing != "" {
			continue
		}
		flagCell, _ := excelize.CoordinatesToCellName(colFlag, rowNum)
		if err := f.SetCellValue(resultSheetName, flagCell, true); err != nil {
			return fmt.Errorf("mark index timeout: set flag: %w", err)
		}
		if err := f.SetCellValue(resultSheetName, reasonCell, "index_timeout"); err != nil {
			return fmt.Errorf("mark index timeout: set flag_reason: %w", err)
		}
		changed = true
	}

	if !changed {
		return nil
	}
	return saveWorkbook(ctx, store, outputPath, f)
}
