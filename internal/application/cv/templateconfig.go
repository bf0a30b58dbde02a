package cv

import (
	"errors"
	"image"
	"sort"
)

// ConfigType selects which bubble-layout detector the template-config
// handler runs.
type ConfigType string

const (
	ConfigGridBased       ConfigType = "grid_based"
	ConfigClusteringBased ConfigType = "clustering_based"
)

// BubbleConfig is the detected bubble grid for a template: one entry in
// BubbleCenters per (column, row, option), in bubbling order, plus the
// layout parameters needed to replay detection against a different image
// of the same template.
type BubbleConfig struct {
	NumQuestions          int
	OptionsPerQuestion    int
	ColumnRowDistribution []int
	BubbleCenters         []Point
}

var (
	// ErrTooFewAnchors is returned when fewer than four calibration
	// rectangles are found.
	ErrTooFewAnchors = errors.New("cv: fewer than four calibration anchors detected")
)

// DetectAnchors finds the four calibration rectangles on a template scan
// and categorizes them into Corners. Rectangles are found as blobs that
// pass a near-square aspect-ratio gate (0.6 to 1.6) and a minimum area of
// 50 pixels; circularity is not checked. The four largest are kept and
// ordered by OrderCorners.
func DetectAnchors(mask [][]bool) (Corners, error) {
	blobs := FindBlobs(mask)
	blobs = FilterByAspectRatio(blobs, 0.6, 1.6)
	blobs = FilterByMinArea(blobs, 50)

	if len(blobs) < 4 {
		return Corners{}, ErrTooFewAnchors
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Area > blobs[j].Area })
	top4 := blobs[:4]

	points := make([]Point, 4)
	for i, b := range top4 {
		points[i] = b.Center()
	}
	return OrderCorners(points), nil
}

// PerspectiveTransform returns the homography mapping src (the detected
// anchor corners) onto the fixed target rectangle.
func PerspectiveTransform(src Corners) (Homography, error) {
	dst := Corners{
		TopLeft:     Point{X: 0, Y: 0},
		TopRight:    Point{X: TargetWidth - 1, Y: 0},
		BottomLeft:  Point{X: 0, Y: TargetHeight - 1},
		BottomRight: Point{X: TargetWidth - 1, Y: TargetHeight - 1},
	}
	pairs := []PointPair{
		{From: src.TopLeft, To: dst.TopLeft},
		{From: src.TopRight, To: dst.TopRight},
		{From: src.BottomLeft, To: dst.BottomLeft},
		{From: src.BottomRight, To: dst.BottomRight},
	}
	return directLinearTransform(pairs)
}

// DetectGridBubbles implements the grid-based bubble detection path: find
// circular blobs, locate the top-left bubble, sweep its row and column to
// infer spacing, then infer per-column start offsets from gaps greater
// than 1.6x the horizontal spacing.
//
// numQuestions/optionsPerQuestion/columnRowDistribution describe the
// expected layout; the detector uses the inferred spacing to place every
// bubble center rather than relying purely on blob detection finding
// every single bubble (faint ink or scan noise can drop one).
func DetectGridBubbles(mask [][]bool, numQuestions, optionsPerQuestion int, columnRowDistribution []int) (BubbleConfig, error) {
	blobs := FindBlobs(mask)
	blobs = FilterByCircularity(blobs, 0.85, 10)
	blobs = FilterByMinArea(blobs, 200)
	if len(blobs) == 0 {
		return BubbleConfig{}, errors.New("cv: no bubbles detected for grid layout")
	}

	centers := make([]Point, len(blobs))
	for i, b := range blobs {
		centers[i] = b.Center()
	}

	topLeft := centers[0]
	for _, c := range centers {
		if c.Y < topLeft.Y || (c.Y == topLeft.Y && c.X < topLeft.X) {
			topLeft = c
		}
	}

	rowPoints := pointsNear(centers, topLeft.Y, 10, true)
	colPoints := pointsNear(centers, topLeft.X, 10, false)
	xOffset := averageGap(SortPointsByX(rowPoints))
	yOffset := 0.0
	if sortedCol := SortPointsByY(colPoints); len(sortedCol) >= 2 {
		yOffset = (sortedCol[len(sortedCol)-1].Y - sortedCol[0].Y) / float64(len(sortedCol)-1)
	}
	if xOffset == 0 {
		xOffset = 40
	}
	if yOffset == 0 {
		yOffset = 40
	}

	columnStarts := inferColumnStarts(SortPointsByX(rowPoints), xOffset*1.6)

	result := make([]Point, 0, numQuestions*optionsPerQuestion)
	for col, rowsInColumn := range columnRowDistribution {
		startX := columnStarts[col%len(columnStarts)]
		for row := 0; row < rowsInColumn; row++ {
			y := topLeft.Y + float64(row)*yOffset
			for opt := 0; opt < optionsPerQuestion; opt++ {
				x := startX + float64(opt)*xOffset
				result = append(result, Point{X: x, Y: y})
			}
		}
	}

	return BubbleConfig{
		NumQuestions:          numQuestions,
		OptionsPerQuestion:    optionsPerQuestion,
		ColumnRowDistribution: columnRowDistribution,
		BubbleCenters:         result,
	}, nil
}

func pointsNear(points []Point, axis float64, tolerance float64, byY bool) []Point {
	var out []Point
	for _, p := range points {
		v := p.X
		if byY {
			v = p.Y
		}
		if abs64(v-axis) <= tolerance {
			out = append(out, p)
		}
	}
	return out
}

func averageGap(sorted []Point) float64 {
	if len(sorted) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(sorted); i++ {
		total += sorted[i].X - sorted[i-1].X
	}
	return total / float64(len(sorted)-1)
}

func inferColumnStarts(rowSorted []Point, gapThreshold float64) []float64 {
	if len(rowSorted) == 0 {
		return []float64{0}
	}
	starts := []float64{rowSorted[0].X}
	for i := 1; i < len(rowSorted); i++ {
		if rowSorted[i].X-rowSorted[i-1].X > gapThreshold {
			starts = append(starts, rowSorted[i].X)
		}
	}
	return starts
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// DetectClusteringBubbles implements the clustering-based bubble
// detection path: crop below the topmost thick horizontal line, filter
// blobs by circularity and area band, k-means the centers into columns
// on X, then within each column either slice by row (if the column has
// exactly rows*options points) or k-means on Y into rows; finally
// impute/prune each row against a reference X derived from complete
// rows.
func DetectClusteringBubbles(mask [][]bool, numColumns, rowsPerColumn, optionsPerQuestion int, thickLineY int) (BubbleConfig, error) {
	cropped := cropBelow(mask, thickLineY)

	blobs := FindBlobs(cropped)
	blobs = FilterByCircularity(blobs, 0.7, 1.2)
	blobs = FilterByAspectRatio(blobs, 0.8, 1.25)
	blobs = FilterByAreaBand(blobs)
	if len(blobs) == 0 {
		return BubbleConfig{}, errors.New("cv: no bubbles detected for clustering layout")
	}

	centers := make([]Point, len(blobs))
	for i, b := range blobs {
		c := b.Center()
		c.Y += float64(thickLineY)
		centers[i] = c
	}

	xs := make([]float64, len(centers))
	for i, c := range centers {
		xs[i] = c.X
	}
	colLabels, colCenters := KMeans1D(xs, numColumns, 42)
	colOrder := OrderClustersByCenter(colCenters)
	colIndexByLabel := invertOrder(colOrder)

	columns := make([][]Point, numColumns)
	for i, c := range centers {
		col := colIndexByLabel[colLabels[i]]
		columns[col] = append(columns[col], c)
	}

	result := make([]Point, 0, numColumns*rowsPerColumn*optionsPerQuestion)
	for _, colPoints := range columns {
		rows := clusterColumnIntoRows(colPoints, rowsPerColumn, optionsPerQuestion)
		rows = imputeAndPruneRows(rows, optionsPerQuestion)
		for _, row := range rows {
			result = append(result, row...)
		}
	}

	columnRowDistribution := make([]int, numColumns)
	for i := range columnRowDistribution {
		columnRowDistribution[i] = rowsPerColumn
	}

	return BubbleConfig{
		NumQuestions:          numColumns * rowsPerColumn,
		OptionsPerQuestion:    optionsPerQuestion,
		ColumnRowDistribution: columnRowDistribution,
		BubbleCenters:         result,
	}, nil
}

func invertOrder(order []int) []int {
	out := make([]int, len(order))
	for rank, label := range order {
		out[label] = rank
	}
	return out
}

func cropBelow(mask [][]bool, y int) [][]bool {
	if y < 0 || y >= len(mask) {
		return mask
	}
	return mask[y:]
}

// clusterColumnIntoRows slices a column's points into rowsPerColumn rows
// of optionsPerQuestion bubbles each: a direct sort-then-slice if the
// count matches exactly, otherwise a Y-axis k-means fallback.
func clusterColumnIntoRows(points []Point, rowsPerColumn, optionsPerQuestion int) [][]Point {
	rows := make([][]Point, rowsPerColumn)

	if len(points) == rowsPerColumn*optionsPerQuestion {
		sorted := SortPointsByY(points)
		for r := 0; r < rowsPerColumn; r++ {
			row := sorted[r*optionsPerQuestion : (r+1)*optionsPerQuestion]
			rows[r] = SortPointsByX(row)
		}
		return rows
	}

	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Y
	}
	labels, centers := KMeans1D(ys, rowsPerColumn, 7)
	order := OrderClustersByCenter(centers)
	indexByLabel := invertOrder(order)

	clustered := make([][]Point, rowsPerColumn)
	for i, p := range points {
		r := indexByLabel[labels[i]]
		clustered[r] = append(clustered[r], p)
	}
	for r := range clustered {
		rows[r] = SortPointsByX(clustered[r])
	}
	return rows
}

// imputeAndPruneRows fixes rows with the wrong bubble count by borrowing
// a reference X position per option index from complete rows, imputing a
// missing bubble at that X (with the row's average Y) or pruning the
// extra bubble farthest from it.
func imputeAndPruneRows(rows [][]Point, optionsPerQuestion int) [][]Point {
	const tolerance = 10.0

	referenceX := make([]float64, optionsPerQuestion)
	counts := make([]int, optionsPerQuestion)
	for _, row := range rows {
		if len(row) != optionsPerQuestion {
			continue
		}
		for i, p := range row {
			referenceX[i] += p.X
			counts[i]++
		}
	}
	haveReference := true
	for i := range referenceX {
		if counts[i] == 0 {
			haveReference = false
			break
		}
		referenceX[i] /= float64(counts[i])
	}
	if !haveReference {
		return rows
	}

	fixed := make([][]Point, len(rows))
	for r, row := range rows {
		switch {
		case len(row) == optionsPerQuestion:
			fixed[r] = row
		case len(row) < optionsPerQuestion:
			fixed[r] = imputeRow(row, referenceX, tolerance)
		default:
			fixed[r] = pruneRow(row, referenceX, tolerance)
		}
	}
	return fixed
}

func imputeRow(row []Point, referenceX []float64, tolerance float64) []Point {
	avgY := 0.0
	for _, p := range row {
		avgY += p.Y
	}
	if len(row) > 0 {
		avgY /= float64(len(row))
	}

	out := append([]Point{}, row...)
	for _, refX := range referenceX {
		found := false
		for _, p := range row {
			if abs64(p.X-refX) <= tolerance {
				found = true
				break
			}
		}
		if !found {
			out = append(out, Point{X: refX, Y: avgY})
		}
	}
	return SortPointsByX(out)
}

func pruneRow(row []Point, referenceX []float64, tolerance float64) []Point {
	var out []Point
	for _, refX := range referenceX {
		var best *Point
		bestDist := tolerance
		for i := range row {
			d := abs64(row[i].X - refX)
			if d <= tolerance && d <= bestDist {
				bestDist = d
				p := row[i]
				best = &p
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return SortPointsByX(out)
}

// DetectThickLineY finds the y-coordinate just below the first
// sufficiently thick, wide horizontal line in the image. Returns -1 if none
// is found, in which case the caller should process the whole image.
func DetectThickLineY(mask [][]bool, imageWidth int) int {
	blobs := FindBlobs(mask)
	for _, b := range blobs {
		w, h := b.BoundingBox.Dx(), b.BoundingBox.Dy()
		if h < 3 || w < imageWidth/2 {
			continue
		}
		aspect := float64(w) / float64(h)
		if aspect > 3 {
			return b.BoundingBox.Max.Y
		}
	}
	return -1
}

// WarpTarget is the fixed rectangle every template is warped into.
var WarpTarget = image.Rect(0, 0, TargetWidth, TargetHeight)
