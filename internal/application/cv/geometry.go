// Package cv holds the pure, typed-input/typed-output computer-vision
// functions the worker and index recognizer call into: anchor detection,
// bubble-grid inference, homography estimation, and scoring. None of these
// touch the broker, the repository, or the artifact store directly; callers
// pass in image bytes or point sets and get back plain structs.
package cv

import "sort"

// Point is a pixel coordinate.
type Point struct {
	X float64
	Y float64
}

// Mark is one bubble observation: its image position and whether it was
// read as filled in.
type Mark struct {
	Marked bool
	X      float64
	Y      float64
}

// Corners holds the four calibration-anchor or contour corners, already
// categorized by position.
type Corners struct {
	TopLeft     Point
	TopRight    Point
	BottomLeft  Point
	BottomRight Point
}

// Slice returns c's four points in TL, TR, BL, BR order, useful wherever a
// caller needs a plain slice to sanity-check a fitted homography against
// the same points it was estimated from.
func (c Corners) Slice() []Point {
	return []Point{c.TopLeft, c.TopRight, c.BottomLeft, c.BottomRight}
}

// OrderCorners categorizes four unordered points into TL/TR/BL/BR using a
// sum/diff heuristic: the point with the smallest x+y is top-left, the
// largest x+y is bottom-right, the smallest y-x is top-right, the largest
// y-x is bottom-left. Used for the template's four calibration rectangles.
func OrderCorners(points []Point) Corners {
	sums := make([]float64, len(points))
	diffs := make([]float64, len(points))
	for i, p := range points {
		sums[i] = p.X + p.Y
		diffs[i] = p.Y - p.X
	}

	minSumIdx, maxSumIdx := argMin(sums), argMax(sums)
	minDiffIdx, maxDiffIdx := argMin(diffs), argMax(diffs)

	return Corners{
		TopLeft:     points[minSumIdx],
		BottomRight: points[maxSumIdx],
		TopRight:    points[minDiffIdx],
		BottomLeft:  points[maxDiffIdx],
	}
}

func argMin(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v < xs[best] {
			best = i
		}
	}
	return best
}

func argMax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

// SortPointsByX returns a copy of points sorted ascending by X.
func SortPointsByX(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// SortPointsByY returns a copy of points sorted ascending by Y.
func SortPointsByY(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// TargetWidth and TargetHeight are the fixed perspective-warp target used
// for every template.
const (
	TargetWidth  = 1200
	TargetHeight = 1600
)
