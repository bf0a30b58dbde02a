package cv

// BinarizeForMarking prepares a gray image for bubble-fill sampling: a
// fixed threshold of 200 followed by a 5x5 morphological open, the same
// binarize-then-open sequence the marking-config handler runs.
func BinarizeForMarking(gray [][]uint8) [][]bool {
	mask := Threshold(gray, 200)
	return MorphologicalOpen(mask, 2)
}

// ReadMarks projects every bubble center in centers through h onto the
// binarized sheet and samples a 5x5 neighborhood around each, producing
// one Mark per bubble in the same order as centers.
func ReadMarks(binarized [][]bool, centers []Point, h Homography) []Mark {
	marks := make([]Mark, len(centers))
	for i, c := range centers {
		projected := h.Apply(c)
		cx, cy := int(projected.X+0.5), int(projected.Y+0.5)
		lit := SampleNeighborhood(binarized, cx, cy, 2)
		marks[i] = Mark{
			Marked: lit > MarkThreshold,
			X:      projected.X,
			Y:      projected.Y,
		}
	}
	return marks
}

// AlignmentFailed reports whether h should be treated as an alignment
// failure: either the degenerate/identity
// transform, or projections that land far outside the template canvas,
// which a genuinely successful homography for a scanned sheet would not
// produce.
func AlignmentFailed(h Homography, sampleCenters []Point) bool {
	if h.IsDegenerate() {
		return true
	}
	outOfBounds := 0
	for _, c := range sampleCenters {
		p := h.Apply(c)
		if p.X < -TargetWidth*0.2 || p.X > TargetWidth*1.2 || p.Y < -TargetHeight*0.2 || p.Y > TargetHeight*1.2 {
			outOfBounds++
		}
	}
	return len(sampleCenters) > 0 && outOfBounds > len(sampleCenters)/2
}
