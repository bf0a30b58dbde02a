package cv

import (
	"errors"
	"math"
)

// Homography is a 3x3 projective transform, row-major.
type Homography [3][3]float64

// Identity is the no-op homography, used to detect an alignment failure.
var Identity = Homography{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// IsDegenerate reports whether h is nil-equivalent (the zero value) or
// close enough to the identity that the sheet should be treated as an
// alignment failure rather than a trusted transform.
func (h Homography) IsDegenerate() bool {
	if h == (Homography{}) {
		return true
	}
	const eps = 1e-6
	diff := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			diff += math.Abs(h[i][j] - Identity[i][j])
		}
	}
	return diff < eps
}

// Invert returns the inverse of h via the closed-form 3x3 adjugate, used
// by the template-config handler to walk the destination (warped) canvas
// and pull each pixel back from source coordinates rather than forward-
// mapping source pixels and leaving holes in the destination.
func (h Homography) Invert() (Homography, error) {
	a := h
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if math.Abs(det) < 1e-12 {
		return Homography{}, errors.New("cv: homography is singular, cannot invert")
	}
	invDet := 1 / det
	var inv Homography
	inv[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) * invDet
	inv[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * invDet
	inv[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * invDet
	inv[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) * invDet
	inv[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * invDet
	inv[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * invDet
	inv[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) * invDet
	inv[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * invDet
	inv[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * invDet
	return inv, nil
}

// Apply projects point p through h.
func (h Homography) Apply(p Point) Point {
	x := h[0][0]*p.X + h[0][1]*p.Y + h[0][2]
	y := h[1][0]*p.X + h[1][1]*p.Y + h[1][2]
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Point{}
	}
	return Point{X: x / w, Y: y / w}
}

// PointPair is one feature correspondence between the template (or scene)
// and the sheet being aligned.
type PointPair struct {
	From Point
	To   Point
}

// ErrInsufficientMatches is returned when fewer than the minimum good
// matches survive ratio filtering, mirroring the original's
// `min 15 good matches; fail if below` rule.
var ErrInsufficientMatches = errors.New("cv: insufficient good matches for homography")

// MinGoodMatches is the RANSAC-eligibility floor.
const MinGoodMatches = 15

// EstimateHomography computes the homography mapping From -> To for the
// given correspondences: a fixed-iteration RANSAC pass over four-point
// direct-linear-transform samples picks the inlier set, and the final
// transform is refit over those inliers. The correspondence pairs are
// supplied by the caller; this package does no SIFT/FLANN feature matching.
func EstimateHomography(pairs []PointPair) (Homography, error) {
	if len(pairs) < MinGoodMatches {
		return Homography{}, ErrInsufficientMatches
	}

	best := Homography{}
	bestInliers := -1
	const ransacIterations = 200
	const inlierThreshold = 3.0

	rng := newDeterministicRNG(uint64(len(pairs)))
	for iter := 0; iter < ransacIterations; iter++ {
		sample := sampleFour(pairs, rng)
		h, err := directLinearTransform(sample)
		if err != nil {
			continue
		}
		inliers := countInliers(h, pairs, inlierThreshold)
		if inliers > bestInliers {
			bestInliers = inliers
			best = h
		}
	}

	if bestInliers < 4 {
		return Homography{}, ErrInsufficientMatches
	}

	inlierPairs := make([]PointPair, 0, bestInliers)
	for _, pr := range pairs {
		proj := best.Apply(pr.From)
		if math.Hypot(proj.X-pr.To.X, proj.Y-pr.To.Y) <= inlierThreshold {
			inlierPairs = append(inlierPairs, pr)
		}
	}

	refined, err := directLinearTransform(inlierPairs)
	if err != nil {
		return best, nil
	}
	return refined, nil
}

func countInliers(h Homography, pairs []PointPair, threshold float64) int {
	count := 0
	for _, pr := range pairs {
		proj := h.Apply(pr.From)
		dx := proj.X - pr.To.X
		dy := proj.Y - pr.To.Y
		if math.Hypot(dx, dy) <= threshold {
			count++
		}
	}
	return count
}

func sampleFour(pairs []PointPair, rng *deterministicRNG) []PointPair {
	if len(pairs) <= 4 {
		return pairs
	}
	idx := rng.permutation(len(pairs))[:4]
	out := make([]PointPair, 4)
	for i, j := range idx {
		out[i] = pairs[j]
	}
	return out
}

// directLinearTransform solves for H via the DLT algorithm, without
// coordinate normalization: each correspondence contributes two rows to a
// linear system A h = 0, solved by the eigenvector of the 9x9 matrix A^T A
// associated with the smallest eigenvalue (approximated by
// solveHomogeneousLeastSquares).
func directLinearTransform(pairs []PointPair) (Homography, error) {
	if len(pairs) < 4 {
		return Homography{}, errors.New("cv: need at least 4 point pairs for DLT")
	}

	a := make([][]float64, 0, len(pairs)*2)
	for _, pr := range pairs {
		x, y := pr.From.X, pr.From.Y
		u, v := pr.To.X, pr.To.Y
		a = append(a,
			[]float64{-x, -y, -1, 0, 0, 0, x * u, y * u, u},
			[]float64{0, 0, 0, -x, -y, -1, x * v, y * v, v},
		)
	}

	h, err := solveHomogeneousLeastSquares(a)
	if err != nil {
		return Homography{}, err
	}

	return Homography{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}, nil
}

// solveHomogeneousLeastSquares finds the unit vector h minimizing ||A h||
// by building A^T A and taking its smallest-eigenvalue eigenvector from
// inversePowerIteration (power iteration on the trace-shifted matrix
// trace*I - A^T A). This keeps the dependency surface to the standard
// library's math package rather than pulling in a full linear-algebra
// library for a single 9x9 symmetric eigenproblem.
func solveHomogeneousLeastSquares(a [][]float64) ([9]float64, error) {
	n := 9
	ata := make([][]float64, n)
	for i := range ata {
		ata[i] = make([]float64, n)
	}
	for _, row := range a {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}

	v := inversePowerIteration(ata, n)
	var h [9]float64
	copy(h[:], v)
	return h, nil
}

// inversePowerIteration approximates the eigenvector of m with the smallest
// eigenvalue by running power iteration on (traceBound*I - m), which
// inverts the eigenvalue ordering for a positive semi-definite matrix.
func inversePowerIteration(m [][]float64, n int) []float64 {
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += m[i][i]
	}
	shifted := make([][]float64, n)
	for i := range shifted {
		shifted[i] = make([]float64, n)
		for j := range shifted[i] {
			shifted[i][j] = -m[i][j]
		}
		shifted[i][i] += trace
	}

	v := make([]float64, n)
	for i := range v {
		v[i] = 1.0 / math.Sqrt(float64(n))
	}

	for iter := 0; iter < 100; iter++ {
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += shifted[i][j] * v[j]
			}
			next[i] = sum
		}
		norm := 0.0
		for _, x := range next {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			break
		}
		for i := range next {
			next[i] /= norm
		}
		v = next
	}
	return v
}
