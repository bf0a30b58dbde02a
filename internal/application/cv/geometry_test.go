package cv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderCorners(t *testing.T) {
	points := []Point{
		{X: 100, Y: 0},  // top-right
		{X: 0, Y: 0},    // top-left
		{X: 100, Y: 100}, // bottom-right
		{X: 0, Y: 100},  // bottom-left
	}
	corners := OrderCorners(points)
	assert.Equal(t, Point{X: 0, Y: 0}, corners.TopLeft)
	assert.Equal(t, Point{X: 100, Y: 0}, corners.TopRight)
	assert.Equal(t, Point{X: 0, Y: 100}, corners.BottomLeft)
	assert.Equal(t, Point{X: 100, Y: 100}, corners.BottomRight)
}

func TestHomography_IdentityIsDegenerate(t *testing.T) {
	assert.True(t, Identity.IsDegenerate())
}

func TestHomography_ApplyIdentityIsNoOp(t *testing.T) {
	p := Identity.Apply(Point{X: 12, Y: 34})
	assert.Equal(t, Point{X: 12, Y: 34}, p)
}

func TestEstimateHomography_InsufficientMatches(t *testing.T) {
	pairs := []PointPair{
		{From: Point{X: 0, Y: 0}, To: Point{X: 0, Y: 0}},
		{From: Point{X: 1, Y: 0}, To: Point{X: 1, Y: 0}},
	}
	_, err := EstimateHomography(pairs)
	assert.ErrorIs(t, err, ErrInsufficientMatches)
}
