package cv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeans1D_SeparatesThreeColumns(t *testing.T) {
	values := []float64{10, 12, 11, 100, 102, 101, 200, 198, 202}
	labels, centers := KMeans1D(values, 3, 42)
	require.Len(t, labels, len(values))
	require.Len(t, centers, 3)

	// Every point in the first triplet should share a label, and it
	// should differ from the third triplet's label.
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.NotEqual(t, labels[0], labels[6])
}

func TestOrderClustersByCenter(t *testing.T) {
	centers := []float64{200, 10, 100}
	order := OrderClustersByCenter(centers)
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestKMeans1D_KGreaterOrEqualN(t *testing.T) {
	values := []float64{1, 2}
	labels, centers := KMeans1D(values, 2, 1)
	assert.Len(t, labels, 2)
	assert.Len(t, centers, 2)
}
