package cv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func markList(flags ...bool) []Mark {
	out := make([]Mark, len(flags))
	for i, f := range flags {
		out[i] = Mark{Marked: f}
	}
	return out
}

func TestScore_CorrectIncorrectMultiUnmarked(t *testing.T) {
	// 4 questions, 2 options each.
	choiceDist := []int{2, 2, 2, 2}
	colDist := []int{4}

	marking := markList(
		true, false, // Q1 correct choice is option 0
		true, false, // Q2 correct choice is option 0
		true, false, // Q3 correct choice is option 0
		true, false, // Q4 correct choice is option 0
	)
	student := markList(
		true, false, // Q1: matches -> correct
		false, false, // Q2: nothing marked -> unmarked
		true, true, // Q3: both marked -> multi_marked
		false, true, // Q4: wrong option marked -> incorrect
	)

	result := Score(marking, student, choiceDist, colDist)

	assert.Equal(t, []int{1}, result.Correct)
	assert.Equal(t, []int{4}, result.Incorrect)
	assert.Equal(t, []int{3}, result.MultiMarked)
	assert.Equal(t, []int{2}, result.Unmarked)
	assert.Equal(t, 1, result.Score)
	assert.True(t, result.Flag)
}

func TestScore_ColumnTotalsUseDistributionNotHardcodedBins(t *testing.T) {
	// Two columns of 2 questions each (not the original's hard-coded
	// 30-question columns), every question answered correctly.
	choiceDist := []int{2, 2, 2, 2}
	colDist := []int{2, 2}

	marking := markList(true, false, true, false, true, false, true, false)
	student := markList(true, false, true, false, true, false, true, false)

	result := Score(marking, student, choiceDist, colDist)

	assert.Equal(t, 4, result.Score)
	assert.Equal(t, 2, result.ColumnTotals[0])
	assert.Equal(t, 2, result.ColumnTotals[1])
}

func TestScore_NoFlagWhenAllCorrect(t *testing.T) {
	choiceDist := []int{2}
	colDist := []int{1}
	marking := markList(true, false)
	student := markList(true, false)

	result := Score(marking, student, choiceDist, colDist)
	assert.False(t, result.Flag)
	assert.Empty(t, result.FlagReason)
}
