package cv

import (
	"image"
	"image/color"
	"image/draw"
)

// DotColor selects the annotation color for one bubble: green/red/blue/
// yellow dots for correct/incorrect/multi/unmarked.
func DotColor(outcome QuestionOutcome) color.RGBA {
	switch outcome {
	case OutcomeCorrect:
		return color.RGBA{G: 200, A: 255}
	case OutcomeIncorrect:
		return color.RGBA{R: 200, A: 255}
	case OutcomeMultiMarked:
		return color.RGBA{B: 200, A: 255}
	default:
		return color.RGBA{R: 220, G: 200, A: 255}
	}
}

// AnnotateMarks draws a filled dot of the outcome's color at every bubble
// center and returns the annotated image. base is copied, never mutated.
func AnnotateMarks(base image.Image, centers []Point, outcomes []QuestionOutcome, radius int) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, base, bounds.Min, draw.Src)

	for i, c := range centers {
		if i >= len(outcomes) {
			break
		}
		drawDot(out, int(c.X), int(c.Y), radius, DotColor(outcomes[i]))
	}
	return out
}

func drawDot(img *image.RGBA, cx, cy, radius int, col color.RGBA) {
	bounds := img.Bounds()
	for y := cy - radius; y <= cy+radius; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// OutcomesForQuestions expands a ScoreResult back into one QuestionOutcome
// per question index (0-based), for AnnotateMarks to consume.
func OutcomesForQuestions(numQuestions int, result ScoreResult) []QuestionOutcome {
	outcomes := make([]QuestionOutcome, numQuestions)
	for i := range outcomes {
		outcomes[i] = OutcomeIncorrect
	}
	mark := func(list []int, outcome QuestionOutcome) {
		for _, q := range list {
			if q-1 >= 0 && q-1 < numQuestions {
				outcomes[q-1] = outcome
			}
		}
	}
	mark(result.Correct, OutcomeCorrect)
	mark(result.MultiMarked, OutcomeMultiMarked)
	mark(result.Unmarked, OutcomeUnmarked)
	mark(result.Incorrect, OutcomeIncorrect)
	return outcomes
}
