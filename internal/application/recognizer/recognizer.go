// Package recognizer wraps the handwritten student-index OCR call behind
// a small interface: the recognition model is a black-box service the
// pipeline calls out to over HTTP, not a model the pipeline hosts itself.
package recognizer

import "context"

// Recognizer reads the handwritten digits cropped from a sheet's index
// section and returns the index string plus the model's own confidence
// in [0, 1].
type Recognizer interface {
	Recognize(ctx context.Context, imageBytes []byte) (index string, confidence float64, err error)
}
