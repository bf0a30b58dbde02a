package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/cv"
)

// warpImage resamples src into a width x height canvas through h. h is
// expected to map source coordinates to destination coordinates (the same
// convention cv.PerspectiveTransform and cv.EstimateHomography use), so
// warpImage inverts it and walks the destination grid, pulling each pixel
// back from source space. Out-of-bounds samples are filled white, matching
// the blank margin a real scanned sheet has outside its printed area.
func warpImage(src image.Image, h cv.Homography, width, height int) (image.Image, error) {
	inv, err := h.Invert()
	if err != nil {
		return nil, fmt.Errorf("warp image: %w", err)
	}

	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sp := inv.Apply(cv.Point{X: float64(x), Y: float64(y)})
			sx, sy := int(sp.X+0.5), int(sp.Y+0.5)
			if sx < bounds.Min.X || sx >= bounds.Max.X || sy < bounds.Min.Y || sy >= bounds.Max.Y {
				out.Set(x, y, color.White)
				continue
			}
			out.Set(x, y, src.At(sx, sy))
		}
	}
	return out, nil
}

// cropImage returns the sub-image of src within box as a standalone RGBA
// image, since image.Image's SubImage (where available) still shares the
// parent's backing array and most decoders don't implement it at all.
func cropImage(src image.Image, box image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			out.Set(x, y, src.At(box.Min.X+x, box.Min.Y+y))
		}
	}
	return out
}

func loadImageFromStore(ctx context.Context, store *artifact.Store, relPath string) (image.Image, error) {
	rc, err := store.Get(ctx, relPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	return img, err
}

func saveJPEGToStore(ctx context.Context, store *artifact.Store, relPath string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", err
	}
	_, _, err := store.Save(ctx, relPath, bytes.NewReader(buf.Bytes()))
	return relPath, err
}

func saveJSONToStore(ctx context.Context, store *artifact.Store, relPath string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = store.Save(ctx, relPath, bytes.NewReader(raw))
	return err
}

func loadJSONFromStore(ctx context.Context, store *artifact.Store, relPath string, v any) error {
	rc, err := store.Get(ctx, relPath)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

// sheetHomography bundles the forward (sheet image -> warped target) and
// inverse (target -> sheet image) transforms detected off one scanned
// sheet, plus the anchor corners used to fit it (for AlignmentFailed's
// sanity check), so callers never have to re-derive the inverse.
type sheetHomography struct {
	sheetToTarget cv.Homography
	targetToSheet cv.Homography
	corners       []cv.Point
}

// homographyFromAnchors detects the four calibration anchors on img and
// fits the homography mapping its pixel space onto the fixed template
// target rectangle, the same anchor-detection path
// the template-config handler runs, reused here for every other image
// (marking scheme, answer sheet) that needs to be located against the
// template's known bubble layout.
func homographyFromAnchors(img image.Image) (sheetHomography, error) {
	gray := cv.ToGrayMatrix(img)
	edgeMask := cv.SobelEdges(gray, 60)

	corners, err := cv.DetectAnchors(edgeMask)
	if err != nil {
		return sheetHomography{}, fmt.Errorf("detect anchors: %w", err)
	}

	sheetToTarget, err := cv.PerspectiveTransform(corners)
	if err != nil {
		return sheetHomography{}, fmt.Errorf("perspective transform: %w", err)
	}
	targetToSheet, err := sheetToTarget.Invert()
	if err != nil {
		return sheetHomography{}, fmt.Errorf("invert homography: %w", err)
	}

	return sheetHomography{
		sheetToTarget: sheetToTarget,
		targetToSheet: targetToSheet,
		corners:       corners.Slice(),
	}, nil
}
