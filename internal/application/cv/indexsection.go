package cv

import (
	"errors"
	"image"
)

// DetectIndexSection locates the handwritten student-index box on a
// scanned answer sheet by descending an outer -> child -> grandchild
// contour nesting: the largest foreground region on the sheet (its
// printed border), the largest background hole inside that border (the
// box's interior), and the largest foreground region inside that hole
// (the index digits themselves, or the ruled cell grid around them).
// FindBlobs has no notion of a contour hierarchy, so the nesting is
// reconstructed here by alternating it over the mask and its inverse,
// each time restricted to the previous level's bounding box. When a level
// has no region, the bounding box of the deepest level found so far is
// returned; only a mask with no foreground at all is an error.
//
// Unlike the original's cv2.minAreaRect + perspective warp, this returns
// an axis-aligned bounding box: the index section on a properly aligned
// scan is never meaningfully rotated once the sheet itself has already
// been through SobelEdges/anchor alignment upstream, so a straight crop
// is sufficient.
func DetectIndexSection(mask [][]bool) (image.Rectangle, error) {
	outer := largestBlob(FindBlobs(mask))
	if outer == nil {
		return image.Rectangle{}, errors.New("cv: no outer contour found for index section")
	}

	hole := largestBlob(FindBlobs(invertWithin(mask, outer.BoundingBox)))
	if hole == nil {
		return outer.BoundingBox, nil
	}

	grandchildren := FindBlobs(cropMask(mask, hole.BoundingBox))
	target := largestBlob(grandchildren)
	if target == nil {
		return hole.BoundingBox, nil
	}

	box := target.BoundingBox.Add(hole.BoundingBox.Min)
	return box, nil
}

func largestBlob(blobs []Blob) *Blob {
	if len(blobs) == 0 {
		return nil
	}
	best := &blobs[0]
	for i := 1; i < len(blobs); i++ {
		if blobs[i].Area > best.Area {
			best = &blobs[i]
		}
	}
	return best
}

// invertWithin returns a full-size mask that is the logical negation of
// mask inside bbox and false everywhere outside it, so FindBlobs only
// ever discovers background holes belonging to that one region.
func invertWithin(mask [][]bool, bbox image.Rectangle) [][]bool {
	height := len(mask)
	out := make([][]bool, height)
	for y := 0; y < height; y++ {
		out[y] = make([]bool, len(mask[y]))
		if y < bbox.Min.Y || y >= bbox.Max.Y {
			continue
		}
		for x := bbox.Min.X; x < bbox.Max.X && x < len(mask[y]); x++ {
			out[y][x] = !mask[y][x]
		}
	}
	return out
}

// cropMask returns a new mask the size of bbox, values copied from mask.
func cropMask(mask [][]bool, bbox image.Rectangle) [][]bool {
	out := make([][]bool, bbox.Dy())
	for y := 0; y < bbox.Dy(); y++ {
		out[y] = make([]bool, bbox.Dx())
		sy := bbox.Min.Y + y
		if sy < 0 || sy >= len(mask) {
			continue
		}
		for x := 0; x < bbox.Dx(); x++ {
			sx := bbox.Min.X + x
			if sx < 0 || sx >= len(mask[sy]) {
				continue
			}
			out[y][x] = mask[sy][sx]
		}
	}
	return out
}
