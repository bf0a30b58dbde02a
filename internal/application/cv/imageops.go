package cv

import (
	"image"

	"github.com/disintegration/imaging"
)

// ToGrayMatrix converts img to a grayscale intensity matrix indexed
// [y][x], reusing imaging.Grayscale (already wired for the answer-sheet
// contrast-enhancement step) rather than hand-rolling NTSC luma weights.
func ToGrayMatrix(img image.Image) [][]uint8 {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	out := make([][]uint8, height)
	for y := 0; y < height; y++ {
		out[y] = make([]uint8, width)
		for x := 0; x < width; x++ {
			r, _, _, _ := gray.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[y][x] = uint8(r >> 8)
		}
	}
	return out
}

// Threshold binarizes a gray matrix: true where intensity < cutoff
// (dark/ink pixels), matching the marking-config handler's binarize step
// where ink is darker than the cutoff.
func Threshold(gray [][]uint8, cutoff uint8) [][]bool {
	out := make([][]bool, len(gray))
	for y, row := range gray {
		out[y] = make([]bool, len(row))
		for x, v := range row {
			out[y][x] = v < cutoff
		}
	}
	return out
}

// SobelEdges computes a simple gradient-magnitude edge mask from a gray
// matrix, thresholded at cutoff. This package's substitute for
// cv2.Canny: a single-pass Sobel magnitude test trades Canny's
// hysteresis/non-max-suppression precision for a dependency-free
// implementation, since no pack library exposes Canny directly.
func SobelEdges(gray [][]uint8, cutoff float64) [][]bool {
	height := len(gray)
	if height == 0 {
		return nil
	}
	width := len(gray[0])
	out := make([][]bool, height)
	for y := range out {
		out[y] = make([]bool, width)
	}

	gx := [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	gy := [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			var sx, sy int
			for j := -1; j <= 1; j++ {
				for i := -1; i <= 1; i++ {
					v := int(gray[y+j][x+i])
					sx += v * gx[j+1][i+1]
					sy += v * gy[j+1][i+1]
				}
			}
			mag := isqrt(sx*sx + sy*sy)
			out[y][x] = float64(mag) > cutoff
		}
	}
	return out
}

func isqrt(v int) int {
	if v <= 0 {
		return 0
	}
	x := v
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + v/x) / 2
	}
	return x
}

// SampleNeighborhood counts dark pixels in a (2*radius+1)^2 window around
// (cx, cy) in a binarized mask: the marking-config handler samples a 5x5
// pixel neighborhood (radius=2) and emits 1 when the lit-pixel count
// exceeds MarkThreshold.
func SampleNeighborhood(mask [][]bool, cx, cy, radius int) int {
	count := 0
	height := len(mask)
	for y := cy - radius; y <= cy+radius; y++ {
		if y < 0 || y >= height {
			continue
		}
		row := mask[y]
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || x >= len(row) {
				continue
			}
			if row[x] {
				count++
			}
		}
	}
	return count
}

// MarkThreshold is the lit-pixel-count cutoff for declaring a bubble
// marked.
const MarkThreshold = 15

// MorphologicalOpen applies an erosion pass followed by a dilation pass
// with a square structuring element of the given radius, approximating
// cv2's morphological open (5x5 kernel == radius=2).
func MorphologicalOpen(mask [][]bool, radius int) [][]bool {
	return dilate(erode(mask, radius), radius)
}

func erode(mask [][]bool, radius int) [][]bool {
	height := len(mask)
	if height == 0 {
		return mask
	}
	width := len(mask[0])
	out := make([][]bool, height)
	for y := 0; y < height; y++ {
		out[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			out[y][x] = allSet(mask, x, y, radius, width, height)
		}
	}
	return out
}

func dilate(mask [][]bool, radius int) [][]bool {
	height := len(mask)
	if height == 0 {
		return mask
	}
	width := len(mask[0])
	out := make([][]bool, height)
	for y := 0; y < height; y++ {
		out[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			out[y][x] = anySet(mask, x, y, radius, width, height)
		}
	}
	return out
}

func allSet(mask [][]bool, cx, cy, radius, width, height int) bool {
	for y := cy - radius; y <= cy+radius; y++ {
		if y < 0 || y >= height {
			return false
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || x >= width || !mask[y][x] {
				return false
			}
		}
	}
	return true
}

func anySet(mask [][]bool, cx, cy, radius, width, height int) bool {
	for y := cy - radius; y <= cy+radius; y++ {
		if y < 0 || y >= height {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || x >= width {
				continue
			}
			if mask[y][x] {
				return true
			}
		}
	}
	return false
}
