package cv

import (
	"image"
	"math"
)

// Blob is a connected foreground region found in a binary mask: the
// package's stand-in for an OpenCV contour. Area and Perimeter are pixel
// counts, not sub-pixel polygon measures, which is adequate for the
// circularity/aspect-ratio gating this package needs.
type Blob struct {
	Points      []image.Point
	BoundingBox image.Rectangle
	Area        int
	Perimeter   int
}

// Center returns the blob's centroid, the moments-based center the
// original computes via cv2.moments.
func (b Blob) Center() Point {
	if len(b.Points) == 0 {
		c := b.BoundingBox
		return Point{X: float64(c.Min.X+c.Max.X) / 2, Y: float64(c.Min.Y+c.Max.Y) / 2}
	}
	var sx, sy float64
	for _, p := range b.Points {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(b.Points))
	return Point{X: sx / n, Y: sy / n}
}

// Circularity approximates 4*pi*area/perimeter^2, the same formula the
// original applies to cv2.contourArea/cv2.arcLength.
func (b Blob) Circularity() float64 {
	if b.Perimeter == 0 {
		return 0
	}
	return 4 * math.Pi * float64(b.Area) / float64(b.Perimeter*b.Perimeter)
}

// AspectRatio is bounding-box width/height, used by the clustering-based
// bubble detection path's aspect gate (0.8 < aspect < 1.25).
func (b Blob) AspectRatio() float64 {
	h := b.BoundingBox.Dy()
	if h == 0 {
		return 0
	}
	return float64(b.BoundingBox.Dx()) / float64(h)
}

// FindBlobs labels 4-connected foreground regions in a binary mask (true
// = foreground) via flood fill, the package's substitute for
// cv2.findContours + cv2.RETR_EXTERNAL. Perimeter is estimated as the
// count of foreground pixels with at least one background or
// out-of-bounds 4-neighbor.
func FindBlobs(mask [][]bool) []Blob {
	if len(mask) == 0 {
		return nil
	}
	height := len(mask)
	width := len(mask[0])
	visited := make([][]bool, height)
	for i := range visited {
		visited[i] = make([]bool, width)
	}

	var blobs []Blob
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			blobs = append(blobs, floodFill(mask, visited, x, y, width, height))
		}
	}
	return blobs
}

func floodFill(mask, visited [][]bool, startX, startY, width, height int) Blob {
	queue := []image.Point{{X: startX, Y: startY}}
	visited[startY][startX] = true

	minX, minY, maxX, maxY := startX, startY, startX, startY
	var points []image.Point
	perimeter := 0

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		points = append(points, p)

		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}

		onBoundary := false
		neighbors := [4]image.Point{
			{X: p.X - 1, Y: p.Y}, {X: p.X + 1, Y: p.Y},
			{X: p.X, Y: p.Y - 1}, {X: p.X, Y: p.Y + 1},
		}
		for _, nb := range neighbors {
			if nb.X < 0 || nb.X >= width || nb.Y < 0 || nb.Y >= height || !mask[nb.Y][nb.X] {
				onBoundary = true
				continue
			}
			if !visited[nb.Y][nb.X] {
				visited[nb.Y][nb.X] = true
				queue = append(queue, nb)
			}
		}
		if onBoundary {
			perimeter++
		}
	}

	return Blob{
		Points:      points,
		BoundingBox: image.Rect(minX, minY, maxX+1, maxY+1),
		Area:        len(points),
		Perimeter:   perimeter,
	}
}

// FilterByCircularity keeps blobs whose circularity falls within
// [lo, hi], mirroring the grid-based gate (>= 0.85) and the
// clustering-based gate ((0.7, 1.2)).
func FilterByCircularity(blobs []Blob, lo, hi float64) []Blob {
	var out []Blob
	for _, b := range blobs {
		c := b.Circularity()
		if c >= lo && c <= hi {
			out = append(out, b)
		}
	}
	return out
}

// FilterByAspectRatio keeps blobs whose bounding-box aspect ratio falls
// within [lo, hi].
func FilterByAspectRatio(blobs []Blob, lo, hi float64) []Blob {
	var out []Blob
	for _, b := range blobs {
		a := b.AspectRatio()
		if a >= lo && a <= hi {
			out = append(out, b)
		}
	}
	return out
}

// FilterByAreaBand drops blobs whose area isn't within [0.5*mean, 1.5*mean]
// of the set, the clustering-based path's area-band filter.
func FilterByAreaBand(blobs []Blob) []Blob {
	if len(blobs) == 0 {
		return blobs
	}
	total := 0
	for _, b := range blobs {
		total += b.Area
	}
	mean := float64(total) / float64(len(blobs))
	lower := mean * 0.5
	upper := mean * 1.5

	var out []Blob
	for _, b := range blobs {
		area := float64(b.Area)
		if area >= lower && area <= upper {
			out = append(out, b)
		}
	}
	return out
}

// FilterByMinArea keeps blobs at or above minArea, the grid_based path's
// `area >= 200` gate.
func FilterByMinArea(blobs []Blob, minArea int) []Blob {
	var out []Blob
	for _, b := range blobs {
		if b.Area >= minArea {
			out = append(out, b)
		}
	}
	return out
}
