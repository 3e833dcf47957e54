package canvas

import (
	"image"
	"math"

	"seehuhn.de/go/geom/rect"
)

// CoverFit returns the rectangle an srcW x srcH image occupies when scaled
// to cover dst: aspect ratio preserved, centred on dst, overflowing on the
// axis where the aspect ratios differ. Degenerate sizes return dst.
func CoverFit(srcW, srcH float64, dst rect.Rect) rect.Rect {
	dw, dh := dst.URx-dst.LLx, dst.URy-dst.LLy
	if srcW <= 0 || srcH <= 0 || dw <= 0 || dh <= 0 {
		return dst
	}

	imageRatio := srcW / srcH
	w, h := dw, dh
	if dw/dh > imageRatio {
		h = w / imageRatio
	} else {
		w = h * imageRatio
	}

	x := dst.LLx + (dw-w)/2
	y := dst.LLy + (dh-h)/2
	return rect.Rect{LLx: x, LLy: y, URx: x + w, URy: y + h}
}

// pixelRect converts r to integer pixel bounds, rounding outwards so that
// a covering rectangle never leaves an uncovered edge.
func pixelRect(r rect.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.LLx)), int(math.Floor(r.LLy)),
		int(math.Ceil(r.URx)), int(math.Ceil(r.URy)),
	)
}
