package crop

import "math"

// Portrait crop ratio, slightly wider than a strict 9:16.
const (
	ratioNum = 10
	ratioDen = 16
)

// Window is a crop rectangle: full-height band offset horizontally.
// The vertical offset is always 0.
type Window struct {
	Width  int
	Height int
	X      int
}

// PortraitSize returns the portrait crop dimensions for a source frame.
// Height is the largest even value fitting the frame; width follows the
// 10/16 ratio, rounded to even and clamped to the frame width.
func PortraitSize(width, height int) (cropW, cropH int) {
	cropH = evenDown(height)
	cropW = int(math.Round(float64(cropH) * ratioNum / ratioDen))
	if cropW%2 != 0 {
		cropW++
	}
	if cropW > width {
		cropW = evenDown(width)
	}
	return cropW, cropH
}

// ClampX converts a subject center into a left offset kept inside the frame.
func ClampX(centerX float64, cropW, width int) int {
	x := int(math.Floor(centerX - float64(cropW)/2))
	if x < 0 {
		x = 0
	}
	if max := width - cropW; x > max {
		x = max
	}
	return x
}

func evenDown(v int) int { return v &^ 1 }
