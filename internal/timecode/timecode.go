// Package timecode provides pure conversions between timeline seconds,
// absolute timestamps, and pixel space.
//
// All functions are stateless. Inputs are assumed to be finite; a zero zoom
// is prevented upstream by the viewport controller's clamping and is not
// handled here.
package timecode

import (
	"math"
	"time"
)

// TimeToPixel converts a relative time in seconds to a pixel offset at the
// given zoom (pixels per second).
func TimeToPixel(t, zoom float64) float64 {
	return t * zoom
}

// PixelToTime converts a viewport-local pixel x coordinate to a relative time
// in seconds, accounting for horizontal scroll.
func PixelToTime(x, zoom, scrollX float64) float64 {
	return (x + scrollX) / zoom
}

// ToAbsolute resolves a relative offset in seconds against the timeline's
// absolute start time.
func ToAbsolute(relSeconds float64, start time.Time) time.Time {
	return start.Add(time.Duration(relSeconds * float64(time.Second)))
}

// ToRelative projects an absolute timestamp to seconds relative to the
// timeline's start. The result may be negative; callers clamp as needed.
func ToRelative(abs, start time.Time) float64 {
	return abs.Sub(start).Seconds()
}

// Snap rounds a time to the nearest multiple of the snap interval. Callers
// apply it only while grid snapping is enabled. A non-positive interval
// returns the input unchanged.
func Snap(t, interval float64) float64 {
	if interval <= 0 {
		return t
	}
	return math.Round(t/interval) * interval
}
