// SPDX-License-Identifier: MIT

package engine

import "math"

// Resolution is an output capture resolution in pixels.
type Resolution struct {
	Width  int
	Height int
}

type standardResolution struct {
	res   Resolution
	ratio float64
}

// standardResolutions is the fixed table of standard aspect ratios the
// engine picks an output resolution from when the user hasn't specified
// one explicitly. Order matters: ties break to the first-listed entry
// (4:3).
var standardResolutions = []standardResolution{
	{Resolution{1600, 1200}, 4.0 / 3.0},
	{Resolution{1280, 1024}, 5.0 / 4.0},
	{Resolution{1920, 1080}, 16.0 / 9.0},
	{Resolution{1920, 1200}, 16.0 / 10.0},
	{Resolution{2560, 1080}, 21.0 / 9.0},
	{Resolution{2580, 1080}, 43.0 / 18.0},
	{Resolution{3840, 1600}, 24.0 / 10.0},
	{Resolution{3840, 1080}, 32.0 / 9.0},
	{Resolution{3840, 1200}, 32.0 / 10.0},
}

// ClosestResolution returns the standard resolution whose aspect ratio
// is nearest to width/height, breaking ties toward the first-listed
// entry (spec.md §4.4's P8 resolution-selection property).
func ClosestResolution(width, height int) Resolution {
	aspect := float64(width) / float64(height)

	best := standardResolutions[0]
	bestDelta := math.Abs(best.ratio - aspect)
	for _, candidate := range standardResolutions[1:] {
		delta := math.Abs(candidate.ratio - aspect)
		if delta < bestDelta {
			best = candidate
			bestDelta = delta
		}
	}
	return best.res
}
