package game

import (
	"math"
	"math/rand"
)

// Canvas extent in logical units, shared with the client renderer.
const (
	CanvasWidth  = 796.0
	CanvasHeight = 496.0
)

// Minimum target dimensions; the upper bound is 40% of the canvas.
const (
	minRectWidth  = 50.0
	minRectHeight = 30.0
)

// maxDifference normalizes the raw coordinate difference into a score.
const maxDifference = CanvasWidth + CanvasHeight

// Rect is a plain geometric value on the game canvas.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GenerateRect draws a random rectangle positioned fully inside the canvas.
// Each room calls this twice: once for the hidden target and once for the
// player's starting shape.
func GenerateRect() Rect {
	w := minRectWidth + rand.Float64()*(0.4*CanvasWidth-minRectWidth)
	h := minRectHeight + rand.Float64()*(0.4*CanvasHeight-minRectHeight)
	return Rect{
		X:      rand.Float64() * (CanvasWidth - w),
		Y:      rand.Float64() * (CanvasHeight - h),
		Width:  w,
		Height: h,
	}
}

// CalculateScore compares a submitted rectangle against the target and
// returns a similarity score in [0, 100] with two-decimal precision. An
// exact match is pinned to 100 so float rounding can't shave it below.
func CalculateScore(submitted, target Rect) float64 {
	diff := math.Abs(submitted.X-target.X) +
		math.Abs(submitted.Y-target.Y) +
		math.Abs(submitted.Width-target.Width) +
		math.Abs(submitted.Height-target.Height)
	if diff == 0 {
		return 100
	}
	score := 100 - 100*diff/maxDifference
	if score < 0 {
		return 0
	}
	return math.Round(score*100) / 100
}
