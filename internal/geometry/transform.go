// Package geometry maps coordinates from the TAC authoring canvas onto a
// destination page grid.
package geometry

import (
	"fmt"
	"math"
)

// Default transform constants. The TAC canvas is a fixed 1536 px square and a
// destination grid cell is 70 px wide, so a 1536 px canvas spans 21.94 cells.
const (
	DefaultSourceCanvasSize = 1536.0
	DefaultCellPixels       = 70.0
	DefaultPageSize         = 21.94
	// DefaultRadiusRatio converts destination pixels to feet (70 px per 5 ft).
	DefaultRadiusRatio = 14.0
)

// Transform carries the fixed constants of the source canvas and the
// destination grid. The destination page size is NOT part of the value: it
// is read from the live page on every call.
type Transform struct {
	SourceCanvasSize float64
	CellPixels       float64
	RadiusRatio      float64
}

// Point is a destination-space pixel coordinate.
type Point struct {
	X int
	Y int
}

// Default returns the Transform built from the package defaults.
func Default() Transform {
	return Transform{
		SourceCanvasSize: DefaultSourceCanvasSize,
		CellPixels:       DefaultCellPixels,
		RadiusRatio:      DefaultRadiusRatio,
	}
}

// Validate reports whether every constant is strictly positive.
func (t Transform) Validate() error {
	if t.SourceCanvasSize <= 0 {
		return fmt.Errorf("source canvas size must be > 0, got %v", t.SourceCanvasSize)
	}
	if t.CellPixels <= 0 {
		return fmt.Errorf("cell pixels must be > 0, got %v", t.CellPixels)
	}
	if t.RadiusRatio <= 0 {
		return fmt.Errorf("radius ratio must be > 0, got %v", t.RadiusRatio)
	}
	return nil
}

// ToDestination scales one source-canvas value onto a destination axis that
// is gridUnits cells long.
//
// Precondition: t.Validate() == nil.
// Postcondition: result is round-half-up of the scaled value; it is never
// clamped to the page bounds.
func (t Transform) ToDestination(source, gridUnits float64) int {
	return ToDestination(source, t.SourceCanvasSize, t.CellPixels, gridUnits)
}

// Radius scales a source-canvas radius and converts it to page units.
func (t Transform) Radius(source, gridUnits float64) int {
	return Round(scale(source, t.SourceCanvasSize, t.CellPixels, gridUnits) / t.RadiusRatio)
}

// Point transforms a source coordinate pair using the page's live width for
// X and its live height for Y.
func (t Transform) Point(x, y, pageWidth, pageHeight float64) Point {
	return Point{
		X: t.ToDestination(x, pageWidth),
		Y: t.ToDestination(y, pageHeight),
	}
}

// ToDestination computes round((source / canvas) * cellPx * gridUnits).
func ToDestination(source, canvas, cellPx, gridUnits float64) int {
	return Round(scale(source, canvas, cellPx, gridUnits))
}

// Round rounds half-up to the nearest integer, matching the host's rounding
// for negative halves as well (-1.5 rounds to -1).
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func scale(source, canvas, cellPx, gridUnits float64) float64 {
	return (source / canvas) * cellPx * gridUnits
}
