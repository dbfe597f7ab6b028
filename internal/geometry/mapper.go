// Package geometry maps dimension rectangles between the drawing's native pixel space and a
// scaled display surface.
package geometry

import (
	"fmt"

	"github.com/MykolaKantsir/web/internal/domain"
)

// ComputeScale returns the per-axis ratio of display size to native size. Axes scale
// independently; no aspect-ratio correction is applied.
func ComputeScale(displayWidth, displayHeight, nativeWidth, nativeHeight float64) (float64, float64, error) {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return 0, 0, fmt.Errorf("native size %vx%v: %w", nativeWidth, nativeHeight, domain.ErrInvalidInput)
	}
	if displayWidth < 0 || displayHeight < 0 {
		return 0, 0, fmt.Errorf("display size %vx%v: %w", displayWidth, displayHeight, domain.ErrInvalidInput)
	}
	return displayWidth / nativeWidth, displayHeight / nativeHeight, nil
}

// ToDisplay scales a native rectangle onto the display surface.
func ToDisplay(r domain.Rect, scaleX, scaleY float64) domain.Rect {
	return domain.Rect{
		X:      r.X * scaleX,
		Y:      r.Y * scaleY,
		Width:  r.Width * scaleX,
		Height: r.Height * scaleY,
	}
}

// ToNative is the inverse of ToDisplay. Zero scales yield a zero rectangle.
func ToNative(r domain.Rect, scaleX, scaleY float64) domain.Rect {
	if scaleX == 0 || scaleY == 0 {
		return domain.Rect{}
	}
	return domain.Rect{
		X:      r.X / scaleX,
		Y:      r.Y / scaleY,
		Width:  r.Width / scaleX,
		Height: r.Height / scaleY,
	}
}

// PointToNative converts a display-space click into native drawing coordinates.
func PointToNative(p domain.Point, scaleX, scaleY float64) domain.Point {
	if scaleX == 0 || scaleY == 0 {
		return domain.Point{}
	}
	return domain.Point{X: p.X / scaleX, Y: p.Y / scaleY}
}

// Contains reports whether p lies inside r. Edges count as inside.
func Contains(r domain.Rect, p domain.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Valid reports whether r has a non-negative origin and positive extent.
func Valid(r domain.Rect) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0
}

// HitTest returns the first dimension, in the given order, whose scaled rectangle contains the
// display-space point.
func HitTest(p domain.Point, dims []domain.Dimension, scaleX, scaleY float64) (*domain.Dimension, bool) {
	for i := range dims {
		if Contains(ToDisplay(dims[i].Rect, scaleX, scaleY), p) {
			return &dims[i], true
		}
	}
	return nil, false
}
