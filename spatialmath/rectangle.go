package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Rectangle is an immutable axis-aligned region of the field.
type Rectangle struct {
	rect r2.Rect
}

// NewRectangle returns the rectangle spanning [xMin, xMax] x [yMin, yMax].
func NewRectangle(xMin, yMin, xMax, yMax float64) (Rectangle, error) {
	if xMin > xMax || yMin > yMax {
		return Rectangle{}, errors.Errorf(
			"rectangle min (%.3f, %.3f) must not exceed max (%.3f, %.3f)", xMin, yMin, xMax, yMax)
	}
	return Rectangle{rect: r2.Rect{
		X: r1.Interval{Lo: xMin, Hi: xMax},
		Y: r1.Interval{Lo: yMin, Hi: yMax},
	}}, nil
}

// MustRectangle is NewRectangle for compiled-in constants; it panics on inverted bounds.
func MustRectangle(xMin, yMin, xMax, yMax float64) Rectangle {
	rect, err := NewRectangle(xMin, yMin, xMax, yMax)
	if err != nil {
		panic(err)
	}
	return rect
}

// Contains reports whether pt lies inside the rectangle, boundary included.
func (r Rectangle) Contains(pt r2.Point) bool {
	return r.rect.ContainsPoint(pt)
}

// Min returns the lower left corner.
func (r Rectangle) Min() r2.Point { return r.rect.Lo() }

// Max returns the upper right corner.
func (r Rectangle) Max() r2.Point { return r.rect.Hi() }

// Center returns the center of the rectangle.
func (r Rectangle) Center() r2.Point { return r.rect.Center() }

func (r Rectangle) String() string {
	return fmt.Sprintf("[(%.2f, %.2f), (%.2f, %.2f)]", r.rect.X.Lo, r.rect.Y.Lo, r.rect.X.Hi, r.rect.Y.Hi)
}
