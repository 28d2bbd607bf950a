package spatialmath

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestRectangle(t *testing.T) {
	_, err := NewRectangle(2, 0, 1, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewRectangle(0, 2, 1, 1)
	test.That(t, err, test.ShouldNotBeNil)

	rect, err := NewRectangle(0, 1.51, 2.91, 3.98)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rect.Min(), test.ShouldResemble, r2.Point{X: 0, Y: 1.51})
	test.That(t, rect.Max(), test.ShouldResemble, r2.Point{X: 2.91, Y: 3.98})

	t.Run("inside", func(t *testing.T) {
		test.That(t, rect.Contains(r2.Point{X: 1, Y: 2}), test.ShouldBeTrue)
		test.That(t, rect.Contains(rect.Center()), test.ShouldBeTrue)
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		test.That(t, rect.Contains(r2.Point{X: 0, Y: 1.51}), test.ShouldBeTrue)
		test.That(t, rect.Contains(r2.Point{X: 2.91, Y: 3.98}), test.ShouldBeTrue)
		test.That(t, rect.Contains(r2.Point{X: 2.91, Y: 2}), test.ShouldBeTrue)
	})

	t.Run("outside", func(t *testing.T) {
		test.That(t, rect.Contains(r2.Point{X: -0.01, Y: 2}), test.ShouldBeFalse)
		test.That(t, rect.Contains(r2.Point{X: 1, Y: 3.99}), test.ShouldBeFalse)
	})

	t.Run("degenerate", func(t *testing.T) {
		pt := MustRectangle(1, 1, 1, 1)
		test.That(t, pt.Contains(r2.Point{X: 1, Y: 1}), test.ShouldBeTrue)
	})

	test.That(t, func() { MustRectangle(1, 1, 0, 0) }, test.ShouldPanic)
}
