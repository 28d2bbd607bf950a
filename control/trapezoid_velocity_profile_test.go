package control

import (
	"testing"

	"go.viam.com/test"
)

func TestTrapezoidProfile(t *testing.T) {
	_, err := NewTrapezoidProfile(0, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewTrapezoidProfile(1, -1)
	test.That(t, err, test.ShouldNotBeNil)

	tp, err := NewTrapezoidProfile(2, 1)
	test.That(t, err, test.ShouldBeNil)

	t.Run("trapezoidal", func(t *testing.T) {
		// 2s accelerating over 2m, 3s cruising over 6m, 2s braking over 2m
		test.That(t, tp.Duration(10), test.ShouldAlmostEqual, 7)
		pos, vel := tp.At(10, 1)
		test.That(t, pos, test.ShouldAlmostEqual, 0.5)
		test.That(t, vel, test.ShouldAlmostEqual, 1)
		pos, vel = tp.At(10, 3.5)
		test.That(t, pos, test.ShouldAlmostEqual, 5)
		test.That(t, vel, test.ShouldAlmostEqual, 2)
		pos, vel = tp.At(10, 6)
		test.That(t, pos, test.ShouldAlmostEqual, 9.5)
		test.That(t, vel, test.ShouldAlmostEqual, 1)
		pos, vel = tp.At(10, 8)
		test.That(t, pos, test.ShouldEqual, 10)
		test.That(t, vel, test.ShouldEqual, 0)
	})

	t.Run("triangular", func(t *testing.T) {
		test.That(t, tp.Duration(1), test.ShouldAlmostEqual, 2)
		pos, vel := tp.At(1, 1)
		test.That(t, pos, test.ShouldAlmostEqual, 0.5)
		test.That(t, vel, test.ShouldAlmostEqual, 1)
	})

	t.Run("time at inverts at", func(t *testing.T) {
		for _, dist := range []float64{1, 10} {
			for _, ts := range []float64{0.25, 1, 1.9, 3, 5, 6.5} {
				if ts > tp.Duration(dist) {
					continue
				}
				pos, _ := tp.At(dist, ts)
				test.That(t, tp.TimeAt(dist, pos), test.ShouldAlmostEqual, ts, 1e-9)
			}
		}
		test.That(t, tp.TimeAt(10, 11), test.ShouldAlmostEqual, 7)
	})

	t.Run("zero distance", func(t *testing.T) {
		test.That(t, tp.Duration(0), test.ShouldEqual, 0)
		pos, vel := tp.At(0, 0.5)
		test.That(t, pos, test.ShouldEqual, 0)
		test.That(t, vel, test.ShouldEqual, 0)
	})
}
