package navigation

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/spatialmath"
)

func mustSelection(t *testing.T, row, column field.GridPosition) field.NodeSelection {
	t.Helper()
	sel, err := field.NewNodeSelection(row, column, field.GamepieceForColumn(column))
	test.That(t, err, test.ShouldBeNil)
	return sel
}

func TestGotoNode(t *testing.T) {
	for _, alliance := range []field.Alliance{field.Blue, field.Red} {
		t.Run(alliance.String(), func(t *testing.T) {
			start := field.ConvertPose(spatialmath.NewPoseFromDegrees(6, 4, 0), field.Blue, alliance)
			h := newHarness(t, start, alliance)
			sel := mustSelection(t, field.Middle, field.Top)
			gn, err := NewGotoNode(sel, h.deps)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, gn.Name(), test.ShouldEqual, "goto_node")

			test.That(t, gn.Start(context.Background()), test.ShouldBeNil)
			knots := gn.Trajectory().Knots()
			test.That(t, len(knots), test.ShouldEqual, 2)

			target := field.ConvertPose(sel.Target(), field.Blue, alliance)
			test.That(t, spatialmath.PoseAlmostEqual(knots[1].Pose, target, 1e-9), test.ShouldBeTrue)

			h.run(t, gn, 2000)
			test.That(t, gn.State(), test.ShouldEqual, StateCompleted)
			test.That(t, h.base.Pose().DistanceTo(target), test.ShouldBeLessThan, 0.05)
			test.That(t, field.InCommunity(h.base.Pose().Point, alliance), test.ShouldBeTrue)
		})
	}
}

func TestGotoNodeSetSelection(t *testing.T) {
	h := newHarness(t, spatialmath.NewPoseFromDegrees(6, 4, 180), field.Blue)
	gn, err := NewGotoNode(mustSelection(t, field.Bottom, field.Bottom), h.deps)
	test.That(t, err, test.ShouldBeNil)

	// same selection does not replan
	test.That(t, gn.Start(context.Background()), test.ShouldBeNil)
	first := gn.Trajectory()
	gn.SetSelection(mustSelection(t, field.Bottom, field.Bottom))
	h.step(t, gn)
	test.That(t, gn.Trajectory(), test.ShouldEqual, first)

	top := mustSelection(t, field.Top, field.Top)
	gn.SetSelection(top)
	test.That(t, gn.Selection(), test.ShouldResemble, top)
	pose := h.base.Pose()
	h.step(t, gn)
	test.That(t, gn.Trajectory(), test.ShouldNotEqual, first)
	test.That(t, gn.Trajectory().Start(), test.ShouldResemble, pose)
	test.That(t, spatialmath.PoseAlmostEqual(gn.Trajectory().End(), top.Target(), 1e-9), test.ShouldBeTrue)

	h.run(t, gn, 2000)
	test.That(t, gn.State(), test.ShouldEqual, StateCompleted)
	test.That(t, h.base.Pose().DistanceTo(top.Target()), test.ShouldBeLessThan, 0.05)
}
