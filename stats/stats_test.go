package stats

import (
	"testing"

	"go.viam.com/test"
)

func TestCountersSnapshotReflectsRecordedEvents(t *testing.T) {
	c := NewCounters()
	c.CollisionFound("II")
	c.CollisionFound("II")
	c.CollisionFound("GFA")
	c.TacticAttempted("pause")
	c.TacticAccepted("pause")
	c.PositionerFrozen()
	c.UnsolvableCollision()

	snap := c.Snapshot()
	test.That(t, snap.CollisionsFound["II"], test.ShouldEqual, 2)
	test.That(t, snap.CollisionsFound["GFA"], test.ShouldEqual, 1)
	test.That(t, snap.TacticsAttempted["pause"], test.ShouldEqual, 1)
	test.That(t, snap.TacticsAccepted["pause"], test.ShouldEqual, 1)
	test.That(t, snap.PositionersFrozen, test.ShouldEqual, 1)
	test.That(t, snap.UnsolvedCollisions, test.ShouldEqual, 1)
}

func TestNoopRecorderNeverPanics(t *testing.T) {
	Noop.CollisionFound("II")
	Noop.TacticAttempted("pause")
	Noop.TacticAccepted("pause")
	Noop.PositionerFrozen()
	Noop.UnsolvableCollision()
	test.That(t, Noop.Snapshot(), test.ShouldResemble, Stats{})
}
