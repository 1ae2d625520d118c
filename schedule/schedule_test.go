package schedule

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/calib/memstore"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/movetable"
)

// Scenario 1 (spec §8): single positioner, direct move, anticollision off.
func TestScheduleMovesDirectSinglePositioner(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0)
	test.That(t, store.Put(cal), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	current := map[string]kinematics.TP{"A": {T: 0, P: 180}}
	sched := NewSchedule(DefaultConfig(), inputs, testMotors("A"), current)

	_, err := sched.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 45, V: 120})
	test.That(t, err, test.ShouldBeNil)

	tables, diagnostics := sched.ScheduleMoves(ModeNone)
	test.That(t, len(diagnostics), test.ShouldEqual, 0)
	table, ok := tables["A"]
	test.That(t, ok, test.ShouldBeTrue)

	final := table.FinalTP(current["A"])
	test.That(t, final.T, test.ShouldAlmostEqual, 45.0, 1e-9)
	test.That(t, final.P, test.ShouldAlmostEqual, 120.0, 1e-9)
}

// Scenario 3 (spec §8): unreachable target is rejected at admission and the
// schedule proceeds with the remaining (empty) set; no table is emitted.
func TestScheduleMovesSkipsUnreachableRejection(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0) // r1=r2=3, annulus [0,6]
	test.That(t, store.Put(cal), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	current := map[string]kinematics.TP{"A": {T: 0, P: 0}}
	sched := NewSchedule(DefaultConfig(), inputs, testMotors("A"), current)

	_, err := sched.RequestTarget(Request{PosID: "A", Command: CmdPosXY, U: 100, V: 0})
	test.That(t, err, test.ShouldNotBeNil)

	tables, diagnostics := sched.ScheduleMoves(ModeNone)
	test.That(t, len(diagnostics), test.ShouldEqual, 0)
	_, ok := tables["A"]
	test.That(t, ok, test.ShouldBeFalse)
}

// Scenario 2 (spec §8): two neighbors whose target phis would interpenetrate.
// With ModeForcedRecursive, final non-collision is guaranteed.
func TestScheduleMovesForcedRecursiveResolvesOpposingExtension(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)
	test.That(t, store.Put(testCal("B", 4, 0)), test.ShouldBeNil)

	graph := &collision.NeighborGraph{
		PosNeighbors: map[string][]string{"A": {"B"}, "B": {"A"}},
	}
	geo := map[string]collision.Geometry{
		"A": {KeepoutT: squareKeepout(1), KeepoutP: squareKeepout(1)},
		"B": {KeepoutT: squareKeepout(1), KeepoutP: squareKeepout(1)},
	}
	inputs := testInputs(store, graph, geo, nil)
	current := map[string]kinematics.TP{"A": {T: 0, P: 0}, "B": {T: 0, P: 0}}
	cfg := DefaultConfig()
	cfg.SafePhiDeg = 0 // retract and extend move nothing; B's theta rotation happens in the rotate stage
	sched := NewSchedule(cfg, inputs, testMotors("A", "B"), current)

	_, err := sched.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 0, V: 0})
	test.That(t, err, test.ShouldBeNil)
	_, err = sched.RequestTarget(Request{PosID: "B", Command: CmdPosIntTP, U: 180, V: 0})
	test.That(t, err, test.ShouldBeNil)

	tables, diagnostics := sched.ScheduleMoves(ModeForcedRecursive)
	test.That(t, len(diagnostics), test.ShouldEqual, 0)
	test.That(t, len(tables), test.ShouldEqual, 2)

	// Non-collision invariant: re-run the spatial check at every sample of
	// the merged tables starting from the original current positions.
	startA, startB := current["A"], current["B"]
	stepSec := cfg.TimestepSec
	totalA, totalB := tables["A"].TotalTime(), tables["B"].TotalTime()
	horizon := totalA
	if totalB > horizon {
		horizon = totalB
	}
	for tSec := 0.0; tSec <= horizon; tSec += stepSec {
		tpA := tables["A"].PositionAt(startA, tSec)
		tpB := tables["B"].PositionAt(startB, tSec)
		placementA := collision.Place(testCal("A", 0, 0), geo["A"], tpA)
		placementB := collision.Place(testCal("B", 4, 0), geo["B"], tpB)
		_, collided := collision.SpatialCheck(placementA, placementB)
		test.That(t, collided, test.ShouldBeFalse)
	}
}

// add_table bypasses anti-collision for the whole schedule, even when other
// positioners were admitted normally.
func TestScheduleMovesAddTableDisablesAnticollisionSchedulewide(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0)
	test.That(t, store.Put(cal), test.ShouldBeNil)
	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	current := map[string]kinematics.TP{"A": {T: 0, P: 0}}
	sched := NewSchedule(DefaultConfig(), inputs, testMotors("A"), current)

	raw := movetable.New("A", cal, movetable.DefaultMotorParams())
	test.That(t, raw.InsertRow(0), test.ShouldBeNil)
	test.That(t, raw.SetMove(0, movetable.AxisT, 10), test.ShouldBeNil)
	sched.AddTable("A", raw, current["A"])

	tables, diagnostics := sched.ScheduleMoves(ModeForcedRecursive)
	test.That(t, len(diagnostics), test.ShouldEqual, 0)
	test.That(t, tables["A"].Rows[0].DeltaT, test.ShouldEqual, 10.0)
}
