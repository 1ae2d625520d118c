package schedule

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/calib/memstore"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/movetable"
)

func TestRangeLimitedJogClampsAtBoundary(t *testing.T) {
	r := calib.Range{Min: -180, Max: 180}

	// Unclamped: plenty of room in either direction.
	test.That(t, rangeLimitedJog(10, 1, 0, r), test.ShouldEqual, 10.0)
	test.That(t, rangeLimitedJog(10, -1, 0, r), test.ShouldEqual, -10.0)

	// Clamped at the max boundary.
	test.That(t, rangeLimitedJog(10, 1, 175, r), test.ShouldEqual, 5.0)
	// Clamped at the min boundary.
	test.That(t, rangeLimitedJog(10, -1, -175, r), test.ShouldEqual, -5.0)
	// Already at the boundary: zero-length jog.
	test.That(t, rangeLimitedJog(10, 1, 180, r), test.ShouldEqual, 0.0)
}

func TestJogDurationMatchesCruiseFormula(t *testing.T) {
	// DefaultMotorParams: spinupdown_t=0.05s, cruise_speed_t=30 deg/s.
	got := jogDuration(movetable.AxisT, 9)
	test.That(t, got, test.ShouldAlmostEqual, 0.05+9.0/30.0, 1e-9)

	gotP := jogDuration(movetable.AxisP, -6)
	test.That(t, gotP, test.ShouldAlmostEqual, 0.05+6.0/30.0, 1e-9)
}

func TestTacticNameHelpers(t *testing.T) {
	test.That(t, isLargeJog("retract_A"), test.ShouldBeFalse)
	test.That(t, isLargeJog("retract_B"), test.ShouldBeTrue)

	test.That(t, isThetaJog("rot_ccw_A"), test.ShouldBeTrue)
	test.That(t, isThetaJog("repel_cw_B"), test.ShouldBeTrue)
	test.That(t, isThetaJog("extend_A"), test.ShouldBeFalse)
	test.That(t, isThetaJog("retract_B"), test.ShouldBeFalse)

	test.That(t, isRepel("repel_ccw_A"), test.ShouldBeTrue)
	test.That(t, isRepel("rot_ccw_A"), test.ShouldBeFalse)

	test.That(t, jogDirection("retract_A"), test.ShouldEqual, 1.0)
	test.That(t, jogDirection("extend_A"), test.ShouldEqual, -1.0)
	test.That(t, jogDirection("rot_ccw_A"), test.ShouldEqual, 1.0)
	test.That(t, jogDirection("rot_cw_A"), test.ShouldEqual, -1.0)
}

func oneRowTable(t *testing.T, posid string, cal calib.Calibration, deltaT float64) *movetable.Table {
	table := movetable.New(posid, cal, movetable.DefaultMotorParams())
	test.That(t, table.InsertRow(0), test.ShouldBeNil)
	test.That(t, table.SetMove(0, movetable.AxisT, deltaT), test.ShouldBeNil)
	return table
}

func TestProposeFreezeTruncatesRowsPastCollision(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0)
	test.That(t, store.Put(cal), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	stage := NewStage("direct", DefaultConfig(), inputs, testMotors("A"), nil)

	table := movetable.New("A", cal, movetable.DefaultMotorParams())
	for i := 0; i < 3; i++ {
		test.That(t, table.InsertRow(i), test.ShouldBeNil)
		test.That(t, table.SetMove(i, movetable.AxisT, 6), test.ShouldBeNil)
	}
	// Each row takes 0.05+6/30=0.25s; cumulative times are 0.25, 0.5, 0.75.
	stage.Tables["A"] = table
	stage.StartPosInt["A"] = kinematics.TP{}

	sweep := collision.Sweep{PosID: "A", CollisionIndex: 5, CollisionTimeSec: 0.6, Case: collision.CasePhiPhi, NeighborID: "B"}
	proposed, err := stage.proposeFreeze("A", table, sweep)
	test.That(t, err, test.ShouldBeNil)

	clone := proposed["A"]
	test.That(t, clone, test.ShouldNotBeNil)
	// collisionTime = 0.6 - 0.02 (default timestep) = 0.58; the row whose
	// cumulative time (0.75) is >= 0.58 is dropped, the row at 0.5 survives.
	test.That(t, len(clone.Rows), test.ShouldEqual, 2)
	test.That(t, len(table.Rows), test.ShouldEqual, 3) // original untouched
}

func TestAdjustPathNoOpWhenSweepClean(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)
	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	stage := NewStage("direct", DefaultConfig(), inputs, testMotors("A"), nil)

	adjusted, err := stage.AdjustPath("A", FreezeOn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(adjusted), test.ShouldEqual, 0)
}

func TestAdjustPathSkipsFixedCaseWhenFreezeOff(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0)
	test.That(t, store.Put(cal), test.ShouldBeNil)
	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	stage := NewStage("direct", DefaultConfig(), inputs, testMotors("A"), nil)

	table := oneRowTable(t, "A", cal, 30)
	stage.Tables["A"] = table
	stage.StartPosInt["A"] = kinematics.TP{}
	stage.Sweeps["A"] = collision.Sweep{PosID: "A", CollisionIndex: 1, CollisionTimeSec: 0.1, Case: collision.CaseGFA, NeighborID: "GFA"}

	adjusted, err := stage.AdjustPath("A", FreezeOff)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(adjusted), test.ShouldEqual, 0)
}

func TestAdjustPathAcceptsForcedFreeze(t *testing.T) {
	store := memstore.New()
	cal := testCal("A", 0, 0)
	test.That(t, store.Put(cal), test.ShouldBeNil)
	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	stage := NewStage("direct", DefaultConfig(), inputs, testMotors("A"), collision.NewSweepCache())

	table := movetable.New("A", cal, movetable.DefaultMotorParams())
	for i := 0; i < 2; i++ {
		test.That(t, table.InsertRow(i), test.ShouldBeNil)
		test.That(t, table.SetMove(i, movetable.AxisT, 6), test.ShouldBeNil)
	}
	stage.Tables["A"] = table
	stage.StartPosInt["A"] = kinematics.TP{}
	stage.Sweeps["A"] = collision.Sweep{PosID: "A", CollisionIndex: 1, CollisionTimeSec: 0.4, Case: collision.CasePhiPhi, NeighborID: "B"}

	adjusted, err := stage.AdjustPath("A", FreezeForced)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, adjusted["A"], test.ShouldBeTrue)

	got := stage.Tables["A"]
	test.That(t, len(got.Rows) < len(table.Rows) || got != table, test.ShouldBeTrue)
}
