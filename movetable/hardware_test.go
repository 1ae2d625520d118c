package movetable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/fpp/kinematics"
)

func TestForHardwareStepConversion(t *testing.T) {
	tbl := New("P1", testTableCal(), DefaultMotorParams())
	tbl.InsertRow(0)
	tbl.SetMove(0, AxisT, 1)
	hw := tbl.ForHardware(7)
	test.That(t, hw.CanID, test.ShouldEqual, uint32(7))
	test.That(t, len(hw.Rows) > 0, test.ShouldBeTrue)
	test.That(t, hw.Rows[0].MotorStepsT, test.ShouldEqual, int(tbl.Motor.StepsPerDegreeT))
}

func TestForHardwareAppendsAntiBacklash(t *testing.T) {
	cal := testTableCal()
	cal.AntibacklashOnT = true
	cal.PreferredDirT = 1
	cal.BacklashT = 0.5
	tbl := New("P1", cal, DefaultMotorParams())
	tbl.InsertRow(0)
	tbl.SetMove(0, AxisT, -10) // moves in the non-preferred (-1) direction

	hw := tbl.ForHardware(1)
	test.That(t, len(hw.Rows) >= 3, test.ShouldBeTrue)
}

func TestForHardwareAppendsAntiBacklashOnPAxisUsesPhiCruiseSpeed(t *testing.T) {
	cal := testTableCal()
	cal.AntibacklashOnP = true
	cal.PreferredDirP = 1
	cal.BacklashP = 0.5
	motor := DefaultMotorParams()
	motor.CruiseSpeedDegPerSecT = 30
	motor.CruiseSpeedDegPerSecP = 10 // asymmetric: phi cruise speed differs from theta's
	tbl := New("P1", cal, motor)
	tbl.InsertRow(0)
	tbl.SetMove(0, AxisP, -10) // moves in the non-preferred (-1) direction

	hw := tbl.ForHardware(1)
	test.That(t, len(hw.Rows) >= 3, test.ShouldBeTrue)

	overshootRow := hw.Rows[len(hw.Rows)-2]
	expected := 0.5 / motor.CruiseSpeedDegPerSecP
	test.That(t, overshootRow.MoveTimeSec, test.ShouldAlmostEqual, expected, 1e-9)
}

func TestForHardwareSkipsAntiBacklashWhenPreferredDirection(t *testing.T) {
	cal := testTableCal()
	cal.AntibacklashOnT = true
	cal.PreferredDirT = 1
	cal.BacklashT = 0.5
	tbl := New("P1", cal, DefaultMotorParams())
	tbl.InsertRow(0)
	tbl.SetMove(0, AxisT, 10) // moves in the preferred direction already

	hw := tbl.ForHardware(1)
	test.That(t, len(hw.Rows), test.ShouldEqual, 1)
}

// TestForHardwareIsDeterministic exercises spec §8's determinism law:
// identical inputs must produce bit-exact move-step integers and pause
// milliseconds. cmp.Diff gives a readable failure over the full row slice
// rather than a field-by-field test.That walk.
func TestForHardwareIsDeterministic(t *testing.T) {
	cal := testTableCal()
	cal.AntibacklashOnT = true
	cal.PreferredDirT = 1
	cal.BacklashT = 0.5
	build := func() HardwareTable {
		tbl := New("P1", cal, DefaultMotorParams())
		tbl.InsertRow(0)
		tbl.SetMove(0, AxisT, -10)
		tbl.InsertRow(1)
		tbl.SetMove(1, AxisT, -10)
		return tbl.ForHardware(7)
	}
	first, second := build(), build()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("ForHardware not deterministic (-first +second):\n%s", diff)
	}
}

func TestForCleanupReturnsFinalTP(t *testing.T) {
	tbl := New("P1", testTableCal(), DefaultMotorParams())
	tbl.InsertRow(0)
	tbl.SetMove(0, AxisT, 15)
	got := tbl.ForCleanup(kinematics.TP{T: 5})
	test.That(t, got.T, test.ShouldAlmostEqual, 20.0)
}
