// Package movetable implements the time-quantized per-axis move table of
// spec §3.3/§4.2: an ordered sequence of rows carrying ideal axis deltas,
// speed modes, and pauses, from which both collider sweep samples and
// hardware-ready serializations are derived.
package movetable

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/kinematics"
)

// SpeedMode is the per-axis motion mode for a row.
type SpeedMode int

const (
	// Cruise is ramp-up/steady/ramp-down motion at the configured cruise speed.
	Cruise SpeedMode = iota
	// Creep is step-for-step motion at the creep period, used for fine
	// positioning and final-approach anti-backlash moves.
	Creep
)

func (m SpeedMode) String() string {
	if m == Creep {
		return "creep"
	}
	return "cruise"
}

// Axis selects theta or phi.
type Axis int

// Axis values.
const (
	AxisT Axis = iota
	AxisP
)

// Row is one entry in a move table: an ideal axis displacement per axis,
// a speed mode per axis, and a prepause/postpause.
type Row struct {
	DeltaT, DeltaP         float64 // degrees, signed
	SpeedModeT, SpeedModeP SpeedMode
	PrepauseSec            float64
	PostpauseSec           float64
}

// MotorParams are the timing constants governing row duration, drawn from
// the positioner's calibration (cruise/creep currents are informational for
// the hardware serializer and are not modeled here beyond mode selection).
type MotorParams struct {
	CruiseSpeedDegPerSecT, CruiseSpeedDegPerSecP float64
	CreepStepDegT, CreepStepDegP                 float64
	SpinupdownPeriodSecT, SpinupdownPeriodSecP   float64
	CreepPeriodSecT, CreepPeriodSecP             float64
	StepsPerDegreeT, StepsPerDegreeP             float64
}

// DefaultMotorParams are representative constants for a DESI-class fiber
// positioner (0.1 deg per creep step, ~30 deg/sec cruise).
func DefaultMotorParams() MotorParams {
	return MotorParams{
		CruiseSpeedDegPerSecT: 30, CruiseSpeedDegPerSecP: 30,
		CreepStepDegT: 0.1, CreepStepDegP: 0.1,
		SpinupdownPeriodSecT: 0.05, SpinupdownPeriodSecP: 0.05,
		CreepPeriodSecT: 0.002, CreepPeriodSecP: 0.002,
		StepsPerDegreeT: 337.5, StepsPerDegreeP: 337.5,
	}
}

// Table is the ordered sequence of rows belonging to one positioner.
type Table struct {
	PosID             string
	Cal               calib.Calibration
	Motor             MotorParams
	Rows              []Row
	AllowExceedLimits bool // reserved for homing/debounce, spec §3.3
	Cleanup           []CleanupCommand

	// LogNote and Command carry the originating request's traceability
	// fields through to the merged deliverable table, spec §4.5 "Attach the
	// original log note and command string for traceability."
	LogNote string
	Command string
}

// CleanupCommand is a deferred post-move operation (spec §5 "Post-move
// cleanup commands"), executed by the caller after hardware completion.
type CleanupCommand struct {
	Note string
	Axis Axis
	// SetPosToValue, when non-nil, instructs the caller to overwrite posintTP
	// on Axis with the given value once the move completes (e.g. after a
	// limit-seek, set pos to the hardstop value).
	SetPosToValue *float64
}

// New returns an empty table for posid.
func New(posid string, cal calib.Calibration, motor MotorParams) *Table {
	return &Table{PosID: posid, Cal: cal, Motor: motor}
}

// InsertRow inserts a zero row at idx, shifting subsequent rows back.
func (t *Table) InsertRow(idx int) error {
	if idx < 0 || idx > len(t.Rows) {
		return errors.Errorf("insert_new_row: index %d out of bounds [0,%d]", idx, len(t.Rows))
	}
	t.Rows = append(t.Rows, Row{})
	copy(t.Rows[idx+1:], t.Rows[idx:])
	t.Rows[idx] = Row{}
	return nil
}

// DeleteRow removes the row at idx.
func (t *Table) DeleteRow(idx int) error {
	if idx < 0 || idx >= len(t.Rows) {
		return errors.Errorf("delete_row: index %d out of bounds [0,%d)", idx, len(t.Rows))
	}
	t.Rows = append(t.Rows[:idx], t.Rows[idx+1:]...)
	return nil
}

// SetMove stores an ideal axis displacement for row, recomputing nothing
// eagerly: row timing is derived lazily by RowTime.
func (t *Table) SetMove(row int, axis Axis, deltaDeg float64) error {
	if row < 0 || row >= len(t.Rows) {
		return errors.Errorf("set_move: row %d out of bounds [0,%d)", row, len(t.Rows))
	}
	switch axis {
	case AxisT:
		t.Rows[row].DeltaT = deltaDeg
	case AxisP:
		t.Rows[row].DeltaP = deltaDeg
	default:
		return errors.Errorf("set_move: unknown axis %d", axis)
	}
	return nil
}

// SetPrepause sets the prepause of row, in seconds.
func (t *Table) SetPrepause(row int, seconds float64) error {
	if row < 0 || row >= len(t.Rows) {
		return errors.Errorf("set_prepause: row %d out of bounds [0,%d)", row, len(t.Rows))
	}
	if seconds < 0 {
		return errors.New("set_prepause: seconds must be >= 0")
	}
	t.Rows[row].PrepauseSec = seconds
	return nil
}

// SetPostpause sets the postpause of row, in seconds.
func (t *Table) SetPostpause(row int, seconds float64) error {
	if row < 0 || row >= len(t.Rows) {
		return errors.Errorf("set_postpause: row %d out of bounds [0,%d)", row, len(t.Rows))
	}
	if seconds < 0 {
		return errors.New("set_postpause: seconds must be >= 0")
	}
	t.Rows[row].PostpauseSec = seconds
	return nil
}

// Clone returns a deep copy of t, suitable for proposing speculative edits
// without mutating the original (spec §4.4 "proposed alternate move table").
func (t *Table) Clone() *Table {
	clone := &Table{
		PosID:             t.PosID,
		Cal:               t.Cal,
		Motor:             t.Motor,
		AllowExceedLimits: t.AllowExceedLimits,
		LogNote:           t.LogNote,
		Command:           t.Command,
	}
	clone.Rows = append(clone.Rows, t.Rows...)
	clone.Cleanup = append(clone.Cleanup, t.Cleanup...)
	return clone
}

// Extend appends other's rows (and cleanup commands) to t. Both tables must
// belong to the same positioner.
func (t *Table) Extend(other *Table) error {
	if other == nil {
		return nil
	}
	if other.PosID != t.PosID {
		return errors.Errorf("extend: positioner mismatch %s != %s", t.PosID, other.PosID)
	}
	t.Rows = append(t.Rows, other.Rows...)
	t.Cleanup = append(t.Cleanup, other.Cleanup...)
	return nil
}

// axisRowTime returns the time for one axis's motion in a row, given the
// ideal angular delta and the selected speed mode.
func (t *Table) axisRowTime(delta float64, mode SpeedMode, axis Axis) float64 {
	mag := math.Abs(delta)
	if mag < 1e-12 {
		return 0
	}
	switch axis {
	case AxisT:
		if mode == Creep {
			steps := mag / t.Motor.CreepStepDegT
			return steps * t.Motor.CreepPeriodSecT
		}
		return t.Motor.SpinupdownPeriodSecT + mag/t.Motor.CruiseSpeedDegPerSecT
	default:
		if mode == Creep {
			steps := mag / t.Motor.CreepStepDegP
			return steps * t.Motor.CreepPeriodSecP
		}
		return t.Motor.SpinupdownPeriodSecP + mag/t.Motor.CruiseSpeedDegPerSecP
	}
}

// RowTime returns the net elapsed time for row i: the max of the two axis
// times, plus prepause and postpause (spec §4.2 timing model).
func (t *Table) RowTime(i int) float64 {
	r := t.Rows[i]
	tTime := t.axisRowTime(r.DeltaT, r.SpeedModeT, AxisT)
	pTime := t.axisRowTime(r.DeltaP, r.SpeedModeP, AxisP)
	return math.Max(tTime, pTime) + r.PrepauseSec + r.PostpauseSec
}

// CumulativeTime returns the total net elapsed time through and including row i.
func (t *Table) CumulativeTime(i int) float64 {
	sum := 0.0
	for r := 0; r <= i && r < len(t.Rows); r++ {
		sum += t.RowTime(r)
	}
	return sum
}

// TotalTime returns the net elapsed time across the whole table.
func (t *Table) TotalTime() float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	return t.CumulativeTime(len(t.Rows) - 1)
}

// CumulativeDelta returns the cumulative signed angular delta on axis
// through and including row i.
func (t *Table) CumulativeDelta(axis Axis, i int) float64 {
	sum := 0.0
	for r := 0; r <= i && r < len(t.Rows); r++ {
		if axis == AxisT {
			sum += t.Rows[r].DeltaT
		} else {
			sum += t.Rows[r].DeltaP
		}
	}
	return sum
}

// FinalTP returns the (T,P) reached after executing every row, starting from start.
func (t *Table) FinalTP(start kinematics.TP) kinematics.TP {
	n := len(t.Rows) - 1
	if n < 0 {
		return start
	}
	return kinematics.TP{
		T: start.T + t.CumulativeDelta(AxisT, n),
		P: start.P + t.CumulativeDelta(AxisP, n),
	}
}

// CheckRangeSafety verifies that, starting from start, the cumulative angle
// after every row stays within the positioner's targetable range — spec §3.3
// invariant, bypassed when AllowExceedLimits is set.
func (t *Table) CheckRangeSafety(start kinematics.TP) error {
	if t.AllowExceedLimits {
		return nil
	}
	curT, curP := start.T, start.P
	for i, r := range t.Rows {
		curT += r.DeltaT
		curP += r.DeltaP
		if !t.Cal.TargetableRangeT.Contains(curT) {
			return errors.Errorf("row %d: theta %.3f exceeds targetable_range_t %v", i, curT, t.Cal.TargetableRangeT)
		}
		if !t.Cal.TargetableRangeP.Contains(curP) {
			return errors.Errorf("row %d: phi %.3f exceeds targetable_range_p %v", i, curP, t.Cal.TargetableRangeP)
		}
	}
	return nil
}
