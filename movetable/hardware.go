package movetable

import (
	"math"

	"go.viam.com/fpp/kinematics"
)

// HardwareRow is one row of the outbound move-table record, spec §6.
type HardwareRow struct {
	MotorStepsT, MotorStepsP int // signed; positive => ccw
	SpeedModeT, SpeedModeP   SpeedMode
	MoveTimeSec              float64
	PostpauseMS              int
}

// HardwareTable is the serialized representation handed to the motor
// controller, spec §6's outbound move-table record.
type HardwareTable struct {
	CanID uint32
	Rows  []HardwareRow
}

// Nrows returns the row count, spec §6's "nrows" field.
func (h HardwareTable) Nrows() int { return len(h.Rows) }

// ForHardware serializes the table for delivery to the motor controller,
// expanding anti-backlash and final-creep as trailing rows when enabled, and
// merging adjacent identical rows — spec §4.2. Range safety against a
// starting (T,P) is CheckRangeSafety's concern, not this one.
func (t *Table) ForHardware(canID uint32) HardwareTable {
	rows := make([]HardwareRow, 0, len(t.Rows)+2)
	for _, r := range t.Rows {
		rows = append(rows, HardwareRow{
			MotorStepsT: degToSteps(r.DeltaT, t.Motor.StepsPerDegreeT),
			MotorStepsP: degToSteps(r.DeltaP, t.Motor.StepsPerDegreeP),
			SpeedModeT:  r.SpeedModeT,
			SpeedModeP:  r.SpeedModeP,
			MoveTimeSec: t.RowTime(len(rows)),
			PostpauseMS: int(math.Round(r.PostpauseSec * 1000)),
		})
	}

	rows = t.appendAntiBacklash(rows, AxisT, t.Cal.AntibacklashOnT, t.Cal.PreferredDirT, t.Cal.BacklashT, finalNetDelta(t, AxisT))
	rows = t.appendAntiBacklash(rows, AxisP, t.Cal.AntibacklashOnP, t.Cal.PreferredDirP, t.Cal.BacklashP, finalNetDelta(t, AxisP))

	return HardwareTable{CanID: canID, Rows: mergeAdjacent(rows)}
}

func finalNetDelta(t *Table, axis Axis) float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	if axis == AxisT {
		return t.CumulativeDelta(AxisT, len(t.Rows)-1)
	}
	return t.CumulativeDelta(AxisP, len(t.Rows)-1)
}

// appendAntiBacklash appends an overshoot-then-creep-return pair on axis when
// enabled and the last net delta moved in the non-preferred direction —
// spec §4.2 "Anti-backlash & final creep".
func (t *Table) appendAntiBacklash(rows []HardwareRow, axis Axis, enabled bool, preferredDir int, backlashDeg, netDelta float64) []HardwareRow {
	if !enabled || backlashDeg <= 0 || netDelta == 0 {
		return rows
	}
	movedDir := 1
	if netDelta < 0 {
		movedDir = -1
	}
	if movedDir == preferredDir {
		return rows
	}

	overshoot := float64(preferredDir) * backlashDeg
	var stepsPerDeg, creepPeriod, creepStep, cruiseSpeed float64
	if axis == AxisT {
		stepsPerDeg, creepPeriod, creepStep = t.Motor.StepsPerDegreeT, t.Motor.CreepPeriodSecT, t.Motor.CreepStepDegT
		cruiseSpeed = t.Motor.CruiseSpeedDegPerSecT
	} else {
		stepsPerDeg, creepPeriod, creepStep = t.Motor.StepsPerDegreeP, t.Motor.CreepPeriodSecP, t.Motor.CreepStepDegP
		cruiseSpeed = t.Motor.CruiseSpeedDegPerSecP
	}

	overshootRow := HardwareRow{MoveTimeSec: math.Abs(overshoot) / cruiseSpeed}
	returnRow := HardwareRow{
		SpeedModeT: Creep, SpeedModeP: Creep,
		MoveTimeSec: (math.Abs(overshoot) / creepStep) * creepPeriod,
	}
	if axis == AxisT {
		overshootRow.MotorStepsT = degToSteps(overshoot, stepsPerDeg)
		returnRow.MotorStepsT = -degToSteps(overshoot, stepsPerDeg)
	} else {
		overshootRow.MotorStepsP = degToSteps(overshoot, stepsPerDeg)
		returnRow.MotorStepsP = -degToSteps(overshoot, stepsPerDeg)
	}
	return append(rows, overshootRow, returnRow)
}

func mergeAdjacent(rows []HardwareRow) []HardwareRow {
	if len(rows) == 0 {
		return rows
	}
	out := make([]HardwareRow, 0, len(rows))
	out = append(out, rows[0])
	for _, r := range rows[1:] {
		last := &out[len(out)-1]
		if *last == r {
			last.MotorStepsT += r.MotorStepsT
			last.MotorStepsP += r.MotorStepsP
			last.MoveTimeSec += r.MoveTimeSec
			last.PostpauseMS += r.PostpauseMS
			continue
		}
		out = append(out, r)
	}
	return out
}

func degToSteps(deg, stepsPerDeg float64) int {
	return int(math.Round(deg * stepsPerDeg))
}

// ForCleanup returns the axis deltas to commit to posintTP after a
// successful move, spec §4.2.
func (t *Table) ForCleanup(start kinematics.TP) kinematics.TP {
	return t.FinalTP(start)
}
