package movetable

import (
	"math"

	"go.viam.com/fpp/kinematics"
)

// Sample is one point in a table's execution, produced by ForCollider.
type Sample struct {
	TimeSec float64
	TP      kinematics.TP
	Moving  bool
}

// ForCollider lazily samples the table's execution, starting from start,
// onto the fixed timestep grid used by the collider — spec §3.3/§4.2.
// Anti-backlash rows are not part of Rows (they are appended only by
// ForHardware) so they are never seen here, matching the invariant that the
// collider never analyzes post-arrival micro-moves.
func (t *Table) ForCollider(start kinematics.TP, timestepSec float64) []Sample {
	if timestepSec <= 0 {
		timestepSec = 0.02
	}
	samples := []Sample{{TimeSec: 0, TP: start, Moving: false}}
	curT, curP := start.T, start.P
	elapsed := 0.0

	for _, r := range t.Rows {
		elapsed = sampleStationary(&samples, elapsed, r.PrepauseSec, timestepSec, curT, curP)

		tAxisTime := t.axisRowTime(r.DeltaT, r.SpeedModeT, AxisT)
		pAxisTime := t.axisRowTime(r.DeltaP, r.SpeedModeP, AxisP)
		motionTime := math.Max(tAxisTime, pAxisTime)
		startT, startP := curT, curP
		if motionTime > 0 {
			elapsed = sampleMotion(&samples, elapsed, motionTime, timestepSec,
				startT, r.DeltaT, tAxisTime, startP, r.DeltaP, pAxisTime)
		}
		curT = startT + r.DeltaT
		curP = startP + r.DeltaP
		// Ensure the row's endpoint itself is represented even if motionTime
		// was not an exact multiple of timestepSec.
		samples = append(samples, Sample{TimeSec: elapsed, TP: kinematics.TP{T: curT, P: curP}, Moving: false})

		elapsed = sampleStationary(&samples, elapsed, r.PostpauseSec, timestepSec, curT, curP)
	}
	return samples
}

// PositionAt returns the (T,P) reached at absolute timeSec after executing
// the table from start, without materializing the full sample list — the
// lazy, on-demand counterpart to ForCollider used by the collider to align
// two tables' sweeps onto a common time axis.
func (t *Table) PositionAt(start kinematics.TP, timeSec float64) kinematics.TP {
	if timeSec <= 0 {
		return start
	}
	curT, curP := start.T, start.P
	elapsed := 0.0
	for _, r := range t.Rows {
		if timeSec <= elapsed+r.PrepauseSec {
			return kinematics.TP{T: curT, P: curP}
		}
		elapsed += r.PrepauseSec

		tAxisTime := t.axisRowTime(r.DeltaT, r.SpeedModeT, AxisT)
		pAxisTime := t.axisRowTime(r.DeltaP, r.SpeedModeP, AxisP)
		motionTime := math.Max(tAxisTime, pAxisTime)
		if timeSec <= elapsed+motionTime {
			d := timeSec - elapsed
			fT := axisFraction(d, tAxisTime)
			fP := axisFraction(d, pAxisTime)
			return kinematics.TP{T: curT + fT*r.DeltaT, P: curP + fP*r.DeltaP}
		}
		elapsed += motionTime
		curT += r.DeltaT
		curP += r.DeltaP

		if timeSec <= elapsed+r.PostpauseSec {
			return kinematics.TP{T: curT, P: curP}
		}
		elapsed += r.PostpauseSec
	}
	return kinematics.TP{T: curT, P: curP}
}

func sampleStationary(samples *[]Sample, elapsed, duration, timestep float64, t, p float64) float64 {
	if duration <= 0 {
		return elapsed
	}
	for d := timestep; d < duration; d += timestep {
		*samples = append(*samples, Sample{TimeSec: elapsed + d, TP: kinematics.TP{T: t, P: p}, Moving: false})
	}
	elapsed += duration
	*samples = append(*samples, Sample{TimeSec: elapsed, TP: kinematics.TP{T: t, P: p}, Moving: false})
	return elapsed
}

func sampleMotion(samples *[]Sample, elapsed, motionTime, timestep float64,
	startT, deltaT, tAxisTime, startP, deltaP, pAxisTime float64,
) float64 {
	for d := timestep; d < motionTime; d += timestep {
		fT := axisFraction(d, tAxisTime)
		fP := axisFraction(d, pAxisTime)
		*samples = append(*samples, Sample{
			TimeSec: elapsed + d,
			TP:      kinematics.TP{T: startT + fT*deltaT, P: startP + fP*deltaP},
			Moving:  true,
		})
	}
	return elapsed + motionTime
}

// axisFraction returns the fraction of deltaT traversed after elapsed d,
// given the axis finishes its own motion in axisTime (<=motionTime); once
// the axis's own time has elapsed it holds at its final position.
func axisFraction(d, axisTime float64) float64 {
	if axisTime <= 0 {
		return 1
	}
	if d >= axisTime {
		return 1
	}
	return d / axisTime
}
