// Package kinematics implements the bidirectional coordinate transforms of
// spec §3.2/§4.1: posintTP <-> poslocTP <-> poslocXY <-> ptlXY <-> obsXY, plus
// the (Q,S) sky-plane mapping. Every transform is a pure function of its
// inputs and the owning positioner's calibration; none mutate state.
package kinematics

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/spatialmath"
)

// TP is a pair of shaft angles (theta, phi) in degrees. It may legitimately
// lie outside (-180, 180] when unwrapped across a hardstop.
type TP struct {
	T, P float64
}

// RangeWrapMode selects which range delta_posintTP and the reachability wrap
// search honor.
type RangeWrapMode int

const (
	// WrapTargetable wraps into targetable_range_* (the normal scheduling case).
	WrapTargetable RangeWrapMode = iota
	// WrapFull wraps into physical_range_* (reserved for homing/debounce).
	WrapFull
)

// ErrUnreachable is returned when a target lies outside the positioner's
// reachable annulus [|r1-r2|, r1+r2].
var ErrUnreachable = errors.New("target unreachable: outside annulus [|r1-r2|, r1+r2]")

// ErrOutOfRange is returned when, after wrapping, the target still falls
// outside the requested range.
var ErrOutOfRange = errors.New("target out of range after wrap")

func rangesFor(c calib.Calibration, mode RangeWrapMode) (calib.Range, calib.Range) {
	if mode == WrapFull {
		return c.PhysicalRangeT, c.PhysicalRangeP
	}
	return c.TargetableRangeT, c.TargetableRangeP
}

// PosIntToPosLoc converts internal shaft angles to observed angles, applying
// the signed zero-point offsets and gear-ratio corrections.
func PosIntToPosLoc(c calib.Calibration, posint TP) TP {
	return TP{
		T: posint.T*c.GearCalibT + c.OffsetT,
		P: posint.P*c.GearCalibP + c.OffsetP,
	}
}

// PosLocToPosInt is the inverse of PosIntToPosLoc.
func PosLocToPosInt(c calib.Calibration, posloc TP) TP {
	return TP{
		T: (posloc.T - c.OffsetT) / c.GearCalibT,
		P: (posloc.P - c.OffsetP) / c.GearCalibP,
	}
}

// PosLocTPToXY is the forward arm kinematic of spec §3.2:
//
//	x = r1*cos(T) + r2*cos(T+P)
//	y = r1*sin(T) + r2*sin(T+P)
func PosLocTPToXY(c calib.Calibration, tp TP) spatialmath.Vector2 {
	tRad := deg2rad(tp.T)
	pRad := deg2rad(tp.P)
	return spatialmath.Vector2{
		X: c.LengthR1*math.Cos(tRad) + c.LengthR2*math.Cos(tRad+pRad),
		Y: c.LengthR1*math.Sin(tRad) + c.LengthR2*math.Sin(tRad+pRad),
	}
}

// PosLocXYToTP is the inverse arm kinematic. It reports ErrUnreachable when
// the point lies outside the reachable annulus, otherwise wraps T,P into the
// range selected by mode and reports ErrOutOfRange if no equivalent angle
// lies within it.
func PosLocXYToTP(c calib.Calibration, xy spatialmath.Vector2, mode RangeWrapMode) (TP, error) {
	rho2 := xy.X*xy.X + xy.Y*xy.Y
	rho := math.Sqrt(rho2)
	rMin := math.Abs(c.LengthR1 - c.LengthR2)
	rMax := c.LengthR1 + c.LengthR2
	if rho < rMin-1e-9 || rho > rMax+1e-9 {
		return TP{}, ErrUnreachable
	}

	cosP := (rho2 - c.LengthR1*c.LengthR1 - c.LengthR2*c.LengthR2) / (2 * c.LengthR1 * c.LengthR2)
	cosP = clamp(cosP, -1, 1)
	pRad := math.Acos(cosP)

	var tRad float64
	if rho < 1e-12 {
		// Degenerate: both arms folded back on each other so (x,y)=(0,0) is
		// reachable for any T; pick T=0 by convention.
		tRad = 0
	} else {
		sinAsinArg := clamp(c.LengthR2*math.Sin(pRad)/rho, -1, 1)
		tRad = math.Atan2(xy.Y, xy.X) - math.Asin(sinAsinArg)
	}

	posloc := TP{T: rad2deg(tRad), P: rad2deg(pRad)}
	rangeT, rangeP := rangesFor(c, mode)
	wrappedT, ok := WrapToRange(posloc.T, rangeT)
	if !ok {
		return TP{}, ErrOutOfRange
	}
	wrappedP, ok := WrapToRange(posloc.P, rangeP)
	if !ok {
		return TP{}, ErrOutOfRange
	}
	return TP{T: wrappedT, P: wrappedP}, nil
}

// PosLocXYToPtlXY translates a point in the positioner's local frame into the
// petal-local frame by the positioner's center offset.
func PosLocXYToPtlXY(c calib.Calibration, xy spatialmath.Vector2) spatialmath.Vector2 {
	return spatialmath.Vector2{X: xy.X + c.OffsetX, Y: xy.Y + c.OffsetY}
}

// PtlXYToPosLocXY is the inverse of PosLocXYToPtlXY.
func PtlXYToPosLocXY(c calib.Calibration, ptlxy spatialmath.Vector2) spatialmath.Vector2 {
	return spatialmath.Vector2{X: ptlxy.X - c.OffsetX, Y: ptlxy.Y - c.OffsetY}
}

// PtlXYToObsXY applies the per-petal rigid transform to map petal-local
// coordinates to the global observer frame.
func PtlXYToObsXY(petalToObs spatialmath.RigidTransform2D, ptlxy spatialmath.Vector2) spatialmath.Vector2 {
	return petalToObs.Apply(ptlxy)
}

// ObsXYToPtlXY is the inverse of PtlXYToObsXY.
func ObsXYToPtlXY(petalToObs spatialmath.RigidTransform2D, obsxy spatialmath.Vector2) spatialmath.Vector2 {
	inv := invert(petalToObs)
	return inv.Apply(obsxy)
}

func invert(t spatialmath.RigidTransform2D) spatialmath.RigidTransform2D {
	inv := spatialmath.RigidTransform2D{ThetaRad: -t.ThetaRad}
	origin := spatialmath.Vector2{X: -t.Tx, Y: -t.Ty}.Rotated(-t.ThetaRad)
	inv.Tx, inv.Ty = origin.X, origin.Y
	return inv
}

// WrapToRange finds k such that value+360k lies in r, returning (value+360k,
// true), or (0, false) if no such k exists. It tries the smallest |k| values
// first so the returned angle is the nearest equivalent to the input.
func WrapToRange(value float64, r calib.Range) (float64, bool) {
	if r.Contains(value) {
		return value, true
	}
	// The range spans at most 360 degrees in practice (physical travel), so a
	// handful of wraps in either direction suffices to find any equivalent.
	for k := 1; k <= 3; k++ {
		if v := value + 360*float64(k); r.Contains(v) {
			return v, true
		}
		if v := value - 360*float64(k); r.Contains(v) {
			return v, true
		}
	}
	return 0, false
}

// DeltaPosIntTP returns the shortest signed rotation on each axis taking
// start to an angle equivalent to final, consistent with mode — spec §4.1.
// When allowExceedLimits is true, no wrap is attempted at all and the raw
// signed difference is returned (spec §9, Open Question 3).
func DeltaPosIntTP(final, start TP, mode RangeWrapMode, allowExceedLimits bool, rangeT, rangeP calib.Range) (TP, error) {
	if allowExceedLimits {
		return TP{T: final.T - start.T, P: final.P - start.P}, nil
	}

	dT, err := shortestDelta(final.T, start.T, rangeT)
	if err != nil {
		return TP{}, err
	}
	dP, err := shortestDelta(final.P, start.P, rangeP)
	if err != nil {
		return TP{}, err
	}
	return TP{T: dT, P: dP}, nil
}

// shortestDelta finds the equivalent of final (mod 360) nearest start such
// that the equivalent value lies within r, and returns equivalent-start.
func shortestDelta(final, start float64, r calib.Range) (float64, error) {
	best := math.NaN()
	bestMag := math.Inf(1)
	for k := -3; k <= 3; k++ {
		candidate := final + 360*float64(k)
		if !r.Contains(candidate) {
			continue
		}
		d := candidate - start
		if math.Abs(d) < bestMag {
			bestMag = math.Abs(d)
			best = d
		}
	}
	if math.IsNaN(best) {
		return 0, errors.Wrapf(ErrOutOfRange, "no equivalent of %v within range %v", final, r)
	}
	return best, nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
