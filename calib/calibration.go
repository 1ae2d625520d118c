// Package calib defines the per-positioner calibration record and the
// read-mostly store the scheduler consults. Calibration is never mutated
// ad-hoc: all writes go through Store.Put, matching the "dedicated mutation
// interface" invariant.
package calib

import "github.com/pkg/errors"

// Range is an inclusive [Min, Max] travel interval in degrees.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies within the range, inclusive.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Span returns Max-Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Within reports whether r is a subset of o.
func (r Range) Within(o Range) bool { return r.Min >= o.Min && r.Max <= o.Max }

// Calibration is the full per-positioner calibration record of spec §3.1.
type Calibration struct {
	PosID string

	LengthR1 float64 // mm, inner arm
	LengthR2 float64 // mm, outer arm

	OffsetT float64 // degrees, shaft-zero offset, theta
	OffsetP float64 // degrees, shaft-zero offset, phi

	OffsetX float64 // mm, theta-axis center in petal frame
	OffsetY float64 // mm, theta-axis center in petal frame

	GearCalibT float64 // dimensionless gear-ratio correction
	GearCalibP float64

	PhysicalRangeT   Range // degrees
	PhysicalRangeP   Range
	TargetableRangeT Range // subset of PhysicalRange*
	TargetableRangeP Range

	CtrlEnabled bool

	PrincipleHardstopDirectionT int // +1 or -1

	AntibacklashOnT bool
	AntibacklashOnP bool
	BacklashT       float64 // degrees
	BacklashP       float64
	PreferredDirT   int // +1 or -1, final-approach direction
	PreferredDirP   int

	CreepToLimitsT bool
	CreepToLimitsP bool
	CreepPeriodT   float64 // seconds per step
	CreepPeriodP   float64
	SpinupdownPeriodT float64 // seconds
	SpinupdownPeriodP float64

	CurrentSpinupT float64 // percent duty
	CurrentCruiseT float64
	CurrentCreepT  float64
	CurrentHoldT   float64
	CurrentSpinupP float64
	CurrentCruiseP float64
	CurrentCreepP  float64
	CurrentHoldP   float64
}

// Validate enforces the §3.1 invariants.
func (c Calibration) Validate() error {
	if c.LengthR1 <= 0 {
		return errors.Errorf("calibration %s: length_r1 must be > 0, got %v", c.PosID, c.LengthR1)
	}
	if c.LengthR2 <= 0 {
		return errors.Errorf("calibration %s: length_r2 must be > 0, got %v", c.PosID, c.LengthR2)
	}
	if !c.TargetableRangeT.Within(c.PhysicalRangeT) {
		return errors.Errorf("calibration %s: targetable_range_t %v not within physical_range_t %v",
			c.PosID, c.TargetableRangeT, c.PhysicalRangeT)
	}
	if !c.TargetableRangeP.Within(c.PhysicalRangeP) {
		return errors.Errorf("calibration %s: targetable_range_p %v not within physical_range_p %v",
			c.PosID, c.TargetableRangeP, c.PhysicalRangeP)
	}
	return nil
}

// Store is the read-mostly calibration store the scheduler and collider
// consult. Implementations: calib/memstore for tests and simple deployments,
// persistence.MongoBackedStore for a document-database-backed deployment.
type Store interface {
	// Get returns the calibration for posid and whether it was found.
	Get(posid string) (Calibration, bool)
	// Put is the dedicated mutation interface; it validates before storing.
	Put(c Calibration) error
	// All returns a snapshot of every stored calibration, keyed by posid.
	All() map[string]Calibration
}
