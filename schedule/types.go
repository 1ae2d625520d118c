// Package schedule implements the Stage and Schedule of spec §3.5/§4.4/§4.5:
// admission of target requests, three-stage (retract/rotate/extend) or
// direct planning, the path-adjustment tactic ladder, power annealing, and
// stage merging into per-positioner deliverable move tables.
package schedule

import (
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/spatialmath"
	"go.viam.com/fpp/stats"
)

// Command is the coordinate system/verb of an inbound request, spec §6.
type Command int

// Command values, spec §6 inbound request dictionary.
const (
	CmdQS Command = iota
	CmdDQdS
	CmdObsXY
	CmdPosXY // observed local XY (poslocXY)
	CmdPtlXY
	CmdDXdY // delta in poslocXY
	CmdObsTP
	CmdPosIntTP
	CmdPosLocTP
	CmdDTdP // delta in posintTP
)

// Request is one inbound target request, spec §6.
type Request struct {
	PosID   string
	Command Command
	U, V    float64
	LogNote string
}

// AnticollisionMode selects how schedule_moves plans, spec §4.5.
type AnticollisionMode int

// AnticollisionMode values.
const (
	// ModeNone performs no collision detection; direct path.
	ModeNone AnticollisionMode = iota
	// ModeAdjust runs the tactic ladder but does not force-freeze; unresolved
	// conflicts are reported as UnsolvableCollision.
	ModeAdjust
	// ModeFreeze behaves like ModeAdjust but freezes a positioner (without
	// recursing into induced collisions) as the ladder's last resort.
	ModeFreeze
	// ModeForcedRecursive guarantees collision-free output by recursively
	// forcing freezes on any positioner whose freeze induces a new collision.
	ModeForcedRecursive
)

// Config carries the tunables referenced throughout spec §4/§5/§9.
type Config struct {
	TimestepSec               float64
	ClearanceMarginTimesteps  int // spec §9 OQ2: num_timesteps_clearance_margin
	SafePhiDeg                float64
	JogSmallDeg               float64
	JogLargeDeg               float64
	AnnealTimeSec             float64
	SupplyGroups              map[string][]string // supply -> posids
	NeighborDistanceMarginMM  float64
	Clock                     clock.Clock
	Recorder                  stats.Recorder // spec §2 "Statistics recorder"; nil is valid, treated as stats.Noop
}

// recorder returns cfg's configured Recorder, defaulting to the always-safe
// no-op so call sites never need a nil check.
func (c Config) recorder() stats.Recorder {
	if c.Recorder == nil {
		return stats.Noop
	}
	return c.Recorder
}

// DefaultConfig returns representative tunables for a DESI-class petal.
func DefaultConfig() Config {
	return Config{
		TimestepSec:              0.02,
		ClearanceMarginTimesteps: 2,
		SafePhiDeg:               140,
		JogSmallDeg:              3,
		JogLargeDeg:              10,
		AnnealTimeSec:            3,
		NeighborDistanceMarginMM: 1,
		Clock:                    clock.New(),
	}
}

// PositionerInputs bundles the static, per-petal inputs a Schedule needs
// beyond the calibration store: neighbor graph, keep-out geometry, and
// fixed boundary polygons — spec §6 "Collider inputs".
type PositionerInputs struct {
	Store       calib.Store
	Graph       *collision.NeighborGraph
	Geometry    map[string]collision.Geometry
	FixedPolys  map[string]spatialmath.Polygon // keyed by tag: "PTL", "GFA"
	PetalToObs  spatialmath.RigidTransform2D
	RadialPoly  kinematics.RadialPolynomial // fixed sky-plane distortion polynomial, spec §4.1
}

// Now returns the configured clock's time, defaulting to the real clock.
// This is the only place real time enters planning, and only for stamping
// diagnostics emitted around a planning call — never a planning decision
// itself, per spec §5's wall-clock-free determinism guarantee.
func (c Config) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}
