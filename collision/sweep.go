package collision

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/movetable"
	"go.viam.com/fpp/spatialmath"
)

// Sweep records the time-series of polygon placements generated by
// executing one table from a given start — spec §3.5. CollisionIndex is -1
// when no collision was found within the sweep's horizon.
type Sweep struct {
	PosID            string
	CollisionIndex   int
	CollisionTimeSec float64
	Case             Case
	NeighborID       string // other posid, or a FixedBoundary tag
}

// Clean reports whether the sweep found no collision.
func (s Sweep) Clean() bool { return s.CollisionIndex < 0 }

// TableDigest returns a stable digest of a table's collision-relevant
// content (rows only; cleanup commands don't affect geometry), used to key
// the sweep cache so repeat checks after an unrelated table's path
// adjustment can reuse a cached sweep — spec §4.3 performance contract.
func TableDigest(t *movetable.Table, start kinematics.TP) string {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	writeFloat(start.T)
	writeFloat(start.P)
	for _, r := range t.Rows {
		writeFloat(r.DeltaT)
		writeFloat(r.DeltaP)
		writeFloat(r.PrepauseSec)
		writeFloat(r.PostpauseSec)
		h.Write([]byte{byte(r.SpeedModeT), byte(r.SpeedModeP)})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// SweepCache memoizes sweeps keyed by (posid, table digest) so unchanged
// tables are not re-swept after an adjustment to an unrelated neighbor.
type SweepCache struct {
	mu    sync.Mutex
	cache map[string]Sweep
}

// NewSweepCache returns an empty cache.
func NewSweepCache() *SweepCache {
	return &SweepCache{cache: make(map[string]Sweep)}
}

func cacheKey(posid, digest string) string { return posid + "@" + digest }

// Get returns a cached sweep, if present.
func (c *SweepCache) Get(posid, digest string) (Sweep, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cache[cacheKey(posid, digest)]
	return s, ok
}

// Put stores a sweep.
func (c *SweepCache) Put(posid, digest string, s Sweep) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[cacheKey(posid, digest)] = s
}

// SpacetimeCheck samples both tables onto the timestep grid and returns a
// Sweep for each positioner describing the first colliding sample from its
// own perspective — spec §4.3. Ties at the same sample index are broken by
// lexicographic positioner id when deciding which id is "primary": here the
// caller (schedule) applies that tie-break when aggregating across pairs;
// this function always returns both perspectives symmetrically.
func SpacetimeCheck(
	posA string, tableA *movetable.Table, startA kinematics.TP, geoA Geometry,
	posB string, tableB *movetable.Table, startB kinematics.TP, geoB Geometry,
	timestepSec float64,
) (Sweep, Sweep) {
	totalA := tableA.TotalTime()
	totalB := tableB.TotalTime()
	horizon := math.Max(totalA, totalB)
	if timestepSec <= 0 {
		timestepSec = 0.02
	}

	steps := int(math.Ceil(horizon/timestepSec)) + 1
	for i := 0; i <= steps; i++ {
		tSec := float64(i) * timestepSec
		tpA := tableA.PositionAt(startA, tSec)
		tpB := tableB.PositionAt(startB, tSec)
		placementA := Place(tableA.Cal, geoA, tpA)
		placementB := Place(tableB.Cal, geoB, tpB)
		if c, collided := SpatialCheck(placementA, placementB); collided {
			return Sweep{PosID: posA, CollisionIndex: i, CollisionTimeSec: tSec, Case: c, NeighborID: posB},
				Sweep{PosID: posB, CollisionIndex: i, CollisionTimeSec: tSec, Case: mirrorCase(c), NeighborID: posA}
		}
	}
	return Sweep{PosID: posA, CollisionIndex: -1}, Sweep{PosID: posB, CollisionIndex: -1}
}

// mirrorCase swaps IIIA/IIIB when describing a collision from the other
// party's perspective; II, GFA, and PTL are symmetric.
func mirrorCase(c Case) Case {
	switch c {
	case CaseIIIA:
		return CaseIIIB
	case CaseIIIB:
		return CaseIIIA
	default:
		return c
	}
}

// FixedSpacetimeCheck sweeps one positioner's table against a fixed
// boundary polygon (petal edge or GFA envelope; fixedCase should be CasePTL
// or CaseGFA), returning a single Sweep since only one party moves.
func FixedSpacetimeCheck(
	posid string, table *movetable.Table, start kinematics.TP, geo Geometry,
	fixedTag string, fixedPoly spatialmath.Polygon, fixedCase Case,
	timestepSec float64,
) Sweep {
	total := table.TotalTime()
	if timestepSec <= 0 {
		timestepSec = 0.02
	}
	steps := int(math.Ceil(total/timestepSec)) + 1
	for i := 0; i <= steps; i++ {
		tSec := float64(i) * timestepSec
		tp := table.PositionAt(start, tSec)
		placement := Place(table.Cal, geo, tp)
		if FixedCheck(placement, fixedPoly) {
			return Sweep{PosID: posid, CollisionIndex: i, CollisionTimeSec: tSec, Case: fixedCase, NeighborID: fixedTag}
		}
	}
	return Sweep{PosID: posid, CollisionIndex: -1}
}
