package collision

import (
	"math"
	"sort"

	"go.viam.com/fpp/calib"
)

// NeighborGraph precomputes, for each positioner, the other positioners and
// fixed polygons close enough to potentially collide — spec §3.4.
type NeighborGraph struct {
	PosNeighbors   map[string][]string
	FixedNeighbors map[string][]string
}

// FixedBoundary is a named fixed polygon (petal edge, GFA envelope) along
// with the center and radius of a bounding disk used for the neighbor filter.
type FixedBoundary struct {
	Tag    string
	Center struct{ X, Y float64 }
	Radius float64
}

// BuildNeighborGraph computes pos_neighbors and fixed_neighbors by a
// pairwise distance filter on patrol-disk centers: two positioners are
// neighbors if the distance between centers is less than the sum of their
// patrol radii (r1+r2 each) plus margin.
func BuildNeighborGraph(cals map[string]calib.Calibration, fixed []FixedBoundary, margin float64) *NeighborGraph {
	ids := make([]string, 0, len(cals))
	for id := range cals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := &NeighborGraph{
		PosNeighbors:   make(map[string][]string, len(ids)),
		FixedNeighbors: make(map[string][]string, len(ids)),
	}
	for _, id := range ids {
		g.PosNeighbors[id] = nil
		g.FixedNeighbors[id] = nil
	}

	for i, a := range ids {
		ca := cals[a]
		patrolA := ca.LengthR1 + ca.LengthR2
		for j := i + 1; j < len(ids); j++ {
			b := ids[j]
			cb := cals[b]
			patrolB := cb.LengthR1 + cb.LengthR2
			dist := math.Hypot(ca.OffsetX-cb.OffsetX, ca.OffsetY-cb.OffsetY)
			if dist < patrolA+patrolB+margin {
				g.PosNeighbors[a] = append(g.PosNeighbors[a], b)
				g.PosNeighbors[b] = append(g.PosNeighbors[b], a)
			}
		}
		for _, fb := range fixed {
			dist := math.Hypot(ca.OffsetX-fb.Center.X, ca.OffsetY-fb.Center.Y)
			if dist < patrolA+fb.Radius+margin {
				g.FixedNeighbors[a] = append(g.FixedNeighbors[a], fb.Tag)
			}
		}
	}
	for _, id := range ids {
		sort.Strings(g.PosNeighbors[id])
		sort.Strings(g.FixedNeighbors[id])
	}
	return g
}
