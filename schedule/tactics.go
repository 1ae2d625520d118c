package schedule

import (
	"sort"
	"strings"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/movetable"
)

// FreezeMode selects how adjust_path falls back when the tactic ladder's
// non-freeze options are exhausted — spec §4.4.
type FreezeMode int

// FreezeMode values.
const (
	// FreezeOn freezes if all other tactics fail.
	FreezeOn FreezeMode = iota
	// FreezeOff never freezes; exhaustion is reported as UnsolvableCollision.
	FreezeOff
	// FreezeForced skips straight to freezing, unconditionally.
	FreezeForced
	// FreezeForcedRecursive is FreezeForced plus recursive resolution of any
	// side-effect collisions it induces.
	FreezeForcedRecursive
)

var nonFreezeMethods = []string{
	"pause",
	"retract_A", "extend_A", "rot_ccw_A", "rot_cw_A", "repel_ccw_A", "repel_cw_A",
	"retract_B", "extend_B", "rot_ccw_B", "rot_cw_B", "repel_ccw_B", "repel_cw_B",
}

func isFixedCase(c collision.Case) bool {
	return c == collision.CaseGFA || c == collision.CasePTL
}

// AdjustPath tries the tactic ladder for posid in order, accepting the
// first proposal that, after rechecking every neighborhood it touches,
// introduces no new collision (or, under forced freezing, accepting
// unconditionally) — spec §4.4's adjust_path. It returns the set of
// positioner ids whose tables were changed.
func (s *Stage) AdjustPath(posid string, freezing FreezeMode) (map[string]bool, error) {
	sweep, ok := s.Sweeps[posid]
	if !ok || sweep.Clean() {
		return map[string]bool{}, nil
	}

	var methods []string
	switch {
	case isFixedCase(sweep.Case):
		if freezing != FreezeOff {
			methods = []string{"freeze"}
		}
	case freezing == FreezeForced || freezing == FreezeForcedRecursive:
		methods = []string{"freeze"}
	case freezing == FreezeOff:
		methods = nonFreezeMethods
	default:
		methods = append(append([]string{}, nonFreezeMethods...), "freeze")
	}

	adjusted := make(map[string]bool)
	for _, method := range methods {
		s.cfg.recorder().TacticAttempted(method)
		proposed, err := s.proposePathAdjustment(posid, method)
		if err != nil {
			return adjusted, err
		}
		if len(proposed) == 0 {
			continue
		}

		colliding, all, err := s.FindCollisions(proposed)
		if err != nil {
			return adjusted, err
		}
		shouldAccept := len(colliding) == 0 || freezing == FreezeForced || freezing == FreezeForcedRecursive
		if !shouldAccept {
			continue
		}
		s.cfg.recorder().TacticAccepted(method)
		if method == "freeze" {
			s.cfg.recorder().PositionerFrozen()
		}

		before := make(map[string]bool, len(s.Colliding))
		for id := range s.Colliding {
			before[id] = true
		}

		for id, table := range proposed {
			s.Tables[id] = table
			adjusted[id] = true
		}
		s.ApplyCollisionResults(colliding, all)
		if method == "freeze" {
			s.frozen[posid] = true
			adjusted[posid] = true
		}

		couldHaveChanged := map[string]bool{posid: true, sweep.NeighborID: true}
		for id := range proposed {
			for _, n := range s.inputs.Graph.PosNeighbors[id] {
				couldHaveChanged[n] = true
			}
		}
		for id := range proposed {
			delete(couldHaveChanged, id)
		}
		recheckTables := make(map[string]*movetable.Table)
		for id := range couldHaveChanged {
			if t, ok := s.Tables[id]; ok {
				recheckTables[id] = t
			}
		}
		if len(recheckTables) > 0 {
			recheckColliding, recheckAll, err := s.FindCollisions(recheckTables)
			if err != nil {
				return adjusted, err
			}
			s.ApplyCollisionResults(recheckColliding, recheckAll)
		}

		if freezing == FreezeForcedRecursive {
			newlyColliding := make(map[string]bool)
			for id := range s.Colliding {
				if !before[id] {
					newlyColliding[id] = true
				}
			}
			if before[sweep.NeighborID] {
				newlyColliding[sweep.NeighborID] = true
			}
			ids := make([]string, 0, len(newlyColliding))
			for id := range newlyColliding {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				table, ok := s.Tables[id]
				if !ok || len(table.Rows) == 0 {
					continue
				}
				recursed, err := s.AdjustPath(id, FreezeForcedRecursive)
				if err != nil {
					return adjusted, err
				}
				for k := range recursed {
					adjusted[k] = true
				}
			}
		}
		break
	}
	return adjusted, nil
}

// proposePathAdjustment builds the speculative move table(s) for one tactic,
// without re-checking collisions — spec §4.4's _propose_path_adjustment.
// Returns an empty map when the tactic does not apply (positioner disabled,
// already frozen, fixed collision with a non-freeze method, or a neighbor
// with no table in this stage for any method other than freeze).
func (s *Stage) proposePathAdjustment(posid string, method string) (map[string]*movetable.Table, error) {
	sweep := s.Sweeps[posid]
	if sweep.Clean() {
		return nil, nil
	}
	cal, ok := s.inputs.Store.Get(posid)
	if !ok || !cal.CtrlEnabled || s.frozen[posid] {
		return nil, nil
	}
	table, ok := s.Tables[posid]
	if !ok {
		return nil, nil
	}

	if isFixedCase(sweep.Case) && method != "freeze" {
		return nil, nil
	}

	neighborTable, neighborMoves := s.Tables[sweep.NeighborID]
	if method != "freeze" && method != "pause" && !neighborMoves {
		return nil, nil
	}

	if method == "freeze" {
		return s.proposeFreeze(posid, table, sweep)
	}
	if method == "pause" {
		if !neighborMoves {
			return nil, nil
		}
		return s.proposePause(posid, table, sweep, neighborTable)
	}
	return s.proposeJog(posid, table, cal, sweep, method, neighborTable)
}

func (s *Stage) proposeFreeze(posid string, table *movetable.Table, sweep collision.Sweep) (map[string]*movetable.Table, error) {
	clone := table.Clone()
	collisionTime := sweep.CollisionTimeSec - s.cfg.TimestepSec
	for idx := len(clone.Rows) - 1; idx >= 0; idx-- {
		if clone.CumulativeTime(idx) >= collisionTime {
			if err := clone.DeleteRow(idx); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if len(clone.Rows) == 0 {
		if err := clone.InsertRow(0); err != nil {
			return nil, err
		}
	}
	return map[string]*movetable.Table{posid: clone}, nil
}

func (s *Stage) proposePause(posid string, table *movetable.Table, sweep collision.Sweep, neighborTable *movetable.Table) (map[string]*movetable.Table, error) {
	clearance := neighborClearanceTime(neighborTable, sweep.CollisionTimeSec) +
		float64(s.cfg.ClearanceMarginTimesteps)*s.cfg.TimestepSec
	clone := table.Clone()
	if err := clone.InsertRow(0); err != nil {
		return nil, err
	}
	if err := clone.SetPrepause(0, clearance); err != nil {
		return nil, err
	}
	return map[string]*movetable.Table{posid: clone}, nil
}

// neighborClearanceTime returns the first row-end time in neighborTable's
// cumulative timeline strictly after collisionTime (or the table's total
// time if there is none) — the moment the neighbor's own row boundaries put
// it past the collision point.
func neighborClearanceTime(neighborTable *movetable.Table, collisionTime float64) float64 {
	for i := 0; i < len(neighborTable.Rows); i++ {
		if t := neighborTable.CumulativeTime(i); t > collisionTime {
			return t
		}
	}
	return neighborTable.TotalTime()
}

func (s *Stage) proposeJog(posid string, table *movetable.Table, cal calib.Calibration, sweep collision.Sweep, method string, neighborTable *movetable.Table) (map[string]*movetable.Table, error) {
	jogBound := s.cfg.JogSmallDeg
	if isLargeJog(method) {
		jogBound = s.cfg.JogLargeDeg
	}

	axis := movetable.AxisP
	if isThetaJog(method) {
		axis = movetable.AxisT
	}

	start := s.StartPosInt[posid]
	var rangeLim calib.Range
	if axis == movetable.AxisT {
		rangeLim = cal.TargetableRangeT
	} else {
		rangeLim = cal.TargetableRangeP
	}
	direction := jogDirection(method)
	startVal := start.T
	if axis == movetable.AxisP {
		startVal = start.P
	}
	jog := rangeLimitedJog(jogBound, direction, startVal, rangeLim)
	if jog == 0 {
		return nil, nil
	}

	jogTime := jogDuration(axis, jog)
	out := make(map[string]*movetable.Table)

	if isRepel(method) && neighborTable != nil {
		neighborCal, ok := s.inputs.Store.Get(sweep.NeighborID)
		if !ok {
			return nil, nil
		}
		neighborStart := s.StartPosInt[sweep.NeighborID]
		neighborJog := rangeLimitedJog(jogBound, -direction, neighborStart.T, neighborCal.TargetableRangeT)
		neighborJogTime := jogDuration(movetable.AxisT, neighborJog)

		primaryClone := table.Clone()
		neighborClone := neighborTable.Clone()

		diff := neighborJogTime - jogTime
		waitForNeighbor := 0.0
		waitForPrimary := 0.0
		if diff > 0 {
			waitForNeighbor = diff
		} else {
			waitForPrimary = -diff
		}
		clearance := neighborClearanceTime(neighborTable, sweep.CollisionTimeSec) +
			float64(s.cfg.ClearanceMarginTimesteps)*s.cfg.TimestepSec

		if err := insertJogAndUndo(primaryClone, movetable.AxisT, jog, waitForNeighbor+clearance); err != nil {
			return nil, err
		}
		if err := insertJogAndUndo(neighborClone, movetable.AxisT, neighborJog, waitForPrimary); err != nil {
			return nil, err
		}
		out[posid] = primaryClone
		out[sweep.NeighborID] = neighborClone
		return out, nil
	}

	clone := table.Clone()
	clearance := 0.0
	if neighborTable != nil {
		clearance = neighborClearanceTime(neighborTable, sweep.CollisionTimeSec) +
			float64(s.cfg.ClearanceMarginTimesteps)*s.cfg.TimestepSec
	}
	if err := insertJogAndUndo(clone, axis, jog, clearance); err != nil {
		return nil, err
	}
	out[posid] = clone

	if neighborTable != nil {
		neighborClone := neighborTable.Clone()
		if err := neighborClone.InsertRow(0); err != nil {
			return nil, err
		}
		if err := neighborClone.SetPrepause(0, jogTime); err != nil {
			return nil, err
		}
		out[sweep.NeighborID] = neighborClone
	}
	return out, nil
}

// insertJogAndUndo prepends two rows to table: a jog of jogDeg on axis, with
// postpauseSec after it, followed by the equal-and-opposite return jog.
func insertJogAndUndo(table *movetable.Table, axis movetable.Axis, jogDeg, postpauseSec float64) error {
	if err := table.InsertRow(0); err != nil {
		return err
	}
	if err := table.InsertRow(1); err != nil {
		return err
	}
	if err := table.SetMove(0, axis, jogDeg); err != nil {
		return err
	}
	if err := table.SetPostpause(0, postpauseSec); err != nil {
		return err
	}
	return table.SetMove(1, axis, -jogDeg)
}

// jogDuration measures a jog's execution time by probing the table timing
// model with a throwaway one-row table, rather than duplicating the
// row-time formula here. The probe uses a zero-value calibration and
// DefaultMotorParams, not the positioner's own motor parameters, so the
// result equals a stage table's row time only when that table also uses the
// default motor parameters.
func jogDuration(axis movetable.Axis, jogDeg float64) float64 {
	scratch := movetable.New("", calib.Calibration{}, movetable.DefaultMotorParams())
	row := movetable.Row{}
	if axis == movetable.AxisT {
		row.DeltaT = jogDeg
	} else {
		row.DeltaP = jogDeg
	}
	scratch.Rows = []movetable.Row{row}
	return scratch.RowTime(0)
}

// rangeLimitedJog returns a jog distance (final-start) of at most |nominal|
// in direction (+1 ccw, -1 cw) from start, clipped so it never leaves r.
func rangeLimitedJog(nominal, direction, start float64, r calib.Range) float64 {
	if direction >= 0 {
		limited := start + nominal
		if limited > r.Max {
			limited = r.Max
		}
		return limited - start
	}
	limited := start - nominal
	if limited < r.Min {
		limited = r.Min
	}
	return limited - start
}

func isLargeJog(method string) bool { return strings.HasSuffix(method, "_B") }
func isThetaJog(method string) bool {
	return !(strings.HasPrefix(method, "extend") || strings.HasPrefix(method, "retract"))
}
func isRepel(method string) bool { return strings.HasPrefix(method, "repel") }

func jogDirection(method string) float64 {
	switch {
	case strings.HasPrefix(method, "retract"):
		return 1
	case strings.HasPrefix(method, "extend"):
		return -1
	case strings.Contains(method, "ccw"):
		return 1
	default:
		return -1
	}
}
