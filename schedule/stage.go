package schedule

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/movetable"
)

// Stage encapsulates one leg of positioner motion — a direct move, or one
// of the intermediate retract/rotate/extend legs of §4.5's three-stage
// plan. Grounded on the original scheduler's stage object: a stage owns
// its own move tables, sweeps, and colliding set, and is planned
// independently of its sibling stages.
type Stage struct {
	Name string

	cfg    Config
	inputs PositionerInputs
	motors map[string]movetable.MotorParams
	cache  *collision.SweepCache

	StartPosInt map[string]kinematics.TP
	Tables      map[string]*movetable.Table
	Sweeps      map[string]collision.Sweep
	Colliding   map[string]bool
	frozen      map[string]bool
}

// NewStage returns an empty stage named name.
func NewStage(name string, cfg Config, inputs PositionerInputs, motors map[string]movetable.MotorParams, cache *collision.SweepCache) *Stage {
	return &Stage{
		Name:        name,
		cfg:         cfg,
		inputs:      inputs,
		motors:      motors,
		cache:       cache,
		StartPosInt: make(map[string]kinematics.TP),
		Tables:      make(map[string]*movetable.Table),
		Sweeps:      make(map[string]collision.Sweep),
		Colliding:   make(map[string]bool),
		frozen:      make(map[string]bool),
	}
}

// InitializeMoveTables generates a one-row move table for each positioner in
// start, travelling the delta given in dtdp — spec §4.4's
// initialize_move_tables. dtdp is re-derived through DeltaPosIntTP so the
// committed delta is always the shortest admissible rotation, never a raw
// vector difference.
func (s *Stage) InitializeMoveTables(start map[string]kinematics.TP, dtdp map[string]kinematics.TP) error {
	for posid, startTP := range start {
		cal, ok := s.inputs.Store.Get(posid)
		if !ok {
			return errors.Errorf("initialize_move_tables: unknown posid %s", posid)
		}
		d := dtdp[posid]
		rawFinal := kinematics.TP{T: startTP.T + d.T, P: startTP.P + d.P}
		wrappedT, ok := kinematics.WrapToRange(rawFinal.T, cal.TargetableRangeT)
		if !ok {
			return errors.Errorf("initialize_move_tables: posid %s theta %.3f has no equivalent in targetable range", posid, rawFinal.T)
		}
		wrappedP, ok := kinematics.WrapToRange(rawFinal.P, cal.TargetableRangeP)
		if !ok {
			return errors.Errorf("initialize_move_tables: posid %s phi %.3f has no equivalent in targetable range", posid, rawFinal.P)
		}
		wrappedFinal := kinematics.TP{T: wrappedT, P: wrappedP}

		trueDelta, err := kinematics.DeltaPosIntTP(wrappedFinal, startTP, kinematics.WrapTargetable, false, cal.TargetableRangeT, cal.TargetableRangeP)
		if err != nil {
			return errors.Wrapf(err, "initialize_move_tables: posid %s", posid)
		}

		table := movetable.New(posid, cal, s.motors[posid])
		if err := table.InsertRow(0); err != nil {
			return err
		}
		if err := table.SetMove(0, movetable.AxisT, trueDelta.T); err != nil {
			return err
		}
		if err := table.SetMove(0, movetable.AxisP, trueDelta.P); err != nil {
			return err
		}
		s.Tables[posid] = table
		s.StartPosInt[posid] = startTP
	}
	return nil
}

// AddTable injects move_table directly into the stage, extending an
// existing table for the same positioner if one is already present — spec
// §4.5's add_table. The caller is responsible for noting that any stage
// receiving an injected table has anti-collision disabled for the whole
// schedule.
func (s *Stage) AddTable(posid string, table *movetable.Table, start kinematics.TP) {
	if existing, ok := s.Tables[posid]; ok {
		existing.Extend(table)
		return
	}
	s.Tables[posid] = table
	if _, ok := s.StartPosInt[posid]; !ok {
		s.StartPosInt[posid] = start
	}
}

// poslocStart converts a positioner's posintTP start into the poslocTP used
// by the collider: keep-out geometry physically rotates with the observed
// shaft angle, not the internal commanded angle. Gear-ratio corrections are
// small (near-unity) calibration terms, so the same row deltas are reused
// in both spaces rather than maintaining two parallel tables.
func poslocStart(cal calib.Calibration, posIntStart kinematics.TP) kinematics.TP {
	return kinematics.PosIntToPosLoc(cal, posIntStart)
}

// FindCollisions spacetime-checks every table in tables against its
// neighbors (drawn first from tables, falling back to the stage's existing
// tables for an unmoving neighbor) and against fixed boundaries — spec
// §4.3/§4.4's find_collisions. It returns only the first collision in time
// per positioner when several are found within one call.
func (s *Stage) FindCollisions(tables map[string]*movetable.Table) (map[string]collision.Sweep, map[string]collision.Sweep, error) {
	all := make(map[string]collision.Sweep)
	firstColliding := make(map[string]collision.Sweep)
	checked := make(map[string]map[string]bool)

	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	considerCollision := func(sw collision.Sweep) {
		if sw.Clean() {
			return
		}
		s.cfg.recorder().CollisionFound(string(sw.Case))
		if existing, ok := firstColliding[sw.PosID]; !ok || sw.CollisionTimeSec < existing.CollisionTimeSec {
			firstColliding[sw.PosID] = sw
		}
	}

	for _, posid := range ids {
		tableA := tables[posid]
		calA, ok := s.inputs.Store.Get(posid)
		if !ok {
			continue
		}
		geoA := s.inputs.Geometry[posid]
		startA := poslocStart(calA, s.StartPosInt[posid])

		if checked[posid] == nil {
			checked[posid] = make(map[string]bool)
		}
		for _, neighbor := range s.inputs.Graph.PosNeighbors[posid] {
			if checked[posid][neighbor] {
				continue
			}
			tableB := tables[neighbor]
			if tableB == nil {
				tableB = s.Tables[neighbor]
			}
			calB, ok := s.inputs.Store.Get(neighbor)
			if tableB == nil || !ok {
				continue
			}
			geoB := s.inputs.Geometry[neighbor]
			startB := poslocStart(calB, s.StartPosInt[neighbor])

			sweepA, sweepB := SpacetimeCheckCached(s.cache, posid, tableA, startA, geoA, neighbor, tableB, startB, geoB, s.cfg.TimestepSec)
			all[posid] = sweepA
			all[neighbor] = sweepB
			considerCollision(sweepA)
			considerCollision(sweepB)

			if checked[neighbor] == nil {
				checked[neighbor] = make(map[string]bool)
			}
			checked[posid][neighbor] = true
			checked[neighbor][posid] = true
		}

		for _, tag := range s.inputs.Graph.FixedNeighbors[posid] {
			fixedPoly, ok := s.inputs.FixedPolys[tag]
			if !ok {
				continue
			}
			fixedCase := collision.CasePTL
			if tag == "GFA" {
				fixedCase = collision.CaseGFA
			}
			sweep := collision.FixedSpacetimeCheck(posid, tableA, startA, geoA, tag, fixedPoly, fixedCase, s.cfg.TimestepSec)
			all[posid] = sweep
			considerCollision(sweep)
		}
	}

	// A positioner checked against several neighbors keeps its earliest
	// collision in all, not whichever check happened to run last.
	for posid, sw := range firstColliding {
		all[posid] = sw
	}
	return firstColliding, all, nil
}

// SpacetimeCheckCached wraps collision.SpacetimeCheck with TableDigest-keyed
// memoization so re-checking a pair after an unrelated adjustment doesn't
// re-sweep a table that hasn't changed — spec §4.3 performance contract.
func SpacetimeCheckCached(
	cache *collision.SweepCache,
	posA string, tableA *movetable.Table, startA kinematics.TP, geoA collision.Geometry,
	posB string, tableB *movetable.Table, startB kinematics.TP, geoB collision.Geometry,
	timestepSec float64,
) (collision.Sweep, collision.Sweep) {
	if cache == nil {
		return collision.SpacetimeCheck(posA, tableA, startA, geoA, posB, tableB, startB, geoB, timestepSec)
	}
	digestA := collision.TableDigest(tableA, startA)
	digestB := collision.TableDigest(tableB, startB)
	pairDigest := digestA + "|" + digestB
	if sweepA, ok := cache.Get(posA, pairDigest); ok {
		if sweepB, ok := cache.Get(posB, pairDigest); ok {
			return sweepA, sweepB
		}
	}
	sweepA, sweepB := collision.SpacetimeCheck(posA, tableA, startA, geoA, posB, tableB, startB, geoB, timestepSec)
	cache.Put(posA, pairDigest, sweepA)
	cache.Put(posB, pairDigest, sweepB)
	return sweepA, sweepB
}

// ApplyCollisionResults merges freshly computed sweeps into the stage's
// running Sweeps/Colliding state — spec §4.4's store_collision_finding_results.
func (s *Stage) ApplyCollisionResults(colliding, all map[string]collision.Sweep) {
	for posid, sweep := range all {
		s.Sweeps[posid] = sweep
	}
	for posid := range all {
		_, stillColliding := colliding[posid]
		s.Colliding[posid] = stillColliding
		if !stillColliding {
			delete(s.Colliding, posid)
		}
	}
}

// EqualizeTableTimes appends an equalizing postpause to every table shorter
// than the stage's longest, so all positioners reach the stage boundary
// together — spec §4.5 "Stage merging".
func (s *Stage) EqualizeTableTimes() (float64, error) {
	if len(s.Tables) == 0 {
		return 0, nil
	}
	maxTime := 0.0
	for _, table := range s.Tables {
		if t := table.TotalTime(); t > maxTime {
			maxTime = t
		}
	}
	for _, table := range s.Tables {
		pause := maxTime - table.TotalTime()
		if pause <= 1e-9 {
			continue
		}
		idx := len(table.Rows)
		if err := table.InsertRow(idx); err != nil {
			return 0, err
		}
		if err := table.SetPostpause(idx, pause); err != nil {
			return 0, err
		}
	}
	return maxTime, nil
}
