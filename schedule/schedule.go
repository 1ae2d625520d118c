package schedule

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/movetable"
)

// Schedule gathers a batch of target requests for one petal, admits the
// admissible ones, and plans either a direct path or the three-stage
// retract/rotate/extend anti-collision plan of spec §4.5, producing one
// merged move table per admitted (or stay-in-place) positioner.
type Schedule struct {
	cfg    Config
	inputs PositionerInputs
	motors map[string]movetable.MotorParams

	admitter *Admitter
	current  map[string]kinematics.TP

	rawTables map[string]*movetable.Table
	rawStart  map[string]kinematics.TP
}

// NewSchedule returns an empty Schedule. current supplies every known
// positioner's starting posintTP, enabled or not — it is both the
// Admitter's starting-position lookup and the source of "current position"
// for enabled-but-unrequested positioners injected as stay-in-place
// requests during three-stage planning.
func NewSchedule(cfg Config, inputs PositionerInputs, motors map[string]movetable.MotorParams, current map[string]kinematics.TP) *Schedule {
	return &Schedule{
		cfg:      cfg,
		inputs:   inputs,
		motors:   motors,
		admitter: NewAdmitter(inputs, current),
		current:  current,
	}
}

// RequestTarget validates and admits req, spec §4.5's request_target.
func (s *Schedule) RequestTarget(req Request) (Admitted, error) {
	return s.admitter.RequestTarget(req)
}

// AddTable injects a raw move table for posid, bypassing anti-collision
// planning entirely for this positioner — spec §4.5's add_table. Presence
// of any raw table disables the anti-collision pass for the whole schedule.
func (s *Schedule) AddTable(posid string, table *movetable.Table, start kinematics.TP) {
	if s.rawTables == nil {
		s.rawTables = make(map[string]*movetable.Table)
		s.rawStart = make(map[string]kinematics.TP)
	}
	if existing, ok := s.rawTables[posid]; ok {
		existing.Extend(table)
		return
	}
	s.rawTables[posid] = table
	s.rawStart[posid] = start
}

// hasRawTables reports whether any table was injected via AddTable.
func (s *Schedule) hasRawTables() bool { return len(s.rawTables) > 0 }

// ScheduleMoves performs planning, spec §4.5's schedule_moves. It returns
// the merged per-positioner move table and, for any positioner whose
// collisions could not be fully resolved (mode == ModeAdjust/ModeFreeze
// with tactics exhausted), a per-positioner diagnostic error.
//
// Presence of any table added via AddTable disables anti-collision for the
// entire schedule regardless of the requested mode, per §4.5.
func (s *Schedule) ScheduleMoves(mode AnticollisionMode) (map[string]*movetable.Table, map[string]error) {
	if s.hasRawTables() {
		mode = ModeNone
	}
	if mode == ModeNone {
		return s.planDirect()
	}
	return s.planThreeStage(mode)
}

// planDirect builds a single stage moving every admitted positioner
// directly from start to target with no collision detection, then overlays
// any raw tables added via AddTable — spec §4.5 "Planning without
// anticollision" and "add_table".
func (s *Schedule) planDirect() (map[string]*movetable.Table, map[string]error) {
	stage := NewStage("direct", s.cfg, s.inputs, s.motors, nil)

	start := make(map[string]kinematics.TP)
	final := make(map[string]kinematics.TP)
	for _, a := range s.admitter.Admitted() {
		start[a.PosID] = a.StartPosInt
		final[a.PosID] = a.TargetPosInt
	}
	if len(start) > 0 {
		if err := stage.InitializeMoveTables(start, deltaMap(start, final)); err != nil {
			return nil, map[string]error{"*": errors.Wrap(err, "plan_direct")}
		}
	}

	ids := make([]string, 0, len(s.rawTables))
	for id := range s.rawTables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		stage.AddTable(id, s.rawTables[id], s.rawStart[id])
	}

	s.attachTraceability(stage.Tables)
	return stage.Tables, map[string]error{}
}

// planThreeStage builds and runs the retract/rotate/extend plan of spec
// §4.5, then merges the three stages into one table per positioner.
func (s *Schedule) planThreeStage(mode AnticollisionMode) (map[string]*movetable.Table, map[string]error) {
	admitted := s.admitter.Admitted()
	admittedIDs := make(map[string]bool, len(admitted))
	start := make(map[string]kinematics.TP, len(admitted))
	target := make(map[string]kinematics.TP, len(admitted))
	for _, a := range admitted {
		admittedIDs[a.PosID] = true
		start[a.PosID] = a.StartPosInt
		target[a.PosID] = a.TargetPosInt
	}

	// Inject a stay-in-place request for every enabled-but-unrequested
	// positioner so the collider can nudge it aside and restore it — spec
	// §4.5 "For any enabled but unrequested positioner...".
	ids := make([]string, 0, len(s.current))
	for posid := range s.current {
		ids = append(ids, posid)
	}
	sort.Strings(ids)
	for _, posid := range ids {
		if admittedIDs[posid] {
			continue
		}
		cal, ok := s.inputs.Store.Get(posid)
		if !ok || !cal.CtrlEnabled {
			continue
		}
		cur := s.current[posid]
		start[posid] = cur
		target[posid] = cur
	}

	safePhi := func(posid string) float64 {
		cal, ok := s.inputs.Store.Get(posid)
		phi := s.cfg.SafePhiDeg
		if ok && phi < cal.TargetableRangeP.Min {
			phi = cal.TargetableRangeP.Min
		}
		if ok && phi > cal.TargetableRangeP.Max {
			phi = cal.TargetableRangeP.Max
		}
		return phi
	}

	// Only positioners with an actual admitted target retract/rotate through
	// safe phi; stay-in-place injections hold their own current position as
	// the nominal target in every stage (the adjust-path loop may still nudge
	// them aside and restore them if a neighbor's motion requires it).
	retractFinal := make(map[string]kinematics.TP, len(start))
	rotateFinal := make(map[string]kinematics.TP, len(start))
	for posid, st := range start {
		if !admittedIDs[posid] {
			retractFinal[posid] = target[posid]
			rotateFinal[posid] = target[posid]
			continue
		}
		phi := safePhi(posid)
		safe := st.P
		if phi > safe {
			safe = phi
		}
		retractFinal[posid] = kinematics.TP{T: st.T, P: safe}
		rotateFinal[posid] = kinematics.TP{T: target[posid].T, P: safe}
	}

	diagnostics := make(map[string]error)

	retractStage, retractEnd, err := s.runStage("retract", start, retractFinal, mode, diagnostics)
	if err != nil {
		return nil, map[string]error{"*": err}
	}
	rotateStage, rotateEnd, err := s.runStage("rotate", retractEnd, rotateFinal, mode, diagnostics)
	if err != nil {
		return nil, map[string]error{"*": err}
	}
	extendStage, _, err := s.runStage("extend", rotateEnd, target, mode, diagnostics)
	if err != nil {
		return nil, map[string]error{"*": err}
	}

	merged, err := mergeStages(retractStage, rotateStage, extendStage)
	if err != nil {
		return nil, map[string]error{"*": err}
	}
	s.attachTraceability(merged)
	return merged, diagnostics
}

// attachTraceability stamps each admitted request's log note and command
// string onto its merged table — spec §4.5 "Attach the original log note
// and command string for traceability."
func (s *Schedule) attachTraceability(tables map[string]*movetable.Table) {
	for _, a := range s.admitter.Admitted() {
		if t, ok := tables[a.PosID]; ok {
			t.LogNote = a.LogNote
			t.Command = commandName(a.Command)
		}
	}
}

// runStage builds one stage from start to final, anneals it, runs the
// find/adjust loop appropriate to mode, and returns the stage plus the
// actually-achieved end position per positioner (which may differ from
// final when a positioner was frozen).
func (s *Schedule) runStage(
	name string,
	start, final map[string]kinematics.TP,
	mode AnticollisionMode,
	diagnostics map[string]error,
) (*Stage, map[string]kinematics.TP, error) {
	stage := NewStage(name, s.cfg, s.inputs, s.motors, collision.NewSweepCache())
	if err := stage.InitializeMoveTables(start, deltaMap(start, final)); err != nil {
		return nil, nil, errors.Wrapf(err, "stage %s", name)
	}
	if _, err := stage.AnnealTables(s.cfg.AnnealTimeSec); err != nil {
		return nil, nil, errors.Wrapf(err, "stage %s: anneal", name)
	}

	colliding, all, err := stage.FindCollisions(stage.Tables)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stage %s: find_collisions", name)
	}
	stage.ApplyCollisionResults(colliding, all)

	for posid, diagErr := range s.resolveCollisions(stage, mode) {
		diagnostics[posid] = diagErr
	}

	end := make(map[string]kinematics.TP, len(stage.Tables))
	for posid, table := range stage.Tables {
		end[posid] = table.FinalTP(stage.StartPosInt[posid])
	}
	return stage, end, nil
}

// resolveCollisions drives stage's adjust-path loop to a fixpoint according
// to mode, escalating to freezing only once the non-freeze tactics are
// exhausted — spec §4.4/§4.5. It returns a per-positioner UnsolvableCollision
// diagnostic for anything still colliding when the mode doesn't guarantee
// resolution.
func (s *Schedule) resolveCollisions(stage *Stage, mode AnticollisionMode) map[string]error {
	diagnostics := make(map[string]error)
	if mode == ModeNone {
		return diagnostics
	}

	drainLadder := func(fm FreezeMode) {
		for iter := 0; iter < len(stage.Tables)+1; iter++ {
			ids := collidingIDs(stage)
			if len(ids) == 0 {
				return
			}
			progressed := false
			for _, id := range ids {
				if !stage.Colliding[id] {
					continue
				}
				adjusted, err := stage.AdjustPath(id, fm)
				if err != nil {
					diagnostics[id] = err
					continue
				}
				if len(adjusted) > 0 {
					progressed = true
				}
			}
			if !progressed {
				return
			}
		}
	}

	drainLadder(FreezeOff)

	switch mode {
	case ModeAdjust:
		// No freezing permitted; leftover collisions are hard failures.
	case ModeFreeze:
		drainLadder(FreezeOn)
	case ModeForcedRecursive:
		drainLadder(FreezeForcedRecursive)
	}

	for id := range stage.Colliding {
		if stage.Colliding[id] {
			diagnostics[id] = errors.Wrapf(ErrUnsolvableCollision, "posid %s", id)
			s.cfg.recorder().UnsolvableCollision()
		}
	}
	return diagnostics
}

func collidingIDs(stage *Stage) []string {
	ids := make([]string, 0, len(stage.Colliding))
	for id, colliding := range stage.Colliding {
		if colliding {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// deltaMap returns, for every key in final, final[k]-start[k] component-wise
// — the delta InitializeMoveTables expects, which it re-wraps and re-derives
// the shortest admissible rotation from (see stage.go's InitializeMoveTables
// doc comment).
func deltaMap(start, final map[string]kinematics.TP) map[string]kinematics.TP {
	out := make(map[string]kinematics.TP, len(final))
	for posid, f := range final {
		st := start[posid]
		out[posid] = kinematics.TP{T: f.T - st.T, P: f.P - st.P}
	}
	return out
}

// commandName renders a Command the way it appears in the outbound
// traceability fields — the same verb names spec §6 uses in the inbound
// request dictionary.
func commandName(cmd Command) string {
	switch cmd {
	case CmdQS:
		return "QS"
	case CmdDQdS:
		return "dQdS"
	case CmdObsXY:
		return "obsXY"
	case CmdPosXY:
		return "posXY"
	case CmdPtlXY:
		return "ptlXY"
	case CmdDXdY:
		return "dXdY"
	case CmdObsTP:
		return "obsTP"
	case CmdPosIntTP:
		return "posintTP"
	case CmdPosLocTP:
		return "poslocTP"
	case CmdDTdP:
		return "dTdP"
	default:
		return "unknown"
	}
}
