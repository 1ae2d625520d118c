package schedule

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/spatialmath"
)

// Admitted is one accepted request, resolved down to both coordinate
// representations the rest of the planner needs: posintTP (what the move
// table ultimately commits to) and poslocTP (what the collider rotates
// keep-out geometry by).
type Admitted struct {
	PosID        string
	Command      Command
	U, V         float64
	LogNote      string
	StartPosInt  kinematics.TP
	TargetPosInt kinematics.TP
	TargetPosLoc kinematics.TP
}

// Admitter tracks one schedule's requests and enforces §4.5's admission
// rules: disabled, duplicate, unreachable, neighbor-target-interference, and
// out-of-bounds all reject before a request ever reaches planning.
type Admitter struct {
	inputs  PositionerInputs
	current map[string]kinematics.TP // posintTP, keyed by posid
	order   []string                 // admission order, for deterministic iteration
	byID    map[string]Admitted
}

// NewAdmitter constructs an Admitter for one schedule's lifetime. current
// supplies each positioner's starting posintTP.
func NewAdmitter(inputs PositionerInputs, current map[string]kinematics.TP) *Admitter {
	return &Admitter{
		inputs:  inputs,
		current: current,
		byID:    make(map[string]Admitted),
	}
}

// Admitted returns the accepted requests in admission order.
func (a *Admitter) Admitted() []Admitted {
	out := make([]Admitted, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}

// Get returns the admitted request for posid, if any.
func (a *Admitter) Get(posid string) (Admitted, bool) {
	r, ok := a.byID[posid]
	return r, ok
}

// RequestTarget validates and admits req, spec §4.5. On any rejection the
// schedule's state for posid is left untouched (no partial admission, no
// deferred cleanup commands survive — there is nothing to discard here since
// rejection happens before any table work begins).
func (a *Admitter) RequestTarget(req Request) (Admitted, error) {
	if _, dup := a.byID[req.PosID]; dup {
		return Admitted{}, errors.Wrapf(ErrAlreadyRequested, "posid %s", req.PosID)
	}

	cal, ok := a.inputs.Store.Get(req.PosID)
	if !ok || !cal.CtrlEnabled {
		return Admitted{}, errors.Wrapf(ErrDisabled, "posid %s", req.PosID)
	}

	start, ok := a.current[req.PosID]
	if !ok {
		return Admitted{}, errors.Wrapf(ErrDisabled, "posid %s: no starting position known", req.PosID)
	}

	targetPosInt, err := commandToPosIntTP(cal, a.inputs.PetalToObs, a.inputs.RadialPoly, req.Command, req.U, req.V, start)
	if err != nil {
		return Admitted{}, errors.Wrapf(ErrUnreachable, "posid %s: %v", req.PosID, err)
	}

	targetPosLoc := kinematics.PosIntToPosLoc(cal, targetPosInt)
	geo, hasGeo := a.inputs.Geometry[req.PosID]
	if hasGeo {
		placement := collision.Place(cal, geo, targetPosLoc)

		// Each already-admitted neighbor's target placement is fixed and
		// independent of the others, so this batch of pair checks is the
		// "independent read-only sub-queries of the collider" spec §5
		// permits running in parallel, unlike the sequential adjust-path
		// loop. ParallelSpatialCheck preserves input order in its results,
		// so the first colliding pair reported below stays deterministic
		// regardless of goroutine scheduling.
		neighborIDs := a.inputs.Graph.PosNeighbors[req.PosID]
		pairs := make([]collision.Pair, 0, len(neighborIDs))
		for _, neighborID := range neighborIDs {
			neighborReq, admitted := a.byID[neighborID]
			if !admitted {
				continue
			}
			neighborCal, ok := a.inputs.Store.Get(neighborID)
			if !ok {
				continue
			}
			neighborGeo, ok := a.inputs.Geometry[neighborID]
			if !ok {
				continue
			}
			neighborPlacement := collision.Place(neighborCal, neighborGeo, neighborReq.TargetPosLoc)
			pairs = append(pairs, collision.Pair{Key: neighborID, A: placement, B: neighborPlacement})
		}
		if len(pairs) > 0 {
			for i, result := range collision.ParallelSpatialCheck(context.Background(), pairs) {
				if result.Collision {
					return Admitted{}, errors.Wrapf(ErrNeighborTargetInterference, "posid %s vs %s", req.PosID, pairs[i].Key)
				}
			}
		}

		for _, tag := range a.inputs.Graph.FixedNeighbors[req.PosID] {
			fixedPoly, ok := a.inputs.FixedPolys[tag]
			if !ok {
				continue
			}
			if collision.FixedCheck(placement, fixedPoly) {
				return Admitted{}, errors.Wrapf(ErrOutOfBounds, "posid %s vs %s", req.PosID, tag)
			}
		}
	}

	admitted := Admitted{
		PosID:        req.PosID,
		Command:      req.Command,
		U:            req.U,
		V:            req.V,
		LogNote:      req.LogNote,
		StartPosInt:  start,
		TargetPosInt: targetPosInt,
		TargetPosLoc: targetPosLoc,
	}
	a.byID[req.PosID] = admitted
	a.order = append(a.order, req.PosID)
	return admitted, nil
}

// commandToPosIntTP resolves a request's (command,u,v) into a target
// posintTP, following the coordinate chain of spec §3.2/§4.1. start is the
// positioner's current posintTP, used as the base for the delta-style
// commands (dQdS, dXdY, dTdP) and as the Newton seed for QS inversion.
//
// obsTP and poslocTP are treated as the same command (the positioner's
// observed/physical shaft angle, what the collider rotates keep-out
// geometry by): the original scheduler this was ported from has only one
// such command ("obsTP"); this port's request dictionary additionally names
// a separate "poslocTP", so both route through the identical conversion.
func commandToPosIntTP(
	cal calib.Calibration,
	petalToObs spatialmath.RigidTransform2D,
	radialPoly kinematics.RadialPolynomial,
	cmd Command,
	u, v float64,
	start kinematics.TP,
) (kinematics.TP, error) {
	posLocXYToPosInt := func(xy spatialmath.Vector2) (kinematics.TP, error) {
		posloc, err := kinematics.PosLocXYToTP(cal, xy, kinematics.WrapTargetable)
		if err != nil {
			return kinematics.TP{}, err
		}
		return kinematics.PosLocToPosInt(cal, posloc), nil
	}
	startPtlXY := func() spatialmath.Vector2 {
		startPosLoc := kinematics.PosIntToPosLoc(cal, start)
		startXY := kinematics.PosLocTPToXY(cal, startPosLoc)
		return kinematics.PosLocXYToPtlXY(cal, startXY)
	}

	switch cmd {
	case CmdPosIntTP:
		return kinematics.TP{T: u, P: v}, nil

	case CmdDTdP:
		return kinematics.TP{T: start.T + u, P: start.P + v}, nil

	case CmdObsTP, CmdPosLocTP:
		// Both route through the positioner's observed/physical shaft angle;
		// see this function's doc comment.
		return kinematics.PosLocToPosInt(cal, kinematics.TP{T: u, P: v}), nil

	case CmdPosXY:
		return posLocXYToPosInt(spatialmath.Vector2{X: u, Y: v})

	case CmdDXdY:
		startPosLoc := kinematics.PosIntToPosLoc(cal, start)
		startXY := kinematics.PosLocTPToXY(cal, startPosLoc)
		return posLocXYToPosInt(spatialmath.Vector2{X: startXY.X + u, Y: startXY.Y + v})

	case CmdPtlXY:
		posloc := kinematics.PtlXYToPosLocXY(cal, spatialmath.Vector2{X: u, Y: v})
		return posLocXYToPosInt(posloc)

	case CmdObsXY:
		ptlxy := kinematics.ObsXYToPtlXY(petalToObs, spatialmath.Vector2{X: u, Y: v})
		posloc := kinematics.PtlXYToPosLocXY(cal, ptlxy)
		return posLocXYToPosInt(posloc)

	case CmdQS:
		ptlxy, err := kinematics.QSToPtlXY(radialPoly, kinematics.QS{QDeg: u, S: v}, startPtlXY().Norm())
		if err != nil {
			return kinematics.TP{}, err
		}
		posloc := kinematics.PtlXYToPosLocXY(cal, ptlxy)
		return posLocXYToPosInt(posloc)

	case CmdDQdS:
		startPtl := startPtlXY()
		startQS := kinematics.PtlXYToQS(radialPoly, startPtl)
		targetQS := kinematics.QS{QDeg: startQS.QDeg + u, S: startQS.S + v}
		ptlxy, err := kinematics.QSToPtlXY(radialPoly, targetQS, startPtl.Norm())
		if err != nil {
			return kinematics.TP{}, err
		}
		posloc := kinematics.PtlXYToPosLocXY(cal, ptlxy)
		return posLocXYToPosInt(posloc)

	default:
		return kinematics.TP{}, errors.Errorf("unrecognized command %v", cmd)
	}
}
