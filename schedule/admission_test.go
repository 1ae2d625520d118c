package schedule

import (
	"errors"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/calib/memstore"
	"go.viam.com/fpp/collision"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/spatialmath"
)

func testCal(posid string, offsetX, offsetY float64) calib.Calibration {
	return calib.Calibration{
		PosID:            posid,
		LengthR1:         3,
		LengthR2:         3,
		GearCalibT:       1,
		GearCalibP:       1,
		OffsetX:          offsetX,
		OffsetY:          offsetY,
		PhysicalRangeT:   calib.Range{Min: -200, Max: 200},
		PhysicalRangeP:   calib.Range{Min: -20, Max: 200},
		TargetableRangeT: calib.Range{Min: -180, Max: 180},
		TargetableRangeP: calib.Range{Min: 0, Max: 180},
		CtrlEnabled:      true,
	}
}

func squareKeepout(halfSide float64) spatialmath.Polygon {
	return spatialmath.Polygon{Points: []spatialmath.Vector2{
		{X: -halfSide, Y: -halfSide}, {X: halfSide, Y: -halfSide},
		{X: halfSide, Y: halfSide}, {X: -halfSide, Y: halfSide},
	}}
}

func testInputs(store calib.Store, graph *collision.NeighborGraph, geo map[string]collision.Geometry, fixed map[string]spatialmath.Polygon) PositionerInputs {
	return PositionerInputs{
		Store:      store,
		Graph:      graph,
		Geometry:   geo,
		FixedPolys: fixed,
	}
}

func TestRequestTargetAdmitsDirectPosIntTP(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {T: 0, P: 0}})

	admitted, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 45, V: 120})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, admitted.TargetPosInt, test.ShouldResemble, kinematics.TP{T: 45, P: 120})
}

func TestRequestTargetRejectsDisabled(t *testing.T) {
	store := memstore.New()
	disabled := testCal("A", 0, 0)
	disabled.CtrlEnabled = false
	test.That(t, store.Put(disabled), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}})

	_, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 10, V: 10})
	test.That(t, errors.Is(err, ErrDisabled), test.ShouldBeTrue)
}

func TestRequestTargetRejectsAlreadyRequested(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}})

	_, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 10, V: 10})
	test.That(t, err, test.ShouldBeNil)

	_, err = admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 20, V: 20})
	test.That(t, errors.Is(err, ErrAlreadyRequested), test.ShouldBeTrue)
}

func TestRequestTargetRejectsUnreachable(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)

	inputs := testInputs(store, &collision.NeighborGraph{}, nil, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}})

	// Annulus is [0,6]; 100 is far outside it.
	_, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosXY, U: 100, V: 0})
	test.That(t, errors.Is(err, ErrUnreachable), test.ShouldBeTrue)
}

func TestRequestTargetRejectsNeighborInterference(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)
	test.That(t, store.Put(testCal("B", 4, 0)), test.ShouldBeNil)

	graph := &collision.NeighborGraph{
		PosNeighbors: map[string][]string{"A": {"B"}, "B": {"A"}},
	}
	geo := map[string]collision.Geometry{
		"A": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
		"B": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
	}
	inputs := testInputs(store, graph, geo, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}, "B": {}})

	_, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 0, V: 0})
	test.That(t, err, test.ShouldBeNil)

	// B's arm swept to theta=180 overlaps A's body at the shared boundary.
	_, err = admitter.RequestTarget(Request{PosID: "B", Command: CmdPosIntTP, U: 180, V: 0})
	test.That(t, errors.Is(err, ErrNeighborTargetInterference), test.ShouldBeTrue)
}

func TestRequestTargetNeighborInterferenceCheckedAcrossMultipleNeighbors(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)
	test.That(t, store.Put(testCal("B", 40, 0)), test.ShouldBeNil)
	test.That(t, store.Put(testCal("C", 4, 0)), test.ShouldBeNil)

	graph := &collision.NeighborGraph{
		// C's neighbor list puts the non-colliding positioner (B) first and
		// the colliding one (A) second, so a test that only checked the
		// first pair in the batch would wrongly admit C.
		PosNeighbors: map[string][]string{"C": {"B", "A"}},
	}
	geo := map[string]collision.Geometry{
		"A": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
		"B": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
		"C": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
	}
	inputs := testInputs(store, graph, geo, nil)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}, "B": {}, "C": {}})

	// B is far away and never collides with anything.
	_, err := admitter.RequestTarget(Request{PosID: "B", Command: CmdPosIntTP, U: 0, V: 0})
	test.That(t, err, test.ShouldBeNil)

	_, err = admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 0, V: 0})
	test.That(t, err, test.ShouldBeNil)

	// C's neighbor batch is checked in one ParallelSpatialCheck call covering
	// both B and A; the collision against A (second in the batch) must still
	// be found and reported.
	_, err = admitter.RequestTarget(Request{PosID: "C", Command: CmdPosIntTP, U: 180, V: 0})
	test.That(t, errors.Is(err, ErrNeighborTargetInterference), test.ShouldBeTrue)
}

func TestRequestTargetRejectsOutOfBounds(t *testing.T) {
	store := memstore.New()
	test.That(t, store.Put(testCal("A", 0, 0)), test.ShouldBeNil)

	graph := &collision.NeighborGraph{
		FixedNeighbors: map[string][]string{"A": {"PTL"}},
	}
	geo := map[string]collision.Geometry{
		"A": {KeepoutT: squareKeepout(2), KeepoutP: squareKeepout(2)},
	}
	fixed := map[string]spatialmath.Polygon{
		"PTL": {Points: []spatialmath.Vector2{
			{X: 0, Y: 3}, {X: 10, Y: 3}, {X: 10, Y: 10}, {X: 0, Y: 10},
		}},
	}
	inputs := testInputs(store, graph, geo, fixed)
	admitter := NewAdmitter(inputs, map[string]kinematics.TP{"A": {}})

	// theta=90 swings the arm keepout straight up into the fixed boundary.
	_, err := admitter.RequestTarget(Request{PosID: "A", Command: CmdPosIntTP, U: 90, V: 0})
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
}
