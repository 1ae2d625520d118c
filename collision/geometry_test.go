package collision

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/spatialmath"
)

func squareGeo(halfSide float64) Geometry {
	return Geometry{
		KeepoutT: spatialmath.Polygon{Points: []spatialmath.Vector2{
			{X: -halfSide, Y: -halfSide}, {X: halfSide, Y: -halfSide},
			{X: halfSide, Y: halfSide}, {X: -halfSide, Y: halfSide},
		}},
		KeepoutP: spatialmath.Polygon{Points: []spatialmath.Vector2{
			{X: -halfSide, Y: -halfSide}, {X: halfSide, Y: -halfSide},
			{X: halfSide, Y: halfSide}, {X: -halfSide, Y: halfSide},
		}},
		FerruleRadius: 0.1,
	}
}

func TestPlaceBodyTranslatesByCenter(t *testing.T) {
	cal := calib.Calibration{OffsetX: 10, OffsetY: 20, LengthR1: 3, LengthR2: 3}
	geo := squareGeo(1)
	p := Place(cal, geo, kinematics.TP{T: 0, P: 0})
	test.That(t, p.Body.Points[0].X, test.ShouldAlmostEqual, 9.0)
	test.That(t, p.Body.Points[0].Y, test.ShouldAlmostEqual, 19.0)
}

func TestSpatialCheckDetectsPhiPhiCollision(t *testing.T) {
	calA := calib.Calibration{OffsetX: 0, OffsetY: 0, LengthR1: 3, LengthR2: 3}
	calB := calib.Calibration{OffsetX: 4, OffsetY: 0, LengthR1: 3, LengthR2: 3}
	geo := squareGeo(2)

	// Both arms pointing at each other along the shared x-axis will overlap.
	pA := Place(calA, geo, kinematics.TP{T: 0, P: 0})
	pB := Place(calB, geo, kinematics.TP{T: 180, P: 0})

	c, collided := SpatialCheck(pA, pB)
	test.That(t, collided, test.ShouldBeTrue)
	test.That(t, c, test.ShouldEqual, CasePhiPhi)
}

func TestSpatialCheckNoCollisionWhenFar(t *testing.T) {
	calA := calib.Calibration{OffsetX: 0, OffsetY: 0, LengthR1: 3, LengthR2: 3}
	calB := calib.Calibration{OffsetX: 100, OffsetY: 100, LengthR1: 3, LengthR2: 3}
	geo := squareGeo(1)

	pA := Place(calA, geo, kinematics.TP{T: 0, P: 0})
	pB := Place(calB, geo, kinematics.TP{T: 0, P: 0})
	_, collided := SpatialCheck(pA, pB)
	test.That(t, collided, test.ShouldBeFalse)
}

func TestFixedCheck(t *testing.T) {
	cal := calib.Calibration{OffsetX: 0, OffsetY: 0, LengthR1: 3, LengthR2: 3}
	geo := squareGeo(1)
	p := Place(cal, geo, kinematics.TP{T: 0, P: 0})

	overlapping := spatialmath.Polygon{Points: []spatialmath.Vector2{
		{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5},
	}}
	test.That(t, FixedCheck(p, overlapping), test.ShouldBeTrue)

	distant := spatialmath.Polygon{Points: []spatialmath.Vector2{
		{X: 500, Y: 500}, {X: 501, Y: 500}, {X: 501, Y: 501}, {X: 500, Y: 501},
	}}
	test.That(t, FixedCheck(p, distant), test.ShouldBeFalse)
}
