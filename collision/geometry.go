// Package collision implements the neighbor graph, spatial collision check,
// and spacetime sweep of spec §3.4/§4.3: sweeping two positioners' keep-out
// polygons through time to find the first colliding sample, and classifying
// the collision case.
package collision

import (
	"math"

	"go.viam.com/fpp/calib"
	"go.viam.com/fpp/kinematics"
	"go.viam.com/fpp/spatialmath"
)

// Geometry holds one positioner's keep-out polygons in its local frame
// (undisplaced, i.e. before the theta/phi rotation and center translation of
// spec §3.4), plus the ferrule radius used for the endpoint disk test.
type Geometry struct {
	KeepoutT      spatialmath.Polygon // central body outline, rotates with theta
	KeepoutP      spatialmath.Polygon // phi arm outline, rotates with theta then phi
	FerruleRadius float64             // mm
}

// Placement is the set of placed shapes for one positioner at one instant.
type Placement struct {
	Body    spatialmath.Polygon
	Arm     spatialmath.Polygon
	Ferrule spatialmath.Disk
}

// Place computes the placed body polygon, arm polygon, and ferrule disk for
// a positioner with the given calibration and keep-out geometry, at shaft
// angles tp, in the petal-local (ptlXY) frame.
func Place(cal calib.Calibration, geo Geometry, tp kinematics.TP) Placement {
	thetaRad := deg2rad(tp.T)
	phiRad := deg2rad(tp.P)
	center := spatialmath.Vector2{X: cal.OffsetX, Y: cal.OffsetY}

	bodyTransform := spatialmath.RigidTransform2D{ThetaRad: thetaRad, Tx: center.X, Ty: center.Y}
	body := geo.KeepoutT.Transformed(bodyTransform)

	pivotLocal := spatialmath.Vector2{X: cal.LengthR1, Y: 0}.Rotated(thetaRad)
	armTransform := spatialmath.RigidTransform2D{
		ThetaRad: thetaRad + phiRad,
		Tx:       pivotLocal.X + center.X,
		Ty:       pivotLocal.Y + center.Y,
	}
	arm := geo.KeepoutP.Transformed(armTransform)

	tip := kinematics.PosLocTPToXY(cal, tp)
	tipPtl := kinematics.PosLocXYToPtlXY(cal, tip)

	return Placement{Body: body, Arm: arm, Ferrule: spatialmath.Disk{Center: tipPtl, Radius: geo.FerruleRadius}}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
