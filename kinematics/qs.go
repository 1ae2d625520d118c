package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"go.viam.com/fpp/spatialmath"
)

// RadialPolynomial is the focal-surface distortion polynomial relating the
// undistorted petal radius R to the sky radius S: S = sum(Coeffs[i] * R^i).
// Coeffs is ordered from the constant term up, per spec §4.1 ("fixed
// 10th-order radial polynomial"); grounded on the R2S/S2R polynomial pair of
// the original PosTransforms implementation.
type RadialPolynomial struct {
	Coeffs []float64
}

// Eval evaluates the polynomial at r using Horner's method.
func (p RadialPolynomial) Eval(r float64) float64 {
	s := 0.0
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		s = s*r + p.Coeffs[i]
	}
	return s
}

// derivative returns dS/dR at r via gonum's central-difference formula; the
// polynomial is supplied as calibration data rather than a fixed analytic
// form, so a numeric derivative is used instead of hand-differentiating it.
func (p RadialPolynomial) derivative(r float64) float64 {
	return fd.Derivative(p.Eval, r, &fd.Settings{Formula: fd.Central})
}

// QS is a sky-plane polar-like coordinate pair: Q is the angular coordinate
// (degrees, atan2(x,y) convention) and S is the sky radius reached from the
// petal radius via the distortion polynomial.
type QS struct {
	QDeg, S float64
}

// PtlXYToQS converts a petal-local point to (Q,S) via the radial polynomial.
func PtlXYToQS(poly RadialPolynomial, ptlxy spatialmath.Vector2) QS {
	r := ptlxy.Norm()
	q := math.Atan2(ptlxy.X, ptlxy.Y)
	return QS{QDeg: rad2deg(q), S: poly.Eval(r)}
}

// QSToPtlXY inverts PtlXYToQS by Newton iteration on S(R)=qs.S, seeded at
// the current petal radius (spec §4.1: "numeric inverse by Newton iteration
// seeded at the current radius").
func QSToPtlXY(poly RadialPolynomial, qs QS, seedR float64) (spatialmath.Vector2, error) {
	r := seedR
	if r <= 0 {
		r = qs.S
	}
	const maxIter = 50
	const tol = 1e-9
	for i := 0; i < maxIter; i++ {
		f := poly.Eval(r) - qs.S
		if math.Abs(f) < tol {
			qRad := deg2rad(qs.QDeg)
			return spatialmath.Vector2{X: r * math.Sin(qRad), Y: r * math.Cos(qRad)}, nil
		}
		df := poly.derivative(r)
		if math.Abs(df) < 1e-15 {
			return spatialmath.Vector2{}, errors.New("QSToPtlXY: derivative vanished, Newton iteration stalled")
		}
		r -= f / df
	}
	return spatialmath.Vector2{}, errors.New("QSToPtlXY: Newton iteration did not converge")
}
