package collision

import "go.viam.com/fpp/spatialmath"

// Case classifies a colliding (or non-colliding) sample, spec §4.3.
type Case string

// Case values.
const (
	CaseNone   Case = "I"
	CasePhiPhi Case = "II"
	CaseIIIA   Case = "IIIA" // A's phi hits B's theta body
	CaseIIIB   Case = "IIIB" // A's theta body hit by B's phi arm
	CaseGFA    Case = "GFA"
	CasePTL    Case = "PTL"
)

// SpatialCheck tests two positioners' placements for collision, returning
// the case and whether any collision was found. Priority when more than one
// geometric overlap exists simultaneously: phi-phi (II) first, then IIIA,
// then IIIB — mirroring the positioner's own arm as the more specific fault.
func SpatialCheck(a, b Placement) (Case, bool) {
	if spatialmath.PolygonsIntersect(a.Arm, b.Arm) || a.Ferrule.IntersectsPolygon(b.Arm) || b.Ferrule.IntersectsPolygon(a.Arm) {
		return CasePhiPhi, true
	}
	if spatialmath.PolygonsIntersect(a.Arm, b.Body) || a.Ferrule.IntersectsPolygon(b.Body) {
		return CaseIIIA, true
	}
	if spatialmath.PolygonsIntersect(b.Arm, a.Body) || b.Ferrule.IntersectsPolygon(a.Body) {
		return CaseIIIB, true
	}
	return CaseNone, false
}

// FixedCheck tests a positioner's placement against a fixed boundary polygon
// (petal edge or GFA envelope), returning true if either the arm, body, or
// ferrule overlaps it.
func FixedCheck(p Placement, fixed spatialmath.Polygon) bool {
	if spatialmath.PolygonsIntersect(p.Arm, fixed) || spatialmath.PolygonsIntersect(p.Body, fixed) {
		return true
	}
	return p.Ferrule.IntersectsPolygon(fixed)
}
