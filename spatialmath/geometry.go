// Package spatialmath provides the 2D geometry primitives used by the collider:
// points, line segments, polygons, and rigid transforms, plus the intersection
// tests that underlie keep-out checking. The focal plane is planar, so unlike
// rdk's spatialmath package (which is fully 3D), this package works entirely
// in the plane rather than carrying an unused third dimension.
package spatialmath

import "math"

// Vector2 is a point or free vector in the local plane, in millimeters or degrees
// depending on context.
type Vector2 struct {
	X, Y float64
}

// Add returns v+o.
func (v Vector2) Add(o Vector2) Vector2 { return Vector2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vector2) Scale(s float64) Vector2 { return Vector2{v.X * s, v.Y * s} }

// Norm returns the Euclidean length of v.
func (v Vector2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Dot returns the dot product of v and o.
func (v Vector2) Dot(o Vector2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the scalar z-component of the 3D cross product v x o.
func (v Vector2) Cross(o Vector2) float64 { return v.X*o.Y - v.Y*o.X }

// Rotated returns v rotated by angleRad radians about the origin.
func (v Vector2) Rotated(angleRad float64) Vector2 {
	s, c := math.Sincos(angleRad)
	return Vector2{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
	}
}

// RigidTransform2D is a rotation followed by a translation, the composition
// used throughout the kinematic chain (theta rotation, then r1 translation,
// then phi rotation, then petal-center translation, and so on).
type RigidTransform2D struct {
	ThetaRad float64
	Tx, Ty   float64
}

// Identity2D is the identity transform.
func Identity2D() RigidTransform2D { return RigidTransform2D{} }

// Apply maps a point through the transform: rotate then translate.
func (t RigidTransform2D) Apply(v Vector2) Vector2 {
	r := v.Rotated(t.ThetaRad)
	return Vector2{r.X + t.Tx, r.Y + t.Ty}
}

// Then composes t followed by o: (o ∘ t)(v) == o.Apply(t.Apply(v)).
func (t RigidTransform2D) Then(o RigidTransform2D) RigidTransform2D {
	origin := o.Apply(t.Apply(Vector2{}))
	return RigidTransform2D{
		ThetaRad: t.ThetaRad + o.ThetaRad,
		Tx:       origin.X,
		Ty:       origin.Y,
	}
}

// Segment is a directed line segment from A to B.
type Segment struct {
	A, B Vector2
}

// Transformed returns the segment with both endpoints mapped through t.
func (s Segment) Transformed(t RigidTransform2D) Segment {
	return Segment{A: t.Apply(s.A), B: t.Apply(s.B)}
}

const epsilon = 1e-9

// SegmentsIntersect reports whether two segments share any point, using the
// standard orientation-and-straddle test. Collinear overlap counts as an
// intersection.
func SegmentsIntersect(a, b Segment) bool {
	d1 := direction(b.A, b.B, a.A)
	d2 := direction(b.A, b.B, a.B)
	d3 := direction(a.A, a.B, b.A)
	d4 := direction(a.A, a.B, b.B)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if math.Abs(d1) < epsilon && onSegment(b.A, b.B, a.A) {
		return true
	}
	if math.Abs(d2) < epsilon && onSegment(b.A, b.B, a.B) {
		return true
	}
	if math.Abs(d3) < epsilon && onSegment(a.A, a.B, b.A) {
		return true
	}
	if math.Abs(d4) < epsilon && onSegment(a.A, a.B, b.B) {
		return true
	}
	return false
}

func direction(p, q, r Vector2) float64 {
	return q.Sub(p).Cross(r.Sub(p))
}

func onSegment(p, q, r Vector2) bool {
	return math.Min(p.X, q.X)-epsilon <= r.X && r.X <= math.Max(p.X, q.X)+epsilon &&
		math.Min(p.Y, q.Y)-epsilon <= r.Y && r.Y <= math.Max(p.Y, q.Y)+epsilon
}

// Polygon is a closed outline described by its vertices in order. It is not
// required to be convex.
type Polygon struct {
	Points []Vector2
}

// Transformed returns the polygon with every vertex mapped through t.
func (p Polygon) Transformed(t RigidTransform2D) Polygon {
	out := make([]Vector2, len(p.Points))
	for i, pt := range p.Points {
		out[i] = t.Apply(pt)
	}
	return Polygon{Points: out}
}

// Segments returns the closed edge list of the polygon.
func (p Polygon) Segments() []Segment {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	segs := make([]Segment, n)
	for i := 0; i < n; i++ {
		segs[i] = Segment{A: p.Points[i], B: p.Points[(i+1)%n]}
	}
	return segs
}

// ContainsPoint reports whether v lies inside p, using a ray-casting test.
// Used for the ferrule-disk-center-inside-polygon case that pure edge
// intersection misses (one shape fully enclosing the other).
func (p Polygon) ContainsPoint(v Vector2) bool {
	inside := false
	n := len(p.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := p.Points[i], p.Points[j]
		if (pi.Y > v.Y) != (pj.Y > v.Y) &&
			v.X < (pj.X-pi.X)*(v.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// PolygonsIntersect reports whether two polygons overlap: any edge pair
// crosses, or one polygon's first vertex lies inside the other (handles full
// containment with no edge crossing).
func PolygonsIntersect(a, b Polygon) bool {
	aSegs, bSegs := a.Segments(), b.Segments()
	for _, sa := range aSegs {
		for _, sb := range bSegs {
			if SegmentsIntersect(sa, sb) {
				return true
			}
		}
	}
	if len(a.Points) > 0 && b.ContainsPoint(a.Points[0]) {
		return true
	}
	if len(b.Points) > 0 && a.ContainsPoint(b.Points[0]) {
		return true
	}
	return false
}

// Disk is a circle, used for the ferrule tip endpoint collision test.
type Disk struct {
	Center Vector2
	Radius float64
}

// IntersectsPolygon reports whether the disk overlaps the polygon: any edge
// passes within Radius of the center, or the center is inside the polygon.
func (d Disk) IntersectsPolygon(p Polygon) bool {
	if p.ContainsPoint(d.Center) {
		return true
	}
	for _, seg := range p.Segments() {
		if distancePointToSegment(d.Center, seg) <= d.Radius {
			return true
		}
	}
	return false
}

func distancePointToSegment(p Vector2, s Segment) float64 {
	ab := s.B.Sub(s.A)
	abLenSq := ab.Dot(ab)
	if abLenSq < epsilon {
		return p.Sub(s.A).Norm()
	}
	t := p.Sub(s.A).Dot(ab) / abLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := s.A.Add(ab.Scale(t))
	return p.Sub(closest).Norm()
}
