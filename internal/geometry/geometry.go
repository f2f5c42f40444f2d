// Package geometry provides the planar polygon primitives used to relate
// atlas region boundaries to exclusion markers and point detections.
package geometry

// Point is a position in image space (pixels at full resolution).
type Point struct {
	X, Y float64
}

// Polygon is a closed boundary in image space. Vertices are stored without
// repeating the first point; the closing edge is implicit.
type Polygon []Point

// Bounds returns the axis-aligned bounding box of the polygon as
// (minX, minY, maxX, maxY). A nil polygon returns all zeros.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64) {
	if len(p) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = p[0].X, p[0].Y
	maxX, maxY = p[0].X, p[0].Y
	for _, v := range p[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	return minX, minY, maxX, maxY
}

// Area returns the unsigned area of the polygon via the shoelace formula,
// in squared pixels.
func (p Polygon) Area() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// Contains tests if a point is inside the polygon using ray casting.
// Points exactly on an edge may land on either side.
func (p Polygon) Contains(pt Point) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	inside := false
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := p[i], p[j]
		if ((pi.Y > pt.Y) != (pj.Y > pt.Y)) &&
			(pt.X < (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}
	return inside
}

// CoveredBy reports whether every vertex of p lies inside outer and no edge
// of p crosses an edge of outer. For the simple, non-degenerate boundaries
// produced by atlas registration this matches full geometric coverage.
func (p Polygon) CoveredBy(outer Polygon) bool {
	if len(p) == 0 || len(outer) < 3 {
		return false
	}
	// Cheap reject on bounding boxes before the per-vertex tests.
	pMinX, pMinY, pMaxX, pMaxY := p.Bounds()
	oMinX, oMinY, oMaxX, oMaxY := outer.Bounds()
	if pMinX < oMinX || pMinY < oMinY || pMaxX > oMaxX || pMaxY > oMaxY {
		return false
	}
	for _, v := range p {
		if !outer.Contains(v) && !outer.onBoundary(v) {
			return false
		}
	}
	n := len(p)
	m := len(outer)
	for i := 0; i < n; i++ {
		a1, a2 := p[i], p[(i+1)%n]
		for j := 0; j < m; j++ {
			b1, b2 := outer[j], outer[(j+1)%m]
			if segmentsCross(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

// onBoundary reports whether pt lies on one of the polygon's edges.
func (p Polygon) onBoundary(pt Point) bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		if cross(a, b, pt) != 0 {
			continue
		}
		if pt.X >= min(a.X, b.X) && pt.X <= max(a.X, b.X) &&
			pt.Y >= min(a.Y, b.Y) && pt.Y <= max(a.Y, b.Y) {
			return true
		}
	}
	return false
}

// segmentsCross reports a proper crossing of segments a1-a2 and b1-b2.
// Shared endpoints and collinear touches do not count as crossings.
func segmentsCross(a1, a2, b1, b2 Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// cross computes the cross product of vectors OA and OB.
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Rect builds a rectangular polygon, a convenience for tests and for
// detection containers that span a full image tile.
func Rect(x, y, w, h float64) Polygon {
	return Polygon{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}
