package geometry

import (
	"testing"
)

func TestPolygonArea(t *testing.T) {
	t.Run("unit square", func(t *testing.T) {
		sq := Rect(0, 0, 1, 1)
		if got := sq.Area(); got != 1 {
			t.Errorf("expected area 1, got %f", got)
		}
	})

	t.Run("degenerate", func(t *testing.T) {
		if got := (Polygon{{0, 0}, {1, 1}}).Area(); got != 0 {
			t.Errorf("expected area 0 for two points, got %f", got)
		}
	})

	t.Run("triangle", func(t *testing.T) {
		tri := Polygon{{0, 0}, {4, 0}, {0, 3}}
		if got := tri.Area(); got != 6 {
			t.Errorf("expected area 6, got %f", got)
		}
	})

	t.Run("winding order does not matter", func(t *testing.T) {
		cw := Polygon{{0, 0}, {0, 3}, {4, 0}}
		if got := cw.Area(); got != 6 {
			t.Errorf("expected area 6 for clockwise triangle, got %f", got)
		}
	})
}

func TestPolygonContains(t *testing.T) {
	sq := Rect(0, 0, 10, 10)

	cases := []struct {
		name string
		pt   Point
		want bool
	}{
		{"centre", Point{5, 5}, true},
		{"outside right", Point{11, 5}, false},
		{"outside diagonal", Point{-1, -1}, false},
		{"near corner inside", Point{0.5, 0.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sq.Contains(tc.pt); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.pt, got, tc.want)
			}
		})
	}
}

func TestCoveredBy(t *testing.T) {
	outer := Rect(0, 0, 100, 100)

	t.Run("fully inside", func(t *testing.T) {
		inner := Rect(10, 10, 20, 20)
		if !inner.CoveredBy(outer) {
			t.Error("expected inner rect to be covered by outer")
		}
	})

	t.Run("identical boundary", func(t *testing.T) {
		same := Rect(0, 0, 100, 100)
		if !same.CoveredBy(outer) {
			t.Error("expected identical polygon to be covered")
		}
	})

	t.Run("partially overlapping", func(t *testing.T) {
		overlap := Rect(90, 90, 20, 20)
		if overlap.CoveredBy(outer) {
			t.Error("expected partially overlapping rect to not be covered")
		}
	})

	t.Run("disjoint", func(t *testing.T) {
		far := Rect(200, 200, 10, 10)
		if far.CoveredBy(outer) {
			t.Error("expected disjoint rect to not be covered")
		}
	})

	t.Run("outer not covered by inner", func(t *testing.T) {
		inner := Rect(10, 10, 20, 20)
		if outer.CoveredBy(inner) {
			t.Error("expected outer rect to not be covered by inner")
		}
	})
}

func TestBounds(t *testing.T) {
	p := Polygon{{3, 7}, {-2, 4}, {5, -1}}
	minX, minY, maxX, maxY := p.Bounds()
	if minX != -2 || minY != -1 || maxX != 5 || maxY != 7 {
		t.Errorf("unexpected bounds: (%f,%f,%f,%f)", minX, minY, maxX, maxY)
	}
}
