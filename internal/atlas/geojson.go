package atlas

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/atlas-data/region.report/internal/geometry"
)

// The host application exports annotated objects as a GeoJSON
// FeatureCollection. Features carry no parent links, so the hierarchy is
// re-resolved geometrically on load: each node's parent is the smallest
// annotation strictly larger than it that fully covers it. Exclude-classified
// features are never attached; markers are free-standing by definition.

type geoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

type geoFeature struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Geometry   geoGeometry
	Properties geoProperties `json:"properties"`
}

type geoGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoProperties struct {
	ObjectType     string             `json:"objectType"`
	Name           string             `json:"name"`
	Classification *geoClassification `json:"classification"`
	IsLocked       bool               `json:"isLocked"`
	Measurements   map[string]float64 `json:"measurements"`
}

type geoClassification struct {
	Name string `json:"name"`
}

// LoadObjectSet parses a GeoJSON FeatureCollection export into an ObjectSet
// with the tree hierarchy resolved by geometric containment.
func LoadObjectSet(data []byte) (*ObjectSet, error) {
	var fc geoFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected a FeatureCollection, got %q", fc.Type)
	}

	set := NewObjectSet()
	var nodes []*Node
	for i, f := range fc.Features {
		poly, err := parsePolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, f.Properties.Name, err)
		}
		n := &Node{
			ID:       NodeID(f.ID),
			Name:     f.Properties.Name,
			Geometry: poly,
			Locked:   f.Properties.IsLocked,
			Kind:     featureKind(f.Properties),
		}
		if f.Properties.Classification != nil {
			n.Classification = ParseClassification(f.Properties.Classification.Name)
		}
		for k, v := range f.Properties.Measurements {
			n.SetMeasurement(k, v)
		}
		set.Add(n)
		nodes = append(nodes, n)
	}
	resolveHierarchy(nodes)
	return set, nil
}

// featureKind maps the host object type and naming convention onto a
// NodeKind. Annotations named "<channel> cells" are detection containers.
func featureKind(p geoProperties) NodeKind {
	switch p.ObjectType {
	case "detection", "cell":
		return KindDetection
	}
	if strings.HasSuffix(p.Name, containerSuffix) {
		return KindContainer
	}
	return KindRegion
}

// parsePolygon extracts the exterior ring. Interior rings (holes) are
// dropped; containment and area on atlas regions do not need them at the
// precision exclusions work at.
func parsePolygon(g geoGeometry) (geometry.Polygon, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	var rings [][][2]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
		return nil, fmt.Errorf("parsing polygon coordinates: %w", err)
	}
	if len(rings) == 0 || len(rings[0]) < 3 {
		return nil, fmt.Errorf("polygon has no usable exterior ring")
	}
	ring := rings[0]
	// GeoJSON rings repeat the first point; Polygon keeps it implicit.
	if ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	poly := make(geometry.Polygon, len(ring))
	for i, c := range ring {
		poly[i] = geometry.Point{X: c[0], Y: c[1]}
	}
	return poly, nil
}

// resolveHierarchy links each node under the smallest strictly-larger
// annotation covering it. Exclusion markers stay detached.
func resolveHierarchy(nodes []*Node) {
	type sized struct {
		node *Node
		area float64
	}
	var candidates []sized
	for _, n := range nodes {
		if n.isAnnotation() && !n.Classification.IsExcluded() {
			candidates = append(candidates, sized{n, n.Geometry.Area()})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].area < candidates[j].area })

	for _, n := range nodes {
		if n.Classification.IsExcluded() {
			continue
		}
		area := n.Geometry.Area()
		for _, c := range candidates {
			if c.node == n {
				continue
			}
			// Detections belong to their channel container, never directly
			// to a region.
			if n.Kind == KindDetection {
				if c.node.Kind != KindContainer {
					continue
				}
			} else if c.area <= area {
				continue
			}
			if n.Geometry.CoveredBy(c.node.Geometry) {
				c.node.AddChild(n)
				break
			}
		}
	}
}
