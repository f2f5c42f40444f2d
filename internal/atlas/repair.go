package atlas

import (
	"fmt"

	"github.com/atlas-data/region.report/internal/monitoring"
)

// RepairExclusions restores a fully-classified ontology after botched or
// partial exclusions. It handles three failure modes of manual exclusion:
//
//   - the whole Root was classified Exclude (a known failure mode of the
//     upstream import step): each direct child of the root gets a
//     free-standing marker and the root classification is cleared;
//   - a region inside the tree was classified Exclude;
//   - a region's classification was removed entirely.
//
// After a successful call every non-root region is classified, and every
// logically excluded region has a matching free-standing Exclude marker.
// Repair is idempotent: consistent regions are untouched and markers are
// never removed, only added.
func (m *Manager) RepairExclusions() error {
	if len(m.root.Children) == 0 {
		return ErrDisruptedHierarchy
	}

	if m.root.Classification.IsExcluded() {
		monitoring.Logf("atlas: root %s was classified Exclude, excluding its %d direct children instead",
			m.root.ID, len(m.root.Children))
		for _, child := range m.root.Children {
			if !child.isAnnotation() {
				continue
			}
			deduced := child.Classification
			if deduced.IsZero() || deduced.IsExcluded() {
				d, err := m.deduceClassification(child)
				if err != nil {
					return err
				}
				deduced = d
			}
			m.ensureMarker(child, deduced)
		}
		m.root.Classification = Classification{}
	}

	regions, err := m.Flatten()
	if err != nil {
		return err
	}
	for _, region := range regions {
		if region == m.root {
			continue
		}
		if !region.Classification.IsExcluded() && !region.Classification.IsZero() {
			continue
		}
		if err := m.repairRegion(region); err != nil {
			return err
		}
	}
	return nil
}

// repairRegion deduces the region's correct classification from its stable
// atlas name, makes sure a matching free-standing marker exists, and
// restores the in-tree classification.
func (m *Manager) repairRegion(region *Node) error {
	deduced, err := m.deduceClassification(region)
	if err != nil {
		return err
	}
	m.ensureMarker(region, deduced)
	region.Classification = deduced
	return nil
}

// deduceClassification reconstructs a region's classification from its
// stable atlas name and, in a split atlas, its cached hemisphere.
func (m *Manager) deduceClassification(region *Node) (Classification, error) {
	if region.Name == "" {
		return Classification{}, fmt.Errorf("cannot deduce the classification for unnamed region %s", region.ID)
	}
	deduced := Classification{Name: region.Name}
	if m.split {
		h := m.hemisphereOf(region)
		if h == HemisphereNone {
			return Classification{}, fmt.Errorf("%w: %q has no hemisphere-tagged ancestor", ErrAmbiguousHemisphere, region.Name)
		}
		deduced.Hemisphere = h
	}
	return deduced, nil
}

// ensureMarker returns the free-standing Exclude marker shadowing the given
// region, creating one (a geometry duplicate) when none exists. Regions in
// both hemispheres share a name, so an existing Exclude marker only counts
// when it covers the region's geometry. A free-standing duplicate carrying
// the deduced classification (a half-finished manual exclusion) is
// reclassified instead of duplicated again.
func (m *Manager) ensureMarker(region *Node, deduced Classification) *Node {
	for _, n := range freeStandingByName(m.set, region.Name) {
		if n.Classification.IsExcluded() {
			if region.Geometry.CoveredBy(n.Geometry) {
				return n
			}
			continue
		}
		if n.Classification == deduced ||
			(n.Classification.IsZero() && region.Geometry.CoveredBy(n.Geometry)) {
			n.Classification = Excluded
			return n
		}
	}
	marker := &Node{
		Name:           region.Name,
		Classification: Excluded,
		Geometry:       cloneGeometry(region.Geometry),
		Kind:           KindRegion,
	}
	m.set.Add(marker)
	return marker
}

// freeStandingByName returns out-of-tree annotations with the given name,
// whatever their classification.
func freeStandingByName(set *ObjectSet, name string) []*Node {
	reachable := make(map[NodeID]bool)
	for _, root := range Find("", set) {
		for _, n := range flattenNode(root) {
			reachable[n.ID] = true
		}
	}
	var out []*Node
	for _, n := range set.Annotations() {
		if n.Name == name && !reachable[n.ID] {
			out = append(out, n)
		}
	}
	return out
}
