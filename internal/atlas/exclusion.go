package atlas

import (
	"sort"

	"github.com/atlas-data/region.report/internal/monitoring"
)

// FreeStandingExclusions returns all nodes classified Exclude that are not
// ontology members: not reachable from any imported root via tree edges.
// These markers are the sole source of truth for "this region is unreliable".
func FreeStandingExclusions(set *ObjectSet) []*Node {
	reachable := make(map[NodeID]bool)
	for _, root := range Find("", set) {
		for _, n := range flattenNode(root) {
			reachable[n.ID] = true
		}
	}
	var out []*Node
	for _, n := range set.Annotations() {
		if n.Classification.IsExcluded() && !reachable[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// ExcludedBrainRegions resolves which ontology regions are logically
// excluded: every region whose geometry is fully covered by a free-standing
// Exclude marker. When both a region and one of its descendants match, only
// the highest ancestor is kept, so one excluded subtree is counted once.
func (m *Manager) ExcludedBrainRegions() (map[NodeID]*Node, error) {
	members, err := m.Flatten()
	if err != nil {
		return nil, err
	}
	memberIDs := make(map[NodeID]bool, len(members))
	for _, n := range members {
		memberIDs[n.ID] = true
	}

	markers := FreeStandingExclusions(m.set)
	if len(markers) > 0 {
		monitoring.Logf("atlas: %d exclusion annotations: %s", len(markers), joinNames(markers))
	}

	// Everything that is not a marker and not the atlas root is a coverage
	// candidate. Matches outside the ontology are anomalies: logged, ignored.
	var others []*Node
	for _, n := range m.set.Annotations() {
		if n == m.root || n.Classification.IsExcluded() {
			continue
		}
		others = append(others, n)
	}

	matched := make(map[NodeID]*Node)
	var anomalies []*Node
	for _, marker := range markers {
		for _, n := range others {
			if !n.Geometry.CoveredBy(marker.Geometry) {
				continue
			}
			if memberIDs[n.ID] && n.Kind == KindRegion && !n.Classification.IsZero() {
				matched[n.ID] = n
			} else {
				anomalies = append(anomalies, n)
			}
		}
	}
	if len(anomalies) > 0 {
		monitoring.Logf("atlas: annotations excluded outside the atlas ontology will be ignored: %s", joinNames(anomalies))
	}

	// Drop descendants of matched ancestors.
	out := make(map[NodeID]*Node, len(matched))
	for id, n := range matched {
		out[id] = n
	}
	for _, ancestor := range matched {
		for _, desc := range flattenNode(ancestor)[1:] {
			if _, ok := matched[desc.ID]; ok {
				delete(out, desc.ID)
			}
		}
	}
	return out, nil
}

// excludedRegionsSorted returns the logically excluded regions ordered by
// classification string, the order the exclusion list is exported in.
func (m *Manager) excludedRegionsSorted() ([]*Node, error) {
	excluded, err := m.ExcludedBrainRegions()
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(excluded))
	for _, n := range excluded {
		if n.Classification.IsZero() {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Classification.String() < out[j].Classification.String()
	})
	return out, nil
}

func joinNames(nodes []*Node) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += ", "
		}
		s += n.Name
	}
	return s
}
