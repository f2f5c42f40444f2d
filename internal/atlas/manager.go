package atlas

import (
	"fmt"

	"github.com/atlas-data/region.report/internal/monitoring"
)

// rootName is the name the atlas-import step gives the ontology root.
const rootName = "Root"

// Find returns the ontology roots in the object set, in document order:
// nodes named "Root" whose classification name equals atlasID, or any
// classified root when atlasID is empty.
func Find(atlasID string, set *ObjectSet) []*Node {
	var roots []*Node
	for _, n := range set.Annotations() {
		if n.Name != rootName {
			continue
		}
		if atlasID == "" || n.Classification.Name == atlasID {
			roots = append(roots, n)
		}
	}
	return roots
}

// IsImported reports whether an atlas (any atlas when atlasID is empty) was
// previously imported into the object set.
func IsImported(atlasID string, set *ObjectSet) bool {
	return len(Find(atlasID, set)) > 0
}

// Manager operates on one imported atlas ontology within one image's object
// set. All methods mutate the set in place; callers must serialize access
// per image.
type Manager struct {
	set  *ObjectSet
	root *Node

	// split and hemispheres are fixed at construction. A region's
	// hemisphere is the nearest tagged ancestor-or-self within the root's
	// subtree; conflicting tags on the same path fail construction.
	split       bool
	hemispheres map[NodeID]Hemisphere
}

// NewManager locates the atlas named atlasID (the first available when
// empty, picking the earliest candidate in document order) and validates its
// hierarchy. It fails with ErrAtlasNotFound if no root matches,
// ErrDisruptedHierarchy if the chosen root has no children, and
// ErrAmbiguousHemisphere if hemisphere tags conflict within the tree.
func NewManager(atlasID string, set *ObjectSet) (*Manager, error) {
	roots := Find(atlasID, set)
	if len(roots) == 0 {
		return nil, ErrAtlasNotFound
	}
	root := roots[0]
	if len(roots) > 1 {
		monitoring.Logf("atlas: several imported atlases found, selecting %q (%s)", root.Classification, root.ID)
	}
	if len(root.Children) == 0 {
		return nil, ErrDisruptedHierarchy
	}
	m := &Manager{set: set, root: root}
	if err := m.cacheHemispheres(); err != nil {
		return nil, err
	}
	return m, nil
}

// Root returns the annotation that contains all atlas annotations.
func (m *Manager) Root() *Node {
	return m.root
}

// ObjectSet returns the object set the manager operates on.
func (m *Manager) ObjectSet() *ObjectSet {
	return m.set
}

// IsSplit reports whether the atlas was registered with the hemispheres
// split. Trees where one hemisphere was deleted still count as split.
func (m *Manager) IsSplit() bool {
	return m.split
}

// cacheHemispheres walks the tree once and records each node's inherited
// hemisphere. A node tagged differently from a tagged ancestor makes the
// scope ambiguous.
func (m *Manager) cacheHemispheres() error {
	m.hemispheres = make(map[NodeID]Hemisphere)
	return m.walkHemisphere(m.root, HemisphereNone)
}

func (m *Manager) walkHemisphere(n *Node, inherited Hemisphere) error {
	h := inherited
	if own := n.Classification.Hemisphere; own != HemisphereNone {
		if inherited != HemisphereNone && own != inherited {
			return fmt.Errorf("%w: %q is tagged %s under a %s ancestor",
				ErrAmbiguousHemisphere, n.Name, own, inherited)
		}
		h = own
		m.split = true
	}
	m.hemispheres[n.ID] = h
	for _, c := range n.Children {
		if !c.isAnnotation() {
			continue
		}
		if err := m.walkHemisphere(c, h); err != nil {
			return err
		}
	}
	return nil
}

// hemisphereOf returns the cached hemisphere for an in-tree node.
func (m *Manager) hemisphereOf(n *Node) Hemisphere {
	return m.hemispheres[n.ID]
}
