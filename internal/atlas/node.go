// Package atlas implements the ontology core: locating an imported atlas in
// an object set, flattening its region tree, resolving and repairing
// exclusion state, statistically auto-excluding low-signal regions, and
// exporting per-region results.
//
// One ObjectSet holds the annotated objects of one image. It is mutated in
// place and must be accessed from a single goroutine; batch layers are
// expected to own one set per image and process images one at a time.
package atlas

import (
	"github.com/google/uuid"

	"github.com/atlas-data/region.report/internal/geometry"
)

// NodeID identifies a node for its whole lifetime, across repair and
// restore cycles.
type NodeID string

// NewNodeID returns a fresh random node identifier.
func NewNodeID() NodeID {
	return NodeID(uuid.New().String())
}

// NodeKind distinguishes the annotation kinds an object set can hold.
type NodeKind int

const (
	// KindRegion is an atlas region annotation (or an exclusion marker,
	// which shadows one).
	KindRegion NodeKind = iota
	// KindContainer is an auxiliary annotation grouping the detections
	// computed for one channel. It has geometry but no ontology semantics.
	KindContainer
	// KindDetection is an individual detected object (a cell).
	KindDetection
)

// Node is one annotated object: an atlas region, a detection container, an
// exclusion marker or a detection. Region nodes are created once by the
// atlas-import step and never deleted by this package, only reclassified.
type Node struct {
	ID             NodeID
	Name           string
	Classification Classification
	Geometry       geometry.Polygon
	Parent         *Node
	Children       []*Node
	Locked         bool
	Kind           NodeKind

	// Measurements carries optional numeric values stamped on the node,
	// e.g. the auto-exclusion engine's normalized intensity and percentile.
	Measurements map[string]float64
}

// isAnnotation reports whether the node takes part in ontology traversal.
func (n *Node) isAnnotation() bool {
	return n.Kind == KindRegion || n.Kind == KindContainer
}

// AddChild links child under n and returns child.
func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// SetMeasurement stamps a named numeric value on the node.
func (n *Node) SetMeasurement(name string, value float64) {
	if n.Measurements == nil {
		n.Measurements = make(map[string]float64)
	}
	n.Measurements[name] = value
}

// Measurement reads a stamped value; ok is false when absent.
func (n *Node) Measurement(name string) (value float64, ok bool) {
	value, ok = n.Measurements[name]
	return value, ok
}

// ObjectSet is the arena of annotated objects for one image, in document
// order. Nodes reachable from a root via parent/child edges form the
// ontology tree; nodes without a parent (other than roots) are free-standing,
// which is how exclusion markers live.
//
// Not safe for concurrent mutation.
type ObjectSet struct {
	order []*Node
	byID  map[NodeID]*Node

	// selection stages regions for downstream measurement collection.
	// Only the exporter uses it.
	selection []*Node
}

// NewObjectSet creates an empty object set.
func NewObjectSet() *ObjectSet {
	return &ObjectSet{byID: make(map[NodeID]*Node)}
}

// Add inserts a node (and none of its children) into the set, assigning an
// ID when the node has none. Adding an already-present node is a no-op.
func (s *ObjectSet) Add(n *Node) *Node {
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	if _, ok := s.byID[n.ID]; ok {
		return n
	}
	s.byID[n.ID] = n
	s.order = append(s.order, n)
	return n
}

// AddTree inserts a node and its whole subtree in preorder.
func (s *ObjectSet) AddTree(n *Node) *Node {
	s.Add(n)
	for _, c := range n.Children {
		s.AddTree(c)
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (s *ObjectSet) Get(id NodeID) *Node {
	return s.byID[id]
}

// Len returns the number of nodes in the set.
func (s *ObjectSet) Len() int {
	return len(s.order)
}

// Remove deletes a node from the set. With keepChildren, its children are
// reattached to the node's parent (or become free-standing); otherwise the
// whole subtree is removed.
func (s *ObjectSet) Remove(n *Node, keepChildren bool) {
	if _, ok := s.byID[n.ID]; !ok {
		return
	}
	if keepChildren {
		for _, c := range n.Children {
			c.Parent = n.Parent
			if n.Parent != nil {
				n.Parent.Children = append(n.Parent.Children, c)
			}
		}
		n.Children = nil
	} else {
		for _, c := range n.Children {
			s.Remove(c, false)
		}
	}
	if n.Parent != nil {
		n.Parent.Children = removeNode(n.Parent.Children, n)
		n.Parent = nil
	}
	delete(s.byID, n.ID)
	s.order = removeNode(s.order, n)
}

// Annotations returns all annotation-kind nodes in document order.
func (s *ObjectSet) Annotations() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, n := range s.order {
		if n.isAnnotation() {
			out = append(out, n)
		}
	}
	return out
}

// All returns every node in document order.
func (s *ObjectSet) All() []*Node {
	out := make([]*Node, len(s.order))
	copy(out, s.order)
	return out
}

// SetSelection replaces the staged selection.
func (s *ObjectSet) SetSelection(nodes []*Node) {
	s.selection = append([]*Node(nil), nodes...)
}

// ClearSelection empties the staged selection.
func (s *ObjectSet) ClearSelection() {
	s.selection = nil
}

// Selection returns the currently staged nodes.
func (s *ObjectSet) Selection() []*Node {
	return append([]*Node(nil), s.selection...)
}

func removeNode(nodes []*Node, target *Node) []*Node {
	for i, n := range nodes {
		if n == target {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// cloneGeometry duplicates a polygon so markers never alias region geometry.
func cloneGeometry(p geometry.Polygon) geometry.Polygon {
	if p == nil {
		return nil
	}
	out := make(geometry.Polygon, len(p))
	copy(out, p)
	return out
}
