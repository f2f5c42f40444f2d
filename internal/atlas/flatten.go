package atlas

// Flatten linearizes the atlas ontology depth-first, preorder, root first.
// Only annotation-kind children are descended into; detections hanging off a
// container are not traversal members. It may still return non-region
// annotations if the hierarchy was modified after import.
func (m *Manager) Flatten() ([]*Node, error) {
	return m.FlattenExcluding(nil)
}

// FlattenExcluding is Flatten with nodes whose ID is in exclude removed from
// the output. Children of an excluded node are still visited and kept unless
// listed themselves. Exporters use it to hide detection containers.
func (m *Manager) FlattenExcluding(exclude map[NodeID]bool) ([]*Node, error) {
	if len(m.root.Children) == 0 {
		return nil, ErrDisruptedHierarchy
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if !exclude[n.ID] {
			out = append(out, n)
		}
		for _, c := range n.Children {
			if c.isAnnotation() {
				walk(c)
			}
		}
	}
	walk(m.root)
	return out, nil
}

// flattenNode linearizes one subtree preorder without the root-has-children
// check, for internal traversals below the atlas root.
func flattenNode(n *Node) []*Node {
	out := []*Node{n}
	for _, c := range n.Children {
		if c.isAnnotation() {
			out = append(out, flattenNode(c)...)
		}
	}
	return out
}
