package atlas

import (
	"testing"

	"github.com/atlas-data/region.report/internal/geometry"
	"github.com/atlas-data/region.report/internal/monitoring"
)

func init() {
	// Keep test output quiet; individual tests re-install a logger when
	// they assert on log lines.
	monitoring.SetLogger(nil)
}

// region builds an in-tree region node.
func region(name string, class Classification, geom geometry.Polygon) *Node {
	return &Node{
		ID:             NewNodeID(),
		Name:           name,
		Classification: class,
		Geometry:       geom,
		Kind:           KindRegion,
	}
}

// plain is a classification without hemisphere.
func plain(name string) Classification {
	return Classification{Name: name}
}

// testAtlas builds a small unsplit ontology:
//
//	Root (atlas "test_atlas", 0,0,1000x1000)
//	├── grey (10,10,900x900)
//	│   ├── VISp (100,100,200x200)
//	│   │   └── VISp1 (120,120,50x50)
//	│   └── MOs (500,100,200x200)
//	└── fiber tracts (10,920,500x50)
func testAtlas(t *testing.T) (*ObjectSet, *Manager) {
	t.Helper()
	set := NewObjectSet()

	root := region("Root", plain("test_atlas"), geometry.Rect(0, 0, 1000, 1000))
	grey := region("grey", plain("grey"), geometry.Rect(10, 10, 900, 900))
	visp := region("VISp", plain("VISp"), geometry.Rect(100, 100, 200, 200))
	visp1 := region("VISp1", plain("VISp1"), geometry.Rect(120, 120, 50, 50))
	mos := region("MOs", plain("MOs"), geometry.Rect(500, 100, 200, 200))
	fibers := region("fiber tracts", plain("fiber tracts"), geometry.Rect(10, 920, 500, 50))

	root.AddChild(grey)
	grey.AddChild(visp)
	visp.AddChild(visp1)
	grey.AddChild(mos)
	root.AddChild(fibers)
	set.AddTree(root)

	m, err := NewManager("test_atlas", set)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return set, m
}

// testSplitAtlas builds a hemisphere-split ontology with a left and a right
// subtree, each holding one VISp region.
func testSplitAtlas(t *testing.T) (*ObjectSet, *Manager) {
	t.Helper()
	set := NewObjectSet()

	root := region("Root", plain("test_atlas"), geometry.Rect(0, 0, 1000, 1000))
	left := region("root", Classification{Name: "root", Hemisphere: HemisphereLeft}, geometry.Rect(0, 0, 490, 1000))
	right := region("root", Classification{Name: "root", Hemisphere: HemisphereRight}, geometry.Rect(510, 0, 490, 1000))
	lVisp := region("VISp", Classification{Name: "VISp", Hemisphere: HemisphereLeft}, geometry.Rect(100, 100, 200, 200))
	rVisp := region("VISp", Classification{Name: "VISp", Hemisphere: HemisphereRight}, geometry.Rect(600, 100, 200, 200))

	root.AddChild(left)
	root.AddChild(right)
	left.AddChild(lVisp)
	right.AddChild(rVisp)
	set.AddTree(root)

	m, err := NewManager("test_atlas", set)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return set, m
}

// findByName returns the first in-set node with the given name.
func findByName(set *ObjectSet, name string) *Node {
	for _, n := range set.All() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// addMarkerFor duplicates a region outside the tree and classifies it
// Exclude, the manual exclusion gesture.
func addMarkerFor(set *ObjectSet, target *Node) *Node {
	marker := &Node{
		ID:             NewNodeID(),
		Name:           target.Name,
		Classification: Excluded,
		Geometry:       cloneGeometry(target.Geometry),
		Kind:           KindRegion,
	}
	set.Add(marker)
	return marker
}
