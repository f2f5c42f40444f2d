package atlas

import "github.com/atlas-data/region.report/internal/geometry"

// containerSuffix follows the naming convention of the detection subsystem:
// the container annotation for channel "DAPI" is named "DAPI cells".
const containerSuffix = " cells"

// Detection is one detected object, reduced to what export needs: its class
// and its centroid in image space.
type Detection struct {
	Class  string
	Center geometry.Point
}

// DetectionSet groups the detections computed for one channel, together
// with the container annotations the detection pass introduced into the
// hierarchy. Containers must be hidden from ontology traversal used for
// export.
type DetectionSet struct {
	Channel    string
	Classes    []string
	Containers []NodeID
	Detections []Detection
}

// NewDetectionSet collects the channel's detections and containers from the
// object set. Detection nodes are children of the channel's containers;
// their classification name is the detection class.
func NewDetectionSet(channel string, classes []string, set *ObjectSet) *DetectionSet {
	d := &DetectionSet{Channel: channel, Classes: classes}
	for _, n := range set.All() {
		switch {
		case n.Kind == KindContainer && n.Name == channel+containerSuffix:
			d.Containers = append(d.Containers, n.ID)
		case n.Kind == KindDetection && n.Parent != nil && n.Parent.Name == channel+containerSuffix:
			d.Detections = append(d.Detections, Detection{
				Class:  n.Classification.Name,
				Center: centroid(n.Geometry),
			})
		}
	}
	return d
}

// CountWithin counts the set's detections whose centroid falls inside the
// geometry, per class. Every configured class is present in the result,
// zero when absent.
func (d *DetectionSet) CountWithin(geom geometry.Polygon) map[string]int {
	counts := make(map[string]int, len(d.Classes))
	for _, class := range d.Classes {
		counts[class] = 0
	}
	for _, det := range d.Detections {
		if _, configured := counts[det.Class]; !configured {
			continue
		}
		if geom.Contains(det.Center) {
			counts[det.Class]++
		}
	}
	return counts
}

// Total counts all the set's detections inside the geometry, regardless of
// class configuration.
func (d *DetectionSet) Total(geom geometry.Polygon) int {
	n := 0
	for _, det := range d.Detections {
		if geom.Contains(det.Center) {
			n++
		}
	}
	return n
}

// centroid returns the vertex average, a good-enough centre for the small
// convex outlines cell segmentation produces.
func centroid(p geometry.Polygon) geometry.Point {
	if len(p) == 0 {
		return geometry.Point{}
	}
	var c geometry.Point
	for _, v := range p {
		c.X += v.X
		c.Y += v.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}
