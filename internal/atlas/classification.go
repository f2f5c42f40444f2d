package atlas

import "strings"

// Hemisphere qualifies a region classification in atlases that were
// registered with the two hemispheres split.
type Hemisphere string

const (
	// HemisphereNone marks regions of an unsplit atlas.
	HemisphereNone Hemisphere = ""
	// HemisphereLeft marks regions of the left hemisphere.
	HemisphereLeft Hemisphere = "Left"
	// HemisphereRight marks regions of the right hemisphere.
	HemisphereRight Hemisphere = "Right"
)

// excludeName is the sentinel classification name flagging an unreliable
// region. It is the sole source of truth for exclusion state.
const excludeName = "Exclude"

// Classification is the analysis label of a node: a plain region label, a
// region label qualified by hemisphere, or the Exclude sentinel. The zero
// value means unclassified.
type Classification struct {
	Name       string
	Hemisphere Hemisphere
}

// Excluded is the sentinel classification of exclusion markers.
var Excluded = Classification{Name: excludeName}

// IsZero reports whether the node carries no classification at all.
func (c Classification) IsZero() bool {
	return c.Name == "" && c.Hemisphere == HemisphereNone
}

// IsExcluded reports whether this is the Exclude sentinel.
func (c Classification) IsExcluded() bool {
	return c.Name == excludeName && c.Hemisphere == HemisphereNone
}

// String renders the classification the way the exclusion list and region
// table print it: "Left: name", "Right: name" or just "name".
func (c Classification) String() string {
	if c.Hemisphere == HemisphereNone {
		return c.Name
	}
	return string(c.Hemisphere) + ": " + c.Name
}

// ParseClassification is the inverse of String. Unknown prefixes are kept
// as part of the plain name.
func ParseClassification(s string) Classification {
	for _, h := range []Hemisphere{HemisphereLeft, HemisphereRight} {
		prefix := string(h) + ": "
		if strings.HasPrefix(s, prefix) {
			return Classification{Name: strings.TrimPrefix(s, prefix), Hemisphere: h}
		}
	}
	return Classification{Name: s}
}
