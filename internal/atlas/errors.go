package atlas

import "errors"

// Structural errors abort the current image's operation. Batch layers catch
// them per image and continue with the next one.
var (
	// ErrAtlasNotFound means no imported atlas root matched the search.
	ErrAtlasNotFound = errors.New("no imported atlas found; align the slice to an atlas and import the annotations first")

	// ErrDisruptedHierarchy means the atlas tree was damaged (the root has
	// no children). The annotations must be imported again.
	ErrDisruptedHierarchy = errors.New("atlas hierarchy disrupted; re-import the atlas annotations and delete any previous region annotation")

	// ErrAmbiguousHemisphere means a region's hemisphere cannot be deduced
	// in a hemisphere-split atlas: no tagged ancestor, or conflicting tags.
	ErrAmbiguousHemisphere = errors.New("cannot deduce hemisphere for region")

	// ErrExclusionMistake means in-tree regions are still classified as
	// Exclude. Run RepairExclusions before exporting.
	ErrExclusionMistake = errors.New("regions in the atlas ontology are wrongly classified as Exclude; run RepairExclusions first")
)
