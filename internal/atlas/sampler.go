package atlas

import "github.com/atlas-data/region.report/internal/geometry"

// ChannelSampler is the narrow surface through which the engine reads pixel
// data. Implementations own the image resource; the core never touches
// pixels directly, so sampling can be made asynchronous or remote without
// changing the decision logic.
type ChannelSampler interface {
	// Histogram returns the fixed-width intensity histogram of a whole
	// channel at the given coarse resolution level.
	Histogram(channel string, resolutionLevel int) ([]int, error)

	// MeanIntensity returns the mean intensity inside the geometry at the
	// given resolution level.
	MeanIntensity(geom geometry.Polygon, channel string, resolutionLevel int) (float64, error)
}
