package atlas

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/atlas-data/region.report/internal/monitoring"
)

// Mode selects how per-channel scores combine into one score per region.
type Mode string

const (
	// ModeSingleReference scores a region by the first configured channel
	// only, typically the nuclear stain.
	ModeSingleReference Mode = "single-reference"
	// ModeMaxAcrossChannels keeps a region alive if any channel shows
	// signal: the region score is the maximum across channels.
	ModeMaxAcrossChannels Mode = "max-across-channels"
)

// DefaultResolutionLevel is the coarse pyramid level used for histogram
// computation and region sampling.
const DefaultResolutionLevel = 4

// Measurement names stamped on auto-created exclusion markers.
const (
	MeasurementNormalizedIntensity = "Auto-Exclude: Normalized Intensity"
	MeasurementPercentileRank      = "Auto-Exclude: Percentile Rank"
)

// AutoExcludeParams configures the auto-exclusion engine.
type AutoExcludeParams struct {
	// Channels are the channel identifiers to evaluate, in order. The
	// first one is the reference channel in ModeSingleReference.
	Channels []string

	Mode Mode

	// ThresholdMultiplier scales the Otsu cutoff: a region is excluded iff
	// mean/otsu < ThresholdMultiplier. Lower is stricter (fewer
	// exclusions). Must be > 0.
	ThresholdMultiplier float64

	// ResolutionLevel is the coarse pyramid level to sample at;
	// DefaultResolutionLevel when zero.
	ResolutionLevel int
}

// AutoExcludeEmptyRegions flags regions whose channel signal is statistically
// indistinguishable from background. Per channel it computes an Otsu
// threshold from the coarse-resolution histogram (a failing channel is
// logged and dropped), scores every not-yet-excluded region as
// mean/threshold, and excludes regions scoring below the multiplier. Each
// excluded region gets a free-standing Exclude marker stamped with its
// normalized intensity and percentile rank; the in-tree region is left
// untouched so the exclusion can be restored later.
func (m *Manager) AutoExcludeEmptyRegions(sampler ChannelSampler, imageName string, p AutoExcludeParams) ([]ExclusionReport, error) {
	if sampler == nil {
		return nil, fmt.Errorf("nil sampler")
	}
	if len(p.Channels) == 0 {
		return nil, nil
	}
	if p.ThresholdMultiplier <= 0 {
		return nil, fmt.Errorf("threshold multiplier must be > 0, got %g", p.ThresholdMultiplier)
	}
	level := p.ResolutionLevel
	if level <= 0 {
		level = DefaultResolutionLevel
	}

	// 1. Otsu threshold per channel. Failures narrow the channel set.
	thresholds := make(map[string]int)
	for _, channel := range p.Channels {
		hist, err := sampler.Histogram(channel, level)
		if err != nil {
			monitoring.Logf("atlas: failed to read histogram for channel %q: %v", channel, err)
			continue
		}
		threshold, err := OtsuThreshold(hist)
		if err != nil {
			monitoring.Logf("atlas: failed to compute Otsu threshold for channel %q: %v", channel, err)
			continue
		}
		if threshold == 0 {
			monitoring.Logf("atlas: Otsu threshold for channel %q is zero, dropping channel", channel)
			continue
		}
		monitoring.Logf("atlas: Otsu threshold for channel %q: %d", channel, threshold)
		thresholds[channel] = threshold
	}
	if len(thresholds) == 0 {
		return nil, nil
	}

	// 2. Candidates: every region except the root and the already excluded.
	flat, err := m.Flatten()
	if err != nil {
		return nil, err
	}
	alreadyExcluded, err := m.ExcludedBrainRegions()
	if err != nil {
		return nil, err
	}
	excludedIDs := make(map[NodeID]bool, len(alreadyExcluded))
	for _, n := range alreadyExcluded {
		for _, desc := range flattenNode(n) {
			excludedIDs[desc.ID] = true
		}
	}

	// 3. One normalized score per region.
	scored := make(map[*Node]float64)
	var distribution []float64
	for _, region := range flat {
		if region == m.root || region.Kind != KindRegion {
			continue
		}
		if excludedIDs[region.ID] {
			continue
		}
		score, ok := m.scoreRegion(sampler, region, p, thresholds, level)
		if !ok {
			continue
		}
		scored[region] = score
		distribution = append(distribution, score)
	}
	if len(distribution) == 0 {
		return nil, nil
	}

	// 4. Sorted empirical distribution for percentile ranks.
	sort.Float64s(distribution)
	monitoring.Logf("atlas: scored %d regions (mean score %.3f, stddev %.3f)",
		len(distribution), stat.Mean(distribution, nil), stat.StdDev(distribution, nil))

	// 5-6. Decide, create markers, report.
	var reports []ExclusionReport
	for _, region := range regionsInOrder(flat, scored) {
		score := scored[region]
		if score >= p.ThresholdMultiplier {
			continue
		}
		rank := sort.SearchFloat64s(distribution, score)
		percentile := float64(rank) / float64(len(distribution)) * 100

		marker := &Node{
			Name:           region.Name,
			Classification: Excluded,
			Geometry:       cloneGeometry(region.Geometry),
			Kind:           KindRegion,
		}
		marker.SetMeasurement(MeasurementNormalizedIntensity, score)
		marker.SetMeasurement(MeasurementPercentileRank, percentile)
		m.set.Add(marker)

		reports = append(reports, ExclusionReport{
			ImageName:      imageName,
			MarkerID:       marker.ID,
			RegionName:     region.Name,
			PercentileRank: percentile,
		})
	}
	return reports, nil
}

// scoreRegion samples the region on every thresholded channel and combines
// the normalized means according to the mode. ok is false when no channel
// produced a sample.
func (m *Manager) scoreRegion(sampler ChannelSampler, region *Node, p AutoExcludeParams, thresholds map[string]int, level int) (score float64, ok bool) {
	best := -1.0
	for _, channel := range p.Channels {
		threshold, hasThreshold := thresholds[channel]
		if !hasThreshold {
			continue
		}
		mean, err := sampler.MeanIntensity(region.Geometry, channel, level)
		if err != nil {
			monitoring.Logf("atlas: failed to sample region %q on channel %q: %v", region.Name, channel, err)
			continue
		}
		normalized := mean / float64(threshold)
		if p.Mode == ModeMaxAcrossChannels {
			if normalized > best {
				best = normalized
			}
		} else {
			best = normalized
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// Restore undoes an exclusion: it verifies the marker is still classified
// Exclude and removes it from the object set. No other side effect; the
// in-tree region was never modified by auto-exclusion.
func (m *Manager) Restore(markerID NodeID) error {
	marker := m.set.Get(markerID)
	if marker == nil {
		return fmt.Errorf("no marker with id %s", markerID)
	}
	if !marker.Classification.IsExcluded() {
		return fmt.Errorf("annotation %s is classified %q, not %q; refusing to remove it",
			markerID, marker.Classification, Excluded)
	}
	m.set.Remove(marker, false)
	return nil
}

// regionsInOrder filters flat down to the scored regions, preserving
// document order so marker creation and reports are deterministic.
func regionsInOrder(flat []*Node, scored map[*Node]float64) []*Node {
	out := make([]*Node, 0, len(scored))
	for _, n := range flat {
		if _, ok := scored[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
