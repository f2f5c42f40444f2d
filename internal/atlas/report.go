package atlas

// ExclusionReport describes one excluded atlas region: which marker flags
// it, in which image, and how confident the auto-exclusion engine was.
// PercentileRank is the score's rank within the image's empirical score
// distribution, in [0,100]; manually created markers carry zero.
type ExclusionReport struct {
	ProjectFile    string
	ProjectName    string
	ImageName      string
	MarkerID       NodeID
	RegionName     string
	PercentileRank float64
}

// ImageLabel renders the report's image qualified by project when known.
func (r ExclusionReport) ImageLabel() string {
	if r.ProjectName != "" {
		return r.ProjectName + ": " + r.ImageName
	}
	return r.ImageName
}

// ExcludedRegionReports lists one report per exclusion marker currently in
// the object set, whether created manually, by repair or by auto-exclusion.
func (m *Manager) ExcludedRegionReports(imageName string) []ExclusionReport {
	markers := FreeStandingExclusions(m.set)
	reports := make([]ExclusionReport, 0, len(markers))
	for _, marker := range markers {
		rank, _ := marker.Measurement(MeasurementPercentileRank)
		reports = append(reports, ExclusionReport{
			ImageName:      imageName,
			MarkerID:       marker.ID,
			RegionName:     marker.Name,
			PercentileRank: rank,
		})
	}
	return reports
}
