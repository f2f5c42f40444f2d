package atlas

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atlas-data/region.report/internal/fsutil"
	"github.com/atlas-data/region.report/internal/monitoring"
	"github.com/atlas-data/region.report/internal/units"
)

// ExportOptions carries the per-image context written alongside each row.
type ExportOptions struct {
	ImageName string
	// Metadata keys become passthrough "Metadata_<key>" columns, in sorted
	// key order.
	Metadata map[string]string
}

// ExportRegionTable writes one row per ontology region: name,
// classification, physical area, and per-class detection counts.
// Columns are comma-delimited when path ends in ".csv", tab-delimited
// otherwise. Any pre-existing output file is deleted first; failing to
// delete it is a hard error and nothing is written.
//
// It fails with ErrExclusionMistake, before touching the filesystem, if any
// region is still classified Exclude: export must never silently include
// unreliable regions, so callers have to repair first.
func (m *Manager) ExportRegionTable(fsys fsutil.FileSystem, path string, detections []*DetectionSet, cal units.PixelCalibration, opts ExportOptions) error {
	containerIDs := make(map[NodeID]bool)
	for _, d := range detections {
		for _, id := range d.Containers {
			containerIDs[id] = true
		}
	}
	regions, err := m.FlattenExcluding(containerIDs)
	if err != nil {
		return err
	}
	for _, region := range regions {
		if region.Classification.IsExcluded() {
			return fmt.Errorf("%w (region %q)", ErrExclusionMistake, region.Name)
		}
	}
	if !cal.IsMetricLength() {
		return fmt.Errorf("expected image pixel units to be a metric length, got %q; set the pixel calibration first", cal.Unit)
	}

	// Stage the exported regions for downstream measurement collection.
	m.set.ClearSelection()
	m.set.SetSelection(regions)

	metaKeys := sortedKeys(opts.Metadata)
	header := []string{"Image Name"}
	for _, k := range metaKeys {
		header = append(header, "Metadata_"+k)
	}
	header = append(header, "Name", "Classification", fmt.Sprintf("Area %s^2", cal.ASCIIUnit()), "Num Detections")
	for _, d := range detections {
		for _, class := range d.Classes {
			header = append(header, "Num "+class)
		}
	}

	rows := make([][]string, 0, len(regions))
	for _, region := range regions {
		row := []string{opts.ImageName}
		for _, k := range metaKeys {
			row = append(row, opts.Metadata[k])
		}
		area := region.Geometry.Area() * cal.PixelWidth * cal.PixelHeight
		total := 0
		var classCounts []string
		for _, d := range detections {
			total += d.Total(region.Geometry)
			counts := d.CountWithin(region.Geometry)
			for _, class := range d.Classes {
				classCounts = append(classCounts, fmt.Sprintf("%d", counts[class]))
			}
		}
		row = append(row,
			region.Name,
			region.Classification.String(),
			fmt.Sprintf("%.2f", area),
			fmt.Sprintf("%d", total),
		)
		row = append(row, classCounts...)
		rows = append(rows, row)
	}

	if err := writeDelimited(fsys, path, header, rows); err != nil {
		return err
	}
	monitoring.Logf("atlas: results %q saved, %d rows", path, len(rows))
	return nil
}

// ExportExcludedList writes the classification string of every logically
// excluded region, one per line, sorted. Same overwrite contract as
// ExportRegionTable: delete first, hard error when the delete fails.
func (m *Manager) ExportExcludedList(fsys fsutil.FileSystem, path string) error {
	excluded, err := m.excludedRegionsSorted()
	if err != nil {
		return err
	}
	monitoring.Logf("atlas: excluded regions: %s", joinNames(excluded))

	m.set.ClearSelection()
	m.set.SetSelection(excluded)

	if err := prepareOutput(fsys, path); err != nil {
		return err
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	for _, region := range excluded {
		if _, err := fmt.Fprintln(w, region.Classification.String()); err != nil {
			w.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	monitoring.Logf("atlas: exclusions %q saved, %d rows", path, len(excluded))
	return nil
}

// writeDelimited writes a header plus rows, comma- or tab-delimited
// depending on the destination extension, after the delete-first dance.
func writeDelimited(fsys fsutil.FileSystem, path string, header []string, rows [][]string) error {
	if err := prepareOutput(fsys, path); err != nil {
		return err
	}
	sep := "\t"
	if strings.HasSuffix(path, ".csv") {
		sep = ","
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, sep)); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, sep)); err != nil {
			w.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// prepareOutput deletes a pre-existing output file and makes sure its
// directory exists. Exports overwrite deterministically: a file we cannot
// delete (e.g. locked by a spreadsheet still holding it open) aborts the
// export.
func prepareOutput(fsys fsutil.FileSystem, path string) error {
	if fsys.Exists(path) {
		if err := fsys.Remove(path); err != nil {
			return fmt.Errorf("could not delete previous output %s: %w", path, err)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
