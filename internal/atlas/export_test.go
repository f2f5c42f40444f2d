package atlas

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"

	"github.com/atlas-data/region.report/internal/fsutil"
	"github.com/atlas-data/region.report/internal/geometry"
	"github.com/atlas-data/region.report/internal/units"
)

func micronCalibration() units.PixelCalibration {
	return units.PixelCalibration{PixelWidth: 2, PixelHeight: 2, Unit: "µm"}
}

// addDetections plants a "DAPI cells" container under VISp with three
// detections: two of class AF647 (one in VISp, one in MOs) and one
// unconfigured class in MOs.
func addDetections(set *ObjectSet) *DetectionSet {
	container := &Node{
		ID:   NewNodeID(),
		Name: "DAPI cells",
		Kind: KindContainer,
	}
	findByName(set, "VISp").AddChild(container)

	cells := []struct {
		class string
		x, y  float64
	}{
		{"AF647", 180, 180},
		{"AF647", 550, 150},
		{"other", 600, 180},
	}
	for _, c := range cells {
		container.AddChild(&Node{
			ID:             NewNodeID(),
			Name:           c.class,
			Classification: plain(c.class),
			Geometry:       geometry.Rect(c.x-1, c.y-1, 2, 2),
			Kind:           KindDetection,
		})
	}
	set.AddTree(container)
	return NewDetectionSet("DAPI", []string{"AF647"}, set)
}

func TestExportRegionTable(t *testing.T) {
	set, m := testAtlas(t)
	detections := addDetections(set)
	fsys := fsutil.NewMemoryFileSystem()

	err := m.ExportRegionTable(fsys, "results/brain01.tsv", []*DetectionSet{detections}, micronCalibration(), ExportOptions{
		ImageName: "brain01.tiff",
		Metadata:  map[string]string{"group": "ctrl", "animal": "a1"},
	})
	if err != nil {
		t.Fatalf("ExportRegionTable failed: %v", err)
	}

	data, err := fsys.ReadFile("results/brain01.tsv")
	if err != nil {
		t.Fatalf("reading exported table: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, "region_table", data)

	// Exported regions stay staged for measurement collection.
	selected := m.ObjectSet().Selection()
	if len(selected) != 6 {
		t.Errorf("expected 6 selected regions, got %d", len(selected))
	}
	for _, n := range selected {
		if n.Kind == KindContainer {
			t.Errorf("detection container %q leaked into the export selection", n.Name)
		}
	}
}

func TestExportRegionTableCSV(t *testing.T) {
	set, m := testAtlas(t)
	detections := addDetections(set)
	fsys := fsutil.NewMemoryFileSystem()

	err := m.ExportRegionTable(fsys, "brain01.csv", []*DetectionSet{detections}, micronCalibration(), ExportOptions{ImageName: "brain01.tiff"})
	if err != nil {
		t.Fatalf("ExportRegionTable failed: %v", err)
	}
	data, err := fsys.ReadFile("brain01.csv")
	if err != nil {
		t.Fatalf("reading exported table: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d lines", len(lines))
	}
	wantHeader := []string{"Image Name", "Name", "Classification", "Area um^2", "Num Detections", "Num AF647"}
	if diff := cmp.Diff(wantHeader, strings.Split(lines[0], ",")); diff != "" {
		t.Errorf("csv header mismatch (-want +got):\n%s", diff)
	}
}

func TestExportRegionTableRefusesMistakenExclusion(t *testing.T) {
	set, m := testAtlas(t)
	findByName(set, "MOs").Classification = Excluded
	fsys := fsutil.NewMemoryFileSystem()

	err := m.ExportRegionTable(fsys, "out.tsv", nil, micronCalibration(), ExportOptions{ImageName: "brain01.tiff"})
	if !errors.Is(err, ErrExclusionMistake) {
		t.Fatalf("expected ErrExclusionMistake, got %v", err)
	}
	if !strings.Contains(err.Error(), "MOs") {
		t.Errorf("error should name the offending region, got %q", err)
	}
	if fsys.Exists("out.tsv") {
		t.Error("no file may be written when the hierarchy is inconsistent")
	}
}

func TestExportRegionTableRequiresMetricCalibration(t *testing.T) {
	_, m := testAtlas(t)
	fsys := fsutil.NewMemoryFileSystem()

	err := m.ExportRegionTable(fsys, "out.tsv", nil, units.PixelCalibration{PixelWidth: 1, PixelHeight: 1, Unit: "px"}, ExportOptions{})
	if err == nil {
		t.Fatal("expected error for non-metric pixel calibration")
	}
	if fsys.Exists("out.tsv") {
		t.Error("no file may be written without a metric calibration")
	}
}

func TestExportRegionTableLockedOutput(t *testing.T) {
	set, m := testAtlas(t)
	detections := addDetections(set)
	fsys := fsutil.NewMemoryFileSystem()

	w, err := fsys.Create("out.tsv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("stale results\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	fsys.LockedFiles["out.tsv"] = true

	err = m.ExportRegionTable(fsys, "out.tsv", []*DetectionSet{detections}, micronCalibration(), ExportOptions{ImageName: "brain01.tiff"})
	if err == nil {
		t.Fatal("expected hard error when the previous output cannot be deleted")
	}
	if !strings.Contains(err.Error(), "could not delete previous output") {
		t.Errorf("unexpected error: %v", err)
	}
	data, err := fsys.ReadFile("out.tsv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "stale results\n" {
		t.Errorf("previous output must stay untouched, got %q", data)
	}
}

func TestExportExcludedList(t *testing.T) {
	t.Run("sorted classification strings", func(t *testing.T) {
		set, m := testAtlas(t)
		addMarkerFor(set, findByName(set, "MOs"))
		addMarkerFor(set, findByName(set, "fiber tracts"))
		fsys := fsutil.NewMemoryFileSystem()

		if err := m.ExportExcludedList(fsys, "brain01_regions_to_exclude.txt"); err != nil {
			t.Fatalf("ExportExcludedList failed: %v", err)
		}
		data, err := fsys.ReadFile("brain01_regions_to_exclude.txt")
		if err != nil {
			t.Fatal(err)
		}
		want := "MOs\nfiber tracts\n"
		if string(data) != want {
			t.Errorf("excluded list mismatch: got %q, want %q", data, want)
		}
	})

	t.Run("empty exclusion state writes an empty file", func(t *testing.T) {
		_, m := testAtlas(t)
		fsys := fsutil.NewMemoryFileSystem()

		if err := m.ExportExcludedList(fsys, "empty.txt"); err != nil {
			t.Fatalf("ExportExcludedList failed: %v", err)
		}
		data, err := fsys.ReadFile("empty.txt")
		if err != nil {
			t.Fatal(err)
		}
		if len(data) != 0 {
			t.Errorf("expected empty file, got %q", data)
		}
	})

	t.Run("creates the output directory", func(t *testing.T) {
		set, m := testAtlas(t)
		addMarkerFor(set, findByName(set, "MOs"))
		fsys := fsutil.NewMemoryFileSystem()

		if err := m.ExportExcludedList(fsys, "results/brain01_regions_to_exclude.txt"); err != nil {
			t.Fatalf("ExportExcludedList into a fresh directory failed: %v", err)
		}
		if !fsys.Exists("results") {
			t.Error("output directory was not created")
		}
		if _, err := fsys.ReadFile("results/brain01_regions_to_exclude.txt"); err != nil {
			t.Errorf("reading exported list: %v", err)
		}
	})

	t.Run("locked output is a hard error", func(t *testing.T) {
		set, m := testAtlas(t)
		addMarkerFor(set, findByName(set, "MOs"))
		fsys := fsutil.NewMemoryFileSystem()

		w, _ := fsys.Create("list.txt")
		w.Close()
		fsys.LockedFiles["list.txt"] = true

		if err := m.ExportExcludedList(fsys, "list.txt"); err == nil {
			t.Fatal("expected hard error when the previous output cannot be deleted")
		}
	})
}
