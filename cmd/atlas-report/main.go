// atlas-report runs the exclusion pipeline over a project directory of
// GeoJSON image exports: repair exclusion state, auto-exclude low-signal
// regions, persist exclusion reports and write per-region result tables.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"gopkg.in/yaml.v3"

	"github.com/atlas-data/region.report/internal/atlas"
	"github.com/atlas-data/region.report/internal/atlas/storage/sqlite"
	"github.com/atlas-data/region.report/internal/config"
	"github.com/atlas-data/region.report/internal/fsutil"
	"github.com/atlas-data/region.report/internal/monitoring"
	"github.com/atlas-data/region.report/internal/sampler"
	"github.com/atlas-data/region.report/internal/units"
	"github.com/atlas-data/region.report/internal/version"
)

// channelImageExtensions are tried in order when locating the per-channel
// grayscale image next to a GeoJSON export.
var channelImageExtensions = []string{".tif", ".tiff", ".png"}

func main() {
	project := flag.String("project", ".", "Project directory holding per-image GeoJSON exports")
	configPath := flag.String("config", "", "Config file (default: "+config.DefaultFileName+" in the project directory or its parent)")
	image := flag.String("image", "", "Process only this image (GeoJSON base name)")
	pixelWidth := flag.Float64("pixel-width", 0, "Pixel width in physical units")
	pixelHeight := flag.Float64("pixel-height", 0, "Pixel height in physical units (defaults to pixel-width)")
	pixelUnit := flag.String("pixel-unit", "µm", "Physical unit of the pixel calibration")
	dbPath := flag.String("db", "", "SQLite database for exclusion reports (optional)")
	restore := flag.String("restore", "", "Delete the persisted reports for this marker ID and exit (requires -db)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("atlas-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	log.SetFlags(log.LstdFlags)
	monitoring.SetLogger(log.Printf)

	var store *sqlite.ReportStore
	if *dbPath != "" {
		db, err := sql.Open("sqlite", *dbPath)
		if err != nil {
			log.Fatalf("open report database: %v", err)
		}
		defer db.Close()
		store, err = sqlite.NewReportStore(db)
		if err != nil {
			log.Fatalf("init report database: %v", err)
		}
	}

	if *restore != "" {
		if store == nil {
			log.Fatal("-restore requires -db")
		}
		err := store.DeleteByMarker(atlas.NodeID(*restore))
		if errors.Is(err, sql.ErrNoRows) {
			log.Fatalf("no persisted reports for marker %s", *restore)
		}
		if err != nil {
			log.Fatalf("restore marker %s: %v", *restore, err)
		}
		log.Printf("restored marker %s", *restore)
		return
	}

	if *pixelWidth <= 0 {
		log.Fatal("-pixel-width must be > 0; results need a physical calibration")
	}
	if *pixelHeight <= 0 {
		*pixelHeight = *pixelWidth
	}
	cal := units.PixelCalibration{PixelWidth: *pixelWidth, PixelHeight: *pixelHeight, Unit: *pixelUnit}
	if !cal.IsMetricLength() {
		log.Fatalf("pixel unit %q is not a metric length", *pixelUnit)
	}

	path := *configPath
	if path == "" {
		resolved, err := config.Resolve(*project, config.DefaultFileName)
		if err != nil {
			log.Fatalf("%v (pass -config explicitly)", err)
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("using config %s", path)

	images, err := listImages(*project, *image)
	if err != nil {
		log.Fatal(err)
	}
	if len(images) == 0 {
		log.Fatalf("no GeoJSON exports found in %s", *project)
	}

	failed := 0
	for _, geojsonPath := range images {
		if err := processImage(geojsonPath, cfg, cal, store); err != nil {
			log.Printf("%s: %v", filepath.Base(geojsonPath), err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d images failed", failed, len(images))
	}
	log.Printf("%d images processed", len(images))
}

// listImages returns the GeoJSON exports to process, alphabetically. With a
// non-empty image name only that export is returned.
func listImages(project, image string) ([]string, error) {
	if image != "" {
		p := filepath.Join(project, strings.TrimSuffix(image, ".geojson")+".geojson")
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("image export %s: %w", p, err)
		}
		return []string{p}, nil
	}
	matches, err := filepath.Glob(filepath.Join(project, "*.geojson"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// processImage runs the whole pipeline for one image. Failures are reported
// per image so a batch run continues with the rest.
func processImage(geojsonPath string, cfg *config.Config, cal units.PixelCalibration, store *sqlite.ReportStore) error {
	base := strings.TrimSuffix(filepath.Base(geojsonPath), ".geojson")
	imageName := base + ".tiff"
	log.Printf("processing %s", base)

	data, err := os.ReadFile(geojsonPath)
	if err != nil {
		return err
	}
	set, err := atlas.LoadObjectSet(data)
	if err != nil {
		return err
	}
	m, err := atlas.NewManager(cfg.AtlasName, set)
	if err != nil {
		return err
	}
	if err := m.RepairExclusions(); err != nil {
		return fmt.Errorf("repairing exclusions: %w", err)
	}

	if cfg.AutoExclude.Enabled {
		reports, err := autoExclude(m, geojsonPath, imageName, cfg)
		if err != nil {
			return err
		}
		if store != nil && len(reports) > 0 {
			for i := range reports {
				reports[i].ProjectFile = geojsonPath
			}
			if err := store.InsertAll(reports); err != nil {
				return fmt.Errorf("persisting exclusion reports: %w", err)
			}
		}
		for _, r := range reports {
			log.Printf("  excluded %q (marker %s, percentile %.1f)", r.RegionName, r.MarkerID, r.PercentileRank)
		}
	}

	detections := make([]*atlas.DetectionSet, 0, len(cfg.Detections))
	for _, d := range cfg.Detections {
		detections = append(detections, atlas.NewDetectionSet(d.Channel, d.Classes, set))
	}

	metadata, err := loadMetadata(geojsonPath, cfg.Export.MetadataKeys)
	if err != nil {
		return err
	}

	format := cfg.Export.Format
	if format == "" {
		format = "tsv"
	}
	outDir := cfg.Export.Dir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(filepath.Dir(geojsonPath), outDir)
	}
	fsys := fsutil.OSFileSystem{}
	tablePath := filepath.Join(outDir, base+"_regions."+format)
	if err := m.ExportRegionTable(fsys, tablePath, detections, cal, atlas.ExportOptions{
		ImageName: imageName,
		Metadata:  metadata,
	}); err != nil {
		return err
	}
	listPath := filepath.Join(outDir, base+"_regions_to_exclude.txt")
	return m.ExportExcludedList(fsys, listPath)
}

// autoExclude opens the channel images next to the GeoJSON export and runs
// the auto-exclusion engine. The sampler holds decoded pixel data; it is
// closed before returning on every path.
func autoExclude(m *atlas.Manager, geojsonPath, imageName string, cfg *config.Config) ([]atlas.ExclusionReport, error) {
	paths := make(map[string]string, len(cfg.Channels))
	channels := make([]string, 0, len(cfg.Channels))
	for _, channel := range cfg.Channels {
		p, ok := channelImagePath(geojsonPath, channel)
		if !ok {
			log.Printf("  no image for channel %q, skipping it", channel)
			continue
		}
		paths[channel] = p
		channels = append(channels, channel)
	}
	if len(channels) == 0 {
		log.Printf("  no channel images found, skipping auto-exclusion")
		return nil, nil
	}

	s, err := sampler.Open(paths)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	mode := atlas.ModeSingleReference
	if cfg.AutoExclude.UseMaxAcrossChannels {
		mode = atlas.ModeMaxAcrossChannels
	}
	return m.AutoExcludeEmptyRegions(s, imageName, atlas.AutoExcludeParams{
		Channels:            channels,
		Mode:                mode,
		ThresholdMultiplier: cfg.AutoExclude.ThresholdMultiplier,
		ResolutionLevel:     cfg.AutoExclude.ResolutionLevel,
	})
}

// channelImagePath locates the grayscale image of one channel next to the
// GeoJSON export: "<base>_<channel>" with a known image extension.
func channelImagePath(geojsonPath, channel string) (string, bool) {
	base := strings.TrimSuffix(geojsonPath, ".geojson")
	for _, ext := range channelImageExtensions {
		p := base + "_" + channel + ext
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// loadMetadata reads the optional "<base>.meta.yml" sidecar and keeps the
// configured keys. A missing sidecar means no metadata columns.
func loadMetadata(geojsonPath string, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	sidecar := strings.TrimSuffix(geojsonPath, ".geojson") + ".meta.yml"
	data, err := os.ReadFile(sidecar)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all map[string]string
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing metadata sidecar %s: %w", sidecar, err)
	}
	metadata := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			metadata[k] = v
		}
	}
	return metadata, nil
}
