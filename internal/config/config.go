// Package config reads the YAML project configuration driving a batch run:
// which atlas to manage, which channels to evaluate, the auto-exclusion
// parameters, detection classes, and export options.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file searched for in the project
// directory and, failing that, in its parent directory.
const DefaultFileName = "atlas-report.yml"

// Config is the root project configuration.
type Config struct {
	// AtlasName selects the imported atlas to manage; empty picks the
	// first available.
	AtlasName string `yaml:"atlasName"`

	// Channels lists the channel identifiers to evaluate, in order. The
	// first is the reference channel in single-reference mode.
	Channels []string `yaml:"channels"`

	AutoExclude AutoExcludeConfig `yaml:"autoExclude"`

	// Detections configures, per channel, the detection class names whose
	// counts the region table exports.
	Detections []DetectionConfig `yaml:"detections"`

	Export ExportConfig `yaml:"export"`
}

// AutoExcludeConfig parameterizes the auto-exclusion engine.
type AutoExcludeConfig struct {
	Enabled bool `yaml:"enabled"`

	// UseMaxAcrossChannels keeps a region when any channel shows signal;
	// otherwise only the first channel is scored.
	UseMaxAcrossChannels bool `yaml:"useMaxAcrossChannels"`

	// ThresholdMultiplier scales the Otsu cutoff. Lower is stricter.
	ThresholdMultiplier float64 `yaml:"thresholdMultiplier"`

	// ResolutionLevel is the coarse pyramid level used for histograms and
	// region sampling.
	ResolutionLevel int `yaml:"resolutionLevel"`
}

// DetectionConfig names the detection classes exported for one channel.
type DetectionConfig struct {
	Channel string   `yaml:"channel"`
	Classes []string `yaml:"classes"`
}

// ExportConfig controls where and how result tables are written.
type ExportConfig struct {
	// Dir is the output directory for region tables and exclusion lists.
	Dir string `yaml:"dir"`

	// Format is "csv" or "tsv".
	Format string `yaml:"format"`

	// MetadataKeys are per-image metadata keys copied into the region
	// table as passthrough columns.
	MetadataKeys []string `yaml:"metadataKeys"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		AutoExclude: AutoExcludeConfig{
			Enabled:             true,
			ThresholdMultiplier: 1.0,
			ResolutionLevel:     4,
		},
		Export: ExportConfig{Dir: "results", Format: "tsv"},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config with defaults applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve finds the named config file in dir or its parent, mirroring how
// operators keep one shared file above several project directories.
func Resolve(dir, name string) (string, error) {
	for _, d := range []string{dir, filepath.Dir(dir)} {
		p := filepath.Join(d, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config file %q not found in %s or its parent", name, dir)
}

func (c *Config) validate() error {
	if c.AutoExclude.ThresholdMultiplier <= 0 {
		return fmt.Errorf("autoExclude.thresholdMultiplier must be > 0, got %g", c.AutoExclude.ThresholdMultiplier)
	}
	if c.AutoExclude.ResolutionLevel < 0 {
		return fmt.Errorf("autoExclude.resolutionLevel must be >= 0, got %d", c.AutoExclude.ResolutionLevel)
	}
	switch c.Export.Format {
	case "", "csv", "tsv":
	default:
		return fmt.Errorf("export.format must be csv or tsv, got %q", c.Export.Format)
	}
	if c.AutoExclude.Enabled && len(c.Channels) == 0 {
		return fmt.Errorf("autoExclude is enabled but no channels are configured")
	}
	return nil
}
