// Package units provides shared constants and validation for pixel
// calibration length units.
package units

import "strings"

// Micrometer is the unit atlas registrations normally calibrate in. The µ
// glyph is poorly handled by some spreadsheet tools, so exports use the
// ASCII form.
const Micrometer = "µm"

// Metric length unit constants, as image readers report them.
const (
	UM = "µm"
	MM = "mm"
	NM = "nm"
)

// validLengthUnits maps every accepted spelling to its canonical form.
var validLengthUnits = map[string]string{
	"µm":         UM,
	"um":         UM,
	"micrometer": UM,
	"micron":     UM,
	"mm":         MM,
	"millimeter": MM,
	"nm":         NM,
	"nanometer":  NM,
}

// IsMetricLengthUnit checks if the given unit is a recognised metric length.
func IsMetricLengthUnit(unit string) bool {
	_, ok := validLengthUnits[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// Canonical returns the canonical spelling of a length unit, or the input
// unchanged when unknown.
func Canonical(unit string) string {
	if c, ok := validLengthUnits[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return c
	}
	return unit
}

// PixelCalibration relates pixel coordinates to physical lengths. Width and
// height are the physical size of one pixel in Unit.
type PixelCalibration struct {
	PixelWidth  float64
	PixelHeight float64
	Unit        string
}

// IsMetricLength reports whether the calibration is usable for physical
// area export.
func (c PixelCalibration) IsMetricLength() bool {
	return c.PixelWidth > 0 && c.PixelHeight > 0 && IsMetricLengthUnit(c.Unit)
}

// ASCIIUnit returns the unit with the µ glyph replaced by "u", the form
// used in export column headers.
func (c PixelCalibration) ASCIIUnit() string {
	return strings.ReplaceAll(Canonical(c.Unit), "µ", "u")
}
