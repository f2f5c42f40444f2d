package units

import "testing"

func TestIsMetricLengthUnit(t *testing.T) {
	valid := []string{"µm", "um", "UM", "micron", "mm", "nm", " µm "}
	for _, u := range valid {
		if !IsMetricLengthUnit(u) {
			t.Errorf("expected %q to be a valid metric length unit", u)
		}
	}
	invalid := []string{"", "px", "pixel", "inch", "m/s"}
	for _, u := range invalid {
		if IsMetricLengthUnit(u) {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestPixelCalibration(t *testing.T) {
	t.Run("metric", func(t *testing.T) {
		cal := PixelCalibration{PixelWidth: 0.65, PixelHeight: 0.65, Unit: "µm"}
		if !cal.IsMetricLength() {
			t.Error("expected µm calibration to be metric")
		}
		if got := cal.ASCIIUnit(); got != "um" {
			t.Errorf("expected ASCII unit um, got %q", got)
		}
	})

	t.Run("uncalibrated", func(t *testing.T) {
		cal := PixelCalibration{PixelWidth: 1, PixelHeight: 1, Unit: "px"}
		if cal.IsMetricLength() {
			t.Error("pixel units are not a metric length")
		}
	})

	t.Run("zero pixel size", func(t *testing.T) {
		cal := PixelCalibration{Unit: "µm"}
		if cal.IsMetricLength() {
			t.Error("zero pixel size should not be metric")
		}
	})
}
