package sampler

import (
	"image"
	"image/color"
	"testing"

	"github.com/atlas-data/region.report/internal/geometry"
)

// flatImage builds a w×h grayscale image with a uniform intensity.
func flatImage(w, h int, value uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	return img
}

// splitImage builds an image whose left half has one intensity and right
// half another.
func splitImage(w, h int, left, right uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := left
			if x >= w/2 {
				v = right
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestHistogram(t *testing.T) {
	t.Run("uniform image at level 0", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": flatImage(16, 16, 42)})
		defer s.Close()

		hist, err := s.Histogram("DAPI", 0)
		if err != nil {
			t.Fatalf("Histogram failed: %v", err)
		}
		if len(hist) != 256 {
			t.Fatalf("expected 256 bins, got %d", len(hist))
		}
		if hist[42] != 16*16 {
			t.Errorf("expected all %d pixels in bin 42, got %d", 16*16, hist[42])
		}
	})

	t.Run("downsampling shrinks counts", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": flatImage(32, 32, 100)})
		defer s.Close()

		hist, err := s.Histogram("DAPI", 2)
		if err != nil {
			t.Fatalf("Histogram failed: %v", err)
		}
		total := 0
		for _, c := range hist {
			total += c
		}
		if total != 8*8 {
			t.Errorf("expected 64 pixels at level 2, got %d", total)
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		s := FromImages(map[string]image.Image{})
		defer s.Close()
		if _, err := s.Histogram("GFP", 0); err == nil {
			t.Error("expected error for unknown channel")
		}
	})
}

func TestMeanIntensity(t *testing.T) {
	t.Run("region in bright half", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": splitImage(64, 64, 10, 200)})
		defer s.Close()

		bright := geometry.Rect(40, 8, 16, 16)
		mean, err := s.MeanIntensity(bright, "DAPI", 0)
		if err != nil {
			t.Fatalf("MeanIntensity failed: %v", err)
		}
		if mean != 200 {
			t.Errorf("expected mean 200 in bright half, got %f", mean)
		}
	})

	t.Run("geometry outside the image", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": flatImage(8, 8, 50)})
		defer s.Close()

		far := geometry.Rect(1000, 1000, 10, 10)
		if _, err := s.MeanIntensity(far, "DAPI", 0); err == nil {
			t.Error("expected error when no pixels fall inside the geometry")
		}
	})

	t.Run("degenerate geometry", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": flatImage(8, 8, 50)})
		defer s.Close()
		if _, err := s.MeanIntensity(geometry.Polygon{{X: 0, Y: 0}}, "DAPI", 0); err == nil {
			t.Error("expected error for degenerate geometry")
		}
	})

	t.Run("closed sampler", func(t *testing.T) {
		s := FromImages(map[string]image.Image{"DAPI": flatImage(8, 8, 50)})
		s.Close()
		if _, err := s.Histogram("DAPI", 0); err == nil {
			t.Error("expected error after Close")
		}
	})
}
