// Package sampler implements the channel-sampling collaborator over
// per-channel grayscale images on disk. One Sampler owns the decoded pixel
// data for one image; callers acquire it for the scope of one image's
// processing and Close it on every exit path.
package sampler

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/atlas-data/region.report/internal/geometry"
)

// histogramBins is the fixed histogram width; intensities are 8-bit after
// grayscale conversion.
const histogramBins = 256

// Sampler reads intensity data from one multi-channel image, stored as one
// grayscale file per channel. Resolution level l downsamples by 2^l, the
// coarse pyramid the auto-exclusion engine works at.
type Sampler struct {
	channels map[string]image.Image
	// cache holds downsampled grayscale planes keyed by channel and level.
	cache map[cacheKey]*image.Gray
}

type cacheKey struct {
	channel string
	level   int
}

// Open loads one grayscale image per channel from the given paths.
func Open(channelPaths map[string]string) (*Sampler, error) {
	channels := make(map[string]image.Image, len(channelPaths))
	for channel, path := range channelPaths {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening channel %q image %s: %w", channel, path, err)
		}
		channels[channel] = img
	}
	return FromImages(channels), nil
}

// FromImages wraps already-decoded channel images, mainly for tests.
func FromImages(channels map[string]image.Image) *Sampler {
	return &Sampler{
		channels: channels,
		cache:    make(map[cacheKey]*image.Gray),
	}
}

// Close releases the decoded pixel data. The Sampler is unusable afterwards.
func (s *Sampler) Close() error {
	s.channels = nil
	s.cache = nil
	return nil
}

// Histogram returns the 256-bin intensity histogram of the whole channel at
// the given resolution level.
func (s *Sampler) Histogram(channel string, resolutionLevel int) ([]int, error) {
	plane, err := s.plane(channel, resolutionLevel)
	if err != nil {
		return nil, err
	}
	hist := make([]int, histogramBins)
	b := plane.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := plane.Pix[(y-b.Min.Y)*plane.Stride : (y-b.Min.Y)*plane.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist, nil
}

// MeanIntensity returns the mean intensity of the pixels inside the
// geometry, sampled at the given resolution level. The geometry is in
// full-resolution image coordinates.
func (s *Sampler) MeanIntensity(geom geometry.Polygon, channel string, resolutionLevel int) (float64, error) {
	plane, err := s.plane(channel, resolutionLevel)
	if err != nil {
		return 0, err
	}
	if len(geom) < 3 {
		return 0, fmt.Errorf("degenerate geometry with %d vertices", len(geom))
	}

	scale := float64(int(1) << resolutionLevel)
	minX, minY, maxX, maxY := geom.Bounds()
	b := plane.Bounds()
	x0 := clamp(int(math.Floor(minX/scale)), b.Min.X, b.Max.X)
	x1 := clamp(int(math.Ceil(maxX/scale))+1, b.Min.X, b.Max.X)
	y0 := clamp(int(math.Floor(minY/scale)), b.Min.Y, b.Max.Y)
	y1 := clamp(int(math.Ceil(maxY/scale))+1, b.Min.Y, b.Max.Y)

	var sum, n float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			// Test the pixel centre mapped back to full resolution.
			pt := geometry.Point{X: (float64(x) + 0.5) * scale, Y: (float64(y) + 0.5) * scale}
			if !geom.Contains(pt) {
				continue
			}
			sum += float64(plane.GrayAt(x, y).Y)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("no pixels of channel %q fall inside the geometry at level %d", channel, resolutionLevel)
	}
	return sum / n, nil
}

// plane returns the grayscale pixels of a channel at a resolution level,
// downsampling on first use.
func (s *Sampler) plane(channel string, level int) (*image.Gray, error) {
	if s.channels == nil {
		return nil, fmt.Errorf("sampler is closed")
	}
	if level < 0 {
		return nil, fmt.Errorf("negative resolution level %d", level)
	}
	key := cacheKey{channel, level}
	if plane, ok := s.cache[key]; ok {
		return plane, nil
	}
	src, ok := s.channels[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", channel)
	}
	gray := imaging.Grayscale(src)
	if level > 0 {
		w := gray.Bounds().Dx() >> level
		h := gray.Bounds().Dy() >> level
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("channel %q is too small for resolution level %d", channel, level)
		}
		gray = imaging.Resize(gray, w, h, imaging.Box)
	}
	plane := toGray(gray)
	s.cache[key] = plane
	return plane, nil
}

// toGray collapses the NRGBA grayscale produced by imaging into a single
// 8-bit plane. Channels are equal after Grayscale; red carries the value.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetGray(x, y, color.Gray{Y: img.NRGBAAt(x, y).R})
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
