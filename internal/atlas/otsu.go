package atlas

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// OtsuThreshold computes the histogram bin that maximizes between-class
// intensity variance, the data-driven boundary between background and
// signal. The histogram is fixed-width; the returned threshold is the bin
// index such that bins at or below it are background.
func OtsuThreshold(hist []int) (int, error) {
	if len(hist) == 0 {
		return 0, fmt.Errorf("empty histogram")
	}
	weights := make([]float64, len(hist))
	moments := make([]float64, len(hist))
	for i, c := range hist {
		if c < 0 {
			return 0, fmt.Errorf("negative count %d in histogram bin %d", c, i)
		}
		weights[i] = float64(c)
		moments[i] = float64(i) * float64(c)
	}
	total := floats.Sum(weights)
	if total == 0 {
		return 0, fmt.Errorf("histogram has no samples")
	}
	sumAll := floats.Sum(moments)

	var (
		wBack, sumBack float64
		bestVar        float64 = -1
		best           int
	)
	for t := 0; t < len(hist); t++ {
		wBack += weights[t]
		if wBack == 0 {
			continue
		}
		wFore := total - wBack
		if wFore == 0 {
			break
		}
		sumBack += moments[t]
		meanBack := sumBack / wBack
		meanFore := (sumAll - sumBack) / wFore
		diff := meanBack - meanFore
		between := wBack * wFore * diff * diff
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	if bestVar < 0 {
		return 0, fmt.Errorf("histogram is concentrated in a single bin")
	}
	return best, nil
}
