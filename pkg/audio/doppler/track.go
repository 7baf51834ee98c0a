package doppler

import (
	"math"
	"sort"
)

// MedianKernelSize returns the odd median kernel used for a track of n
// frames: min(maxKernel, n) rounded down to an odd value.
func MedianKernelSize(n, maxKernel int) int {
	k := n
	if k%2 == 0 {
		k--
	}
	if maxKernel < k {
		k = maxKernel
	}
	return k
}

// MedianFilter applies a running median of odd width kernel. Samples beyond
// either end are treated as zero. Kernels below 3 leave x unchanged.
func MedianFilter(x []float64, kernel int) []float64 {
	out := make([]float64, len(x))
	if kernel < 3 || kernel%2 == 0 {
		copy(out, x)
		return out
	}

	half := kernel / 2
	win := make([]float64, kernel)
	for i := range x {
		for j := 0; j < kernel; j++ {
			idx := i - half + j
			if idx < 0 || idx >= len(x) {
				win[j] = 0
			} else {
				win[j] = x[idx]
			}
		}
		sort.Float64s(win)
		out[i] = win[half]
	}
	return out
}

// Percentile returns the p-th percentile of data using linear interpolation
// between closest ranks. NaN is returned for empty input.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// ValidRange returns the [start, end) frame range left after discarding the
// given fraction of frames at each end.
func ValidRange(n int, trim float64) (start, end int) {
	return int(float64(n) * trim), int(float64(n) * (1 - trim))
}
