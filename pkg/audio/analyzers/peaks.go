package analyzers

import "sort"

// FindPeaks returns the indices of local maxima in x whose height is at
// least minHeight, thinned so that no two peaks are closer than minDistance
// samples. Flat peaks resolve to their middle sample (rounded down). When two
// peaks are too close the taller one wins, or the later one on a tie.
// Endpoints are never peaks.
func FindPeaks(x []float64, minHeight float64, minDistance int) []int {
	candidates := localMaxima(x)

	peaks := candidates[:0]
	for _, p := range candidates {
		if x[p] >= minHeight {
			peaks = append(peaks, p)
		}
	}

	if minDistance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(x, peaks, minDistance)
	}
	return peaks
}

func localMaxima(x []float64) []int {
	var peaks []int
	iMax := len(x) - 1
	for i := 1; i < iMax; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < iMax && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peaks = append(peaks, (i+ahead-1)/2)
			i = ahead - 1
		}
	}
	return peaks
}

func selectByDistance(x []float64, peaks []int, minDistance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	// tallest first; among equal heights the later peak wins
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < minDistance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < minDistance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// ParabolicOffset fits a parabola through three neighbouring samples centred
// on a peak and returns the vertex offset in bins. A flat triple yields 0.
func ParabolicOffset(left, centre, right float64) float64 {
	denom := left - 2*centre + right
	if denom == 0 {
		return 0
	}
	return 0.5 * (left - right) / denom
}

// ArgMax returns the index of the first maximum of x, or -1 for an empty slice
func ArgMax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
