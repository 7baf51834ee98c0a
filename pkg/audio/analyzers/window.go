package analyzers

import (
	"sync"

	"github.com/mjibson/go-dsp/window"
)

// WindowGenerator caches analysis windows by length
type WindowGenerator struct {
	mu   sync.Mutex
	hann map[int][]float64
}

// NewWindowGenerator creates an empty window cache
func NewWindowGenerator() *WindowGenerator {
	return &WindowGenerator{hann: make(map[int][]float64)}
}

// Hann returns a periodic Hann window of length n, the DFT-even form used for
// spectral analysis. The returned slice must not be modified.
func (wg *WindowGenerator) Hann(n int) []float64 {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	if w, ok := wg.hann[n]; ok {
		return w
	}
	// the symmetric window of length n+1 without its last point is periodic
	w := window.Hann(n + 1)[:n]
	wg.hann[n] = w
	return w
}
