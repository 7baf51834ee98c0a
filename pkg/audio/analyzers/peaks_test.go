package analyzers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name        string
		x           []float64
		minHeight   float64
		minDistance int
		want        []int
	}{
		{"simple", []float64{0, 1, 0, 3, 0}, 0, 1, []int{1, 3}},
		{"height filter", []float64{0, 1, 0, 3, 0}, 1.5, 1, []int{3}},
		{"height is inclusive", []float64{0, 1, 0, 3, 0}, 1, 1, []int{1, 3}},
		{"odd plateau", []float64{0, 2, 2, 2, 0}, 0, 1, []int{2}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, 0, 1, []int{1}},
		{"endpoints are not peaks", []float64{5, 1, 5}, 0, 1, nil},
		{"plateau touching the end", []float64{0, 2, 2}, 0, 1, nil},
		{"flat", []float64{0, 0, 0, 0}, 0, 1, nil},
		{"distance keeps the taller", []float64{0, 2, 2, 2, 0, 0, 0, 3, 0}, 0, 6, []int{7}},
		{"distance tie keeps the later", []float64{0, 2, 0, 2, 0}, 0, 3, []int{3}},
		{"distance tie chain", []float64{0, 1, 0, 1, 0, 1, 0}, 0, 3, []int{1, 5}},
		{"distance allows far peaks", []float64{0, 2, 0, 0, 0, 3, 0}, 0, 4, []int{1, 5}},
		{"short input", []float64{1, 2}, 0, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.x, tt.minHeight, tt.minDistance)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParabolicOffset(t *testing.T) {
	assert.Equal(t, 0.0, ParabolicOffset(1, 2, 1))
	assert.Equal(t, 0.0, ParabolicOffset(1, 1, 1))

	// samples of -(x-0.3)^2 at -1, 0, 1
	assert.InDelta(t, 0.3, ParabolicOffset(-1.69, -0.09, -0.49), 1e-12)
	assert.InDelta(t, -0.3, ParabolicOffset(-0.49, -0.09, -1.69), 1e-12)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 1, ArgMax([]float64{1, 3, 3}))
	assert.Equal(t, 0, ArgMax([]float64{7}))
	assert.Equal(t, -1, ArgMax(nil))
}
