package doppler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedianKernelSize(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{1, 1}, {2, 1}, {3, 3}, {4, 3}, {10, 9}, {11, 11}, {12, 11}, {1000, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MedianKernelSize(tt.n, 11), "n=%d", tt.n)
	}
}

func TestMedianFilter(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 5, 3, 3}, MedianFilter([]float64{1, 5, 2, 8, 3}, 3))

	// an isolated spike disappears
	spiky := []float64{4, 4, 4, 90, 4, 4, 4}
	assert.Equal(t, 4.0, MedianFilter(spiky, 3)[3])

	x := []float64{3, 1, 2}
	assert.Equal(t, x, MedianFilter(x, 1))
	assert.Equal(t, x, MedianFilter(x, 4))
}

func TestPercentile(t *testing.T) {
	data := []float64{4, 1, 3, 2}
	assert.Equal(t, 2.5, Percentile(data, 50))
	assert.Equal(t, 1.0, Percentile(data, 0))
	assert.Equal(t, 4.0, Percentile(data, 100))
	assert.InDelta(t, 3.94, Percentile(data, 98), 1e-9)
	assert.InDelta(t, 1.06, Percentile(data, 2), 1e-9)
	assert.Equal(t, 7.0, Percentile([]float64{7}, 98))
	assert.True(t, math.IsNaN(Percentile(nil, 50)))

	// input order is preserved
	assert.Equal(t, []float64{4, 1, 3, 2}, data)
}

func TestValidRange(t *testing.T) {
	start, end := ValidRange(100, 0.15)
	assert.Equal(t, 15, start)
	assert.Equal(t, 85, end)

	start, end = ValidRange(2, 0.15)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1, end)

	start, end = ValidRange(1, 0.15)
	assert.Equal(t, start, end)
}

func TestPhysics(t *testing.T) {
	assert.Equal(t, 400.0, PassLength())
	assert.InDelta(t, 500.0, ObservedFrequency(500, 0), 1e-12)
	assert.Greater(t, ObservedFrequency(500, 20), 500.0)
	assert.Less(t, ObservedFrequency(500, -20), 500.0)

	assert.Greater(t, RadialVelocity(-100, 30, 110), 0.0)
	assert.Less(t, RadialVelocity(100, 30, 110), 0.0)

	assert.InDelta(t, 68.6, DopplerVelocity(600, 400), 1e-9)
	assert.Equal(t, 0.0, DopplerVelocity(0, 0))
	assert.Equal(t, 0.0, FrameVelocity(500, 0))
	assert.InDelta(t, 34.3, FrameVelocity(550, 500), 1e-9)

	// a pure Doppler pair inverts to the speed that produced it
	fa := ObservedFrequency(500, 25)
	fr := ObservedFrequency(500, -25)
	v := DopplerVelocity(fa, fr)
	assert.InDelta(t, 25.0, v, 1e-9)
}

func TestDopplerError(t *testing.T) {
	err := newError(ErrCodeDegenerateSignal, "nothing to normalize")
	assert.ErrorIs(t, err, ErrDegenerateSignal)
	assert.Equal(t, "nothing to normalize: degenerate signal", err.Error())
	assert.Equal(t, ErrCodeDegenerateSignal, CodeOf(err))
	assert.Equal(t, "", CodeOf(assert.AnError))
}
