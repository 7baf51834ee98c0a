package doppler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

const (
	minInstFreqHz = 20.0
	fadeSeconds   = 0.02

	sirenLowHz    = 700.0
	sirenHighHz   = 900.0
	sirenPeriodS  = 0.3
	engineNoiseGn = 0.25
)

// engineHarmonics are the relative amplitudes of harmonics 1..5
var engineHarmonics = []float64{1.0, 0.6, 0.35, 0.18, 0.1}

// SynthesizerConfig bounds and seeds the synthesizer
type SynthesizerConfig struct {
	// MaxSamples caps the pass length; zero disables the cap
	MaxSamples int
	// NoiseSeed seeds the engine noise generator
	NoiseSeed uint64
}

// DefaultSynthesizerConfig allows passes of up to one minute
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		MaxSamples: 60 * SampleRate,
		NoiseSeed:  0x5eed,
	}
}

// Synthesizer renders passes of a moving acoustic source
type Synthesizer struct {
	config SynthesizerConfig
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(config SynthesizerConfig) *Synthesizer {
	return &Synthesizer{config: config}
}

// Synthesize renders req with the default configuration
func Synthesize(req SimulationRequest) (*SynthesizedSignal, error) {
	return NewSynthesizer(DefaultSynthesizerConfig()).Synthesize(req)
}

// Synthesize renders the pass described by req. The result is normalized so
// that its peak magnitude is exactly 1 and both ends fade to zero.
func (s *Synthesizer) Synthesize(req SimulationRequest) (*SynthesizedSignal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	duration := PassLength() / math.Abs(req.SpeedMps)
	n := int(math.Floor(float64(SampleRate) * duration))
	if s.config.MaxSamples > 0 && n > s.config.MaxSamples {
		return nil, newError(ErrCodeInvalidParameter,
			fmt.Sprintf("a %.1fs pass exceeds the limit of %d samples, increase the speed", duration, s.config.MaxSamples))
	}
	if n == 0 {
		return nil, newError(ErrCodeDegenerateSignal, "pass is shorter than one sample")
	}

	traj := NewTrajectory(n, duration, req.SpeedMps, req.PerpendicularDistM)

	var signal []float64
	switch req.Kind {
	case WaveformSiren:
		base := make([]float64, n)
		for i, t := range traj.Times {
			if int(math.Floor(t/sirenPeriodS))%2 == 0 {
				base[i] = sirenLowHz
			} else {
				base[i] = sirenHighHz
			}
		}
		phase := IntegratePhase(InstantaneousFrequency(base, traj.RadialVelocity))
		signal = sine(phase)
	default:
		base := make([]float64, n)
		for i := range base {
			base[i] = req.SourceFreqHz
		}
		phase := IntegratePhase(InstantaneousFrequency(base, traj.RadialVelocity))
		signal = s.render(req.Kind, phase)
	}

	applyEnvelope(signal, traj.Distances)

	if err := normalize(signal); err != nil {
		return nil, err
	}

	return &SynthesizedSignal{Samples: signal, SampleRate: SampleRate}, nil
}

// NewTrajectory samples a pass of the given duration on an n-point grid
// starting at t=0 and excluding t=duration.
func NewTrajectory(n int, duration, speed, perpDist float64) *Trajectory {
	traj := &Trajectory{
		Times:          make([]float64, n),
		Positions:      make([]float64, n),
		Distances:      make([]float64, n),
		RadialVelocity: make([]float64, n),
	}
	if n == 0 {
		return traj
	}

	grid := make([]float64, n+1)
	floats.Span(grid, 0, duration)
	copy(traj.Times, grid[:n])

	for i, t := range traj.Times {
		x := PassStartM + speed*t
		d := math.Hypot(x, perpDist)
		traj.Positions[i] = x
		traj.Distances[i] = d
		traj.RadialVelocity[i] = RadialVelocity(x, speed, d)
	}
	return traj
}

// InstantaneousFrequency Doppler-shifts base and clamps the result to
// [20 Hz, fs/4].
func InstantaneousFrequency(base, vRadial []float64) []float64 {
	maxFreq := float64(SampleRate) / 4
	out := make([]float64, len(base))
	for i := range base {
		f := ObservedFrequency(base[i], vRadial[i])
		if math.IsNaN(f) {
			f = maxFreq
		}
		out[i] = math.Min(math.Max(f, minInstFreqHz), maxFreq)
	}
	return out
}

// IntegratePhase accumulates instantaneous frequency into phase (radians)
func IntegratePhase(fInst []float64) []float64 {
	phase := make([]float64, len(fInst))
	if len(fInst) == 0 {
		return phase
	}
	floats.CumSum(phase, fInst)
	floats.Scale(2*math.Pi/float64(SampleRate), phase)
	return phase
}

func (s *Synthesizer) render(kind WaveformKind, phase []float64) []float64 {
	switch kind {
	case WaveformSquare:
		out := sine(phase)
		for i, v := range out {
			out[i] = sign(v)
		}
		return out
	case WaveformSawtooth:
		out := make([]float64, len(phase))
		for i, p := range phase {
			cycles := p / (2 * math.Pi)
			out[i] = 2*(cycles-math.Floor(cycles)) - 1
		}
		return out
	case WaveformEngine:
		return s.engine(phase)
	default:
		return sine(phase)
	}
}

func (s *Synthesizer) engine(phase []float64) []float64 {
	out := make([]float64, len(phase))
	for k, amp := range engineHarmonics {
		h := float64(k + 1)
		for i, p := range phase {
			out[i] += amp * math.Sin(h*p)
		}
	}

	rng := rand.New(rand.NewPCG(s.config.NoiseSeed, s.config.NoiseSeed^0x9e3779b97f4a7c15))
	noise := make([]float64, len(phase))
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	noise = BoxFilter(noise, SampleRate/4000)
	floats.AddScaled(out, engineNoiseGn, noise)
	return out
}

// BoxFilter is a moving average of width window with zero padding at both
// ends; the output is centred and has the same length as x.
func BoxFilter(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 1 {
		copy(out, x)
		return out
	}
	left := (window - 1) / 2
	right := window - 1 - left

	var sum float64
	// window for output i covers x[i-left : i+right]
	for j := 0; j <= right && j < len(x); j++ {
		sum += x[j]
	}
	for i := range x {
		out[i] = sum / float64(window)
		if in := i + right + 1; in < len(x) {
			sum += x[in]
		}
		if outIdx := i - left; outIdx >= 0 {
			sum -= x[outIdx]
		}
	}
	return out
}

// applyEnvelope applies inverse-distance attenuation and linear fades
func applyEnvelope(signal, distances []float64) {
	for i := range signal {
		signal[i] *= 1.0 / (math.Pow(distances[i], DistanceExponent) + attenuationEpsilon)
	}

	n := len(signal)
	ramp := int(fadeSeconds * float64(SampleRate))
	if ramp > n/2 {
		ramp = n / 2
	}
	if ramp == 0 {
		return
	}
	for i := 0; i < ramp; i++ {
		var g float64
		if ramp > 1 {
			g = float64(i) / float64(ramp-1)
		}
		signal[i] *= g
		signal[n-1-i] *= g
	}
}

func normalize(signal []float64) error {
	var peak float64
	for _, v := range signal {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return newError(ErrCodeDegenerateSignal, "signal has no energy to normalize")
	}
	floats.Scale(1/peak, signal)
	return nil
}

func sine(phase []float64) []float64 {
	out := make([]float64, len(phase))
	for i, p := range phase {
		out[i] = math.Sin(p)
	}
	return out
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
