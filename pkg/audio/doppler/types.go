package doppler

import (
	"fmt"
	"math"
	"strings"
)

// WaveformKind selects the timbre of the simulated source
type WaveformKind string

const (
	WaveformSine     WaveformKind = "sine"
	WaveformSquare   WaveformKind = "square"
	WaveformSawtooth WaveformKind = "sawtooth"
	WaveformSiren    WaveformKind = "siren"
	WaveformEngine   WaveformKind = "engine"
)

// WaveformKindFromCode maps the numeric type used by the /simulate API.
// Unknown codes fall back to a sine wave.
func WaveformKindFromCode(code int) WaveformKind {
	switch code {
	case 1:
		return WaveformEngine
	case 2:
		return WaveformSquare
	case 3:
		return WaveformSawtooth
	case 4:
		return WaveformSiren
	default:
		return WaveformSine
	}
}

// ParseWaveformKind accepts either a kind name or its numeric code
func ParseWaveformKind(s string) (WaveformKind, error) {
	switch k := WaveformKind(strings.ToLower(strings.TrimSpace(s))); k {
	case WaveformSine, WaveformSquare, WaveformSawtooth, WaveformSiren, WaveformEngine:
		return k, nil
	}
	var code int
	if _, err := fmt.Sscanf(s, "%d", &code); err == nil {
		return WaveformKindFromCode(code), nil
	}
	return "", newError(ErrCodeInvalidParameter, fmt.Sprintf("unknown waveform kind %q", s))
}

// SimulationRequest describes one simulated pass
type SimulationRequest struct {
	Kind               WaveformKind `json:"kind"`
	SourceFreqHz       float64      `json:"source_freq_hz"`
	SpeedMps           float64      `json:"source_speed_mps"`
	PerpendicularDistM float64      `json:"perpendicular_dist_m"`
}

// Validate checks the synthesis preconditions
func (r SimulationRequest) Validate() error {
	for name, v := range map[string]float64{
		"frequency": r.SourceFreqHz,
		"speed":     r.SpeedMps,
		"distance":  r.PerpendicularDistM,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newError(ErrCodeInvalidParameter, name+" must be finite")
		}
	}
	if r.SpeedMps == 0 {
		return newError(ErrCodeInvalidParameter, "speed must be non-zero")
	}
	if r.PerpendicularDistM <= 0 {
		return newError(ErrCodeInvalidParameter, "perpendicular distance must be positive")
	}
	if r.SourceFreqHz <= 0 {
		return newError(ErrCodeInvalidParameter, "source frequency must be positive")
	}
	return nil
}

// Trajectory is the source motion sampled on the synthesis time grid
type Trajectory struct {
	Times          []float64
	Positions      []float64
	Distances      []float64
	RadialVelocity []float64
}

// Len returns the number of samples on the grid
func (t *Trajectory) Len() int {
	return len(t.Times)
}

// SynthesizedSignal is a normalized mono signal
type SynthesizedSignal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds
func (s *SynthesizedSignal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// FrequencyTrack holds the dominant frequency of each analysis frame
type FrequencyTrack struct {
	Times       []float64 `json:"times"`
	Frequencies []float64 `json:"frequencies"`
}

// VelocityEstimate is the result of inverting a frequency track
type VelocityEstimate struct {
	FApproachHz          float64   `json:"f_approach"`
	FRecedeHz            float64   `json:"f_recede"`
	FSourceHz            float64   `json:"f_source"`
	EstimatedVelocityMps float64   `json:"estimated_velocity"`
	PerFrameVelocities   []float64 `json:"velocities"`
}

// Analysis is everything the estimator derives from one recording
type Analysis struct {
	// Track holds the smoothed dominant frequency per frame
	Track          FrequencyTrack   `json:"track"`
	RawFrequencies []float64        `json:"raw_frequencies"`
	Estimate       VelocityEstimate `json:"estimate"`
	// Spectrogram is frames x band bins in dB relative to the global maximum
	Spectrogram [][]float64 `json:"spectrogram"`
	FreqAxis    []float64   `json:"freq_axis"`
	SampleRate  int         `json:"sample_rate"`
	FFTSize     int         `json:"n_fft"`
	HopLength   int         `json:"hop_length"`
}
