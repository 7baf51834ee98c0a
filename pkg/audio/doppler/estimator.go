package doppler

import (
	"fmt"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/analyzers"
)

// EstimatorConfig holds the analysis parameters
type EstimatorConfig struct {
	FFTSize   int
	HopLength int

	MinFreqHz float64
	MaxFreqHz float64

	// PeakHeightRatio is the minimum peak height relative to the frame maximum
	PeakHeightRatio float64
	// PeakDistance is the minimum separation between peaks, in bins
	PeakDistance int

	MaxMedianKernel int
	// TrimFraction of frames is discarded at each end of the track
	TrimFraction float64

	ApproachPercentile float64
	RecedePercentile   float64

	// Amin and TopDB shape the display spectrogram
	Amin  float64
	TopDB float64

	// MaxSamples caps the input length; zero disables the cap
	MaxSamples int
}

// DefaultEstimatorConfig returns the reference analysis parameters
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		FFTSize:            8192,
		HopLength:          256,
		MinFreqHz:          100,
		MaxFreqHz:          10000,
		PeakHeightRatio:    0.3,
		PeakDistance:       10,
		MaxMedianKernel:    11,
		TrimFraction:       0.15,
		ApproachPercentile: 98,
		RecedePercentile:   2,
		Amin:               1e-5,
		TopDB:              80,
		MaxSamples:         60 * SampleRate,
	}
}

// Validate checks that the parameters describe a usable analysis
func (c EstimatorConfig) Validate() error {
	switch {
	case c.FFTSize <= 0 || c.HopLength <= 0:
		return fmt.Errorf("fft size and hop length must be positive")
	case c.MinFreqHz < 0 || c.MaxFreqHz <= c.MinFreqHz:
		return fmt.Errorf("invalid analysis band [%g, %g] Hz", c.MinFreqHz, c.MaxFreqHz)
	case c.PeakHeightRatio < 0 || c.PeakHeightRatio > 1:
		return fmt.Errorf("peak height ratio must be between 0 and 1")
	case c.TrimFraction < 0 || c.TrimFraction >= 0.5:
		return fmt.Errorf("trim fraction must be in [0, 0.5)")
	case c.RecedePercentile < 0 || c.ApproachPercentile > 100 || c.RecedePercentile > c.ApproachPercentile:
		return fmt.Errorf("invalid percentiles %g/%g", c.ApproachPercentile, c.RecedePercentile)
	}
	return nil
}

// Estimator recovers source frequency and velocity from a recorded pass
type Estimator struct {
	config EstimatorConfig
}

// NewEstimator creates an estimator
func NewEstimator(config EstimatorConfig) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid estimator config: %w", err)
	}
	return &Estimator{config: config}, nil
}

// Config returns the estimator parameters
func (e *Estimator) Config() EstimatorConfig {
	return e.config
}

// Analyze runs the full pipeline on mono samples recorded at sampleRate
func (e *Estimator) Analyze(samples []float64, sampleRate int) (*Analysis, error) {
	if len(samples) == 0 {
		return nil, newError(ErrCodeEmptySignal, "decoded waveform has no samples")
	}
	if sampleRate <= 0 {
		return nil, newError(ErrCodeInvalidParameter, fmt.Sprintf("sample rate must be positive, got %d", sampleRate))
	}
	if e.config.MaxSamples > 0 && len(samples) > e.config.MaxSamples {
		return nil, newError(ErrCodeSignalTooLong,
			fmt.Sprintf("%d samples exceed the analysis limit of %d", len(samples), e.config.MaxSamples))
	}

	if analyzers.FrameCount(len(samples), e.config.FFTSize, e.config.HopLength) == 0 {
		return nil, newError(ErrCodeInsufficientData,
			fmt.Sprintf("%d samples are fewer than one %d-point frame", len(samples), e.config.FFTSize))
	}

	sa := analyzers.NewSpectralAnalyzer(sampleRate)
	freqs := sa.GetFrequencyBins(e.config.FFTSize/2 + 1)
	lo, hi := analyzers.BandIndices(freqs, e.config.MinFreqHz, e.config.MaxFreqHz)
	if hi-lo == 0 {
		return nil, newError(ErrCodeInsufficientData, "analysis band contains no frequency bins")
	}
	band := freqs[lo:hi]

	spec, err := sa.ComputeBandSTFT(samples, e.config.FFTSize, e.config.HopLength, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	raw := make([]float64, spec.TimeFrames)
	for t, col := range spec.Magnitude {
		raw[t] = e.DominantFrequency(col, band, spec.FreqResolution)
	}

	// the magnitudes are not needed past this point
	spectrogram := spec.Magnitude
	analyzers.AmplitudeToDBInPlace(spectrogram, spec.MaxMagnitude, e.config.Amin, e.config.TopDB)

	smoothed, estimate, err := e.EstimateFromTrack(raw)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Track: FrequencyTrack{
			Times:       sa.FrameTimes(spec.TimeFrames, spec.HopSize),
			Frequencies: smoothed,
		},
		RawFrequencies: raw,
		Estimate:       *estimate,
		Spectrogram:    spectrogram,
		FreqAxis:       band,
		SampleRate:     sampleRate,
		FFTSize:        e.config.FFTSize,
		HopLength:      e.config.HopLength,
	}, nil
}

// DominantFrequency picks the tallest qualifying peak of one band-limited
// magnitude column and refines it by parabolic interpolation. When no peak
// clears the height threshold the column maximum is used instead.
func (e *Estimator) DominantFrequency(col, freqs []float64, binWidth float64) float64 {
	if len(col) == 0 {
		return 0
	}

	frameMax := col[analyzers.ArgMax(col)]
	peaks := analyzers.FindPeaks(col, frameMax*e.config.PeakHeightRatio, e.config.PeakDistance)

	best := -1
	for _, p := range peaks {
		if best < 0 || col[p] > col[best] {
			best = p
		}
	}
	if best < 0 {
		best = analyzers.ArgMax(col)
	}

	if best == 0 || best == len(col)-1 {
		return freqs[best]
	}
	offset := analyzers.ParabolicOffset(col[best-1], col[best], col[best+1])
	return freqs[best] + offset*binWidth
}

// EstimateFromTrack smooths a raw frequency track and inverts it into a
// velocity estimate. It returns the smoothed track alongside the estimate.
func (e *Estimator) EstimateFromTrack(raw []float64) ([]float64, *VelocityEstimate, error) {
	if len(raw) == 0 {
		return nil, nil, newError(ErrCodeInsufficientData, "frequency track is empty")
	}

	var track []float64
	if k := MedianKernelSize(len(raw), e.config.MaxMedianKernel); k >= 3 {
		track = MedianFilter(raw, k)
	} else {
		track = append([]float64(nil), raw...)
	}

	start, end := ValidRange(len(track), e.config.TrimFraction)
	if end <= start {
		return nil, nil, newError(ErrCodeInsufficientData,
			fmt.Sprintf("a %d-frame track leaves no frames after trimming %.0f%% at each end",
				len(track), e.config.TrimFraction*100))
	}
	valid := track[start:end]

	fApproach := Percentile(valid, e.config.ApproachPercentile)
	fRecede := Percentile(valid, e.config.RecedePercentile)
	fSource := SourceFrequency(fApproach, fRecede)

	velocities := make([]float64, len(track))
	for i, f := range track {
		velocities[i] = FrameVelocity(f, fSource)
	}

	return track, &VelocityEstimate{
		FApproachHz:          fApproach,
		FRecedeHz:            fRecede,
		FSourceHz:            fSource,
		EstimatedVelocityMps: DopplerVelocity(fApproach, fRecede),
		PerFrameVelocities:   velocities,
	}, nil
}

// Estimate runs Analyze with the default configuration
func Estimate(samples []float64, sampleRate int) (*Analysis, error) {
	e, err := NewEstimator(DefaultEstimatorConfig())
	if err != nil {
		return nil, err
	}
	return e.Analyze(samples, sampleRate)
}

// EstimateFromTrack runs the track stage with the default configuration
func EstimateFromTrack(raw []float64) ([]float64, *VelocityEstimate, error) {
	e, err := NewEstimator(DefaultEstimatorConfig())
	if err != nil {
		return nil, nil, err
	}
	return e.EstimateFromTrack(raw)
}
