package analyzers

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectralAnalyzer provides the FFT and STFT primitives used by the estimator
type SpectralAnalyzer struct {
	windowGenerator *WindowGenerator
	sampleRate      int
}

// SpectrogramResult holds the result of STFT analysis. Magnitude keeps only
// the bins [BinOffset, BinOffset+BandBins) of each frame.
type SpectrogramResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x band-frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of bins in a full frame
	BinOffset      int         `json:"bin_offset"`      // First bin kept in Magnitude
	BandBins       int         `json:"band_bins"`       // Number of bins kept per frame
	MaxMagnitude   float64     `json:"max_magnitude"`   // Largest magnitude over all bins, kept or not
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		windowGenerator: NewWindowGenerator(),
		sampleRate:      sampleRate,
	}
}

// FrameCount returns the number of full, uncentred frames that fit in n samples
func FrameCount(n, windowSize, hopSize int) int {
	if n < windowSize || windowSize <= 0 || hopSize <= 0 {
		return 0
	}
	return 1 + (n-windowSize)/hopSize
}

// ComputeSTFT computes the full magnitude short-time Fourier transform of
// signal using a periodic Hann window. Frames are not centred: frame t covers
// signal[t*hopSize : t*hopSize+windowSize].
func (sa *SpectralAnalyzer) ComputeSTFT(signal []float64, windowSize, hopSize int) (*SpectrogramResult, error) {
	return sa.ComputeBandSTFT(signal, windowSize, hopSize, 0, windowSize/2+1)
}

// ComputeBandSTFT is ComputeSTFT keeping only bins [lo, hi) of every frame.
// MaxMagnitude still covers every bin so that decibels can be taken relative
// to the whole spectrogram.
func (sa *SpectralAnalyzer) ComputeBandSTFT(signal []float64, windowSize, hopSize, lo, hi int) (*SpectrogramResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window size and hop size must be positive, got %d and %d", windowSize, hopSize)
	}
	freqBins := windowSize/2 + 1
	if lo < 0 || hi > freqBins || hi < lo {
		return nil, fmt.Errorf("invalid bin range [%d, %d) for %d bins", lo, hi, freqBins)
	}

	frames := FrameCount(len(signal), windowSize, hopSize)
	band := hi - lo
	window := sa.windowGenerator.Hann(windowSize)

	plan := fourier.NewFFT(windowSize)
	buf := make([]float64, windowSize)
	coeffs := make([]complex128, freqBins)

	backing := make([]float64, frames*band)
	magnitude := make([][]float64, frames)
	maxMag := 0.0
	for t := 0; t < frames; t++ {
		start := t * hopSize
		for i := range buf {
			buf[i] = signal[start+i] * window[i]
		}
		plan.Coefficients(coeffs, buf)

		row := backing[t*band : (t+1)*band : (t+1)*band]
		for f, c := range coeffs {
			m := cmplx.Abs(c)
			if m > maxMag {
				maxMag = m
			}
			if f >= lo && f < hi {
				row[f-lo] = m
			}
		}
		magnitude[t] = row
	}

	return &SpectrogramResult{
		Magnitude:      magnitude,
		TimeFrames:     frames,
		FreqBins:       freqBins,
		BinOffset:      lo,
		BandBins:       band,
		MaxMagnitude:   maxMag,
		SampleRate:     sa.sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sa.sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sa.sampleRate),
	}, nil
}

// GetFrequencyBins returns frequency values for each FFT bin
func (sa *SpectralAnalyzer) GetFrequencyBins(numBins int) []float64 {
	freqs := make([]float64, numBins)
	if numBins < 2 {
		return freqs
	}
	for i := range numBins {
		freqs[i] = float64(i) * float64(sa.sampleRate) / float64((numBins-1)*2)
	}
	return freqs
}

// FrameTimes returns the start time of each frame in seconds
func (sa *SpectralAnalyzer) FrameTimes(frames, hopSize int) []float64 {
	times := make([]float64, frames)
	for t := range times {
		times[t] = float64(t*hopSize) / float64(sa.sampleRate)
	}
	return times
}

// BandIndices returns the half-open bin range [lo, hi) whose frequencies lie
// in [minFreq, maxFreq]. freqs must be ascending.
func BandIndices(freqs []float64, minFreq, maxFreq float64) (lo, hi int) {
	lo = len(freqs)
	for i, f := range freqs {
		if f >= minFreq {
			lo = i
			break
		}
	}
	hi = lo
	for hi < len(freqs) && freqs[hi] <= maxFreq {
		hi++
	}
	return lo, hi
}

// AmplitudeToDB converts a magnitude spectrogram to decibels relative to its
// global maximum. Magnitudes are floored at amin and the result is clipped to
// topDB below the peak; a non-positive topDB disables clipping.
func AmplitudeToDB(magnitude [][]float64, amin, topDB float64) [][]float64 {
	ref := 0.0
	out := make([][]float64, len(magnitude))
	for t, row := range magnitude {
		out[t] = append([]float64(nil), row...)
		for _, v := range row {
			ref = math.Max(ref, v)
		}
	}
	AmplitudeToDBInPlace(out, ref, amin, topDB)
	return out
}

// AmplitudeToDBInPlace overwrites magnitude with decibels relative to ref,
// which must be at least the largest magnitude of the full spectrogram the
// rows were cut from. The peak therefore sits at 0 dB and clipping floors
// values at -topDB.
func AmplitudeToDBInPlace(magnitude [][]float64, ref, amin, topDB float64) {
	refDB := 20 * math.Log10(math.Max(amin, ref))
	floor := math.Inf(-1)
	if topDB > 0 {
		floor = -topDB
	}
	for _, row := range magnitude {
		for f, v := range row {
			row[f] = math.Max(20*math.Log10(math.Max(amin, v))-refDB, floor)
		}
	}
}
