package doppler

import "math"

// Physical model shared by the synthesizer and the estimator: a point source
// moving along a straight line past a stationary observer at a fixed
// perpendicular offset.
const (
	SpeedOfSound     = 343.0 // m/s
	SampleRate       = 44100 // Hz
	PassStartM       = -200.0
	PassEndM         = 200.0
	DistanceExponent = 1.0

	attenuationEpsilon = 1e-12
)

// PassLength is the length of the simulated pass in metres
func PassLength() float64 {
	return math.Abs(PassEndM - PassStartM)
}

// ObservedFrequency applies the moving-source Doppler formula.
// vRadial is positive when the source approaches the observer.
func ObservedFrequency(fBase, vRadial float64) float64 {
	return fBase * SpeedOfSound / (SpeedOfSound - vRadial)
}

// RadialVelocity is the component of the source velocity directed towards
// the observer for a source at along-track position x and range d.
func RadialVelocity(x, speed, d float64) float64 {
	return -(x * speed) / d
}

// SourceFrequency recovers the emitted frequency from the approach and
// recede frequencies (geometric mean).
func SourceFrequency(fApproach, fRecede float64) float64 {
	return math.Sqrt(fApproach * fRecede)
}

// DopplerVelocity inverts the Doppler ratio into a closing velocity
func DopplerVelocity(fApproach, fRecede float64) float64 {
	sum := fApproach + fRecede
	if sum == 0 {
		return 0
	}
	return SpeedOfSound * (fApproach - fRecede) / sum
}

// FrameVelocity is the instantaneous velocity implied by an observed
// frequency f relative to the source frequency.
func FrameVelocity(f, fSource float64) float64 {
	if fSource == 0 {
		return 0
	}
	return SpeedOfSound * (f - fSource) / fSource
}
