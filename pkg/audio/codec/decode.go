package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

const streamChunk = 4096

// DecoderConfig holds decoder parameters
type DecoderConfig struct {
	// TargetSampleRate is the rate every decoded file is resampled to
	TargetSampleRate int
	// ResampleQuality is passed to beep.Resample (1 to 64)
	ResampleQuality int
	// MaxSamples caps the decoded length at the target rate; zero disables the cap
	MaxSamples int
}

// DefaultDecoderConfig resamples to 44.1 kHz and accepts up to one minute
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		TargetSampleRate: 44100,
		ResampleQuality:  4,
		MaxSamples:       60 * 44100,
	}
}

// Decoder turns compressed or PCM audio files into mono float samples
type Decoder struct {
	config DecoderConfig
}

// NewDecoder creates a decoder
func NewDecoder(config DecoderConfig) *Decoder {
	if config.ResampleQuality <= 0 {
		config.ResampleQuality = DefaultDecoderConfig().ResampleQuality
	}
	return &Decoder{config: config}
}

// DecodeFile decodes r with the default configuration, choosing the decoder
// from the extension of name
func DecodeFile(name string, r io.Reader) (*AudioData, error) {
	return NewDecoder(DefaultDecoderConfig()).DecodeFile(name, r)
}

// DecodeFile decodes r, choosing the decoder from the extension of name. The
// result is mono and, when a target rate is configured, resampled to it.
func (d *Decoder) DecodeFile(name string, r io.Reader) (*AudioData, error) {
	format := FormatFromFilename(name)

	streamer, sourceFormat, err := open(format, r)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if gain := wavGain(format, sourceFormat.Precision); gain != 1 {
		s = &effects.Gain{Streamer: s, Gain: gain - 1}
	}
	rate := int(sourceFormat.SampleRate)
	if d.config.TargetSampleRate > 0 && rate != d.config.TargetSampleRate {
		s = beep.Resample(d.config.ResampleQuality, sourceFormat.SampleRate, beep.SampleRate(d.config.TargetSampleRate), s)
		rate = d.config.TargetSampleRate
	}

	pcm, err := collectMono(s, d.config.MaxSamples)
	if err != nil {
		var ce *CodecError
		if errors.As(err, &ce) {
			ce.Format = format
			return nil, ce
		}
		return nil, NewCodecError(format, ErrCodeDecoding, "failed to read audio stream", err)
	}

	return newAudioData(pcm, rate, sourceFormat.NumChannels, format), nil
}

func open(format string, r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)

	switch format {
	case FormatWAV:
		s, f, err = wav.Decode(r)
	case FormatMP3:
		s, f, err = mp3.Decode(io.NopCloser(r))
	case FormatOGG:
		s, f, err = vorbis.Decode(io.NopCloser(r))
	case FormatFLAC:
		s, f, err = flac.Decode(r)
	default:
		return nil, beep.Format{}, NewCodecError(format, ErrCodeUnsupported,
			fmt.Sprintf("unsupported audio format %q", format), nil)
	}

	if err != nil {
		return nil, beep.Format{}, NewCodecError(format, ErrCodeInvalidFormat,
			"failed to parse "+format+" header", err)
	}
	if f.SampleRate <= 0 {
		s.Close()
		return nil, beep.Format{}, NewCodecError(format, ErrCodeInvalidFormat,
			fmt.Sprintf("invalid sample rate %d", f.SampleRate), nil)
	}
	return s, f, nil
}

// wavGain corrects the scale of beep's signed PCM WAV decoding, which divides
// by the full unsigned range instead of the positive half.
func wavGain(format string, precision int) float64 {
	if format != FormatWAV || precision < 2 || precision > 3 {
		return 1
	}
	bits := uint(precision * 8)
	return float64(uint64(1)<<bits-1) / float64(uint64(1)<<(bits-1)-1)
}

// collectMono drains s, averaging the two beep channels into one
func collectMono(s beep.Streamer, maxSamples int) ([]float64, error) {
	buf := make([][2]float64, streamChunk)
	var pcm []float64

	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			pcm = append(pcm, (frame[0]+frame[1])/2)
		}
		if maxSamples > 0 && len(pcm) > maxSamples {
			return nil, NewCodecError("", ErrCodeTooLong,
				fmt.Sprintf("audio exceeds the limit of %d samples", maxSamples), nil)
		}
		if !ok {
			break
		}
	}

	if err := s.Err(); err != nil {
		return nil, err
	}
	return pcm, nil
}
