package codec

import (
	"errors"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// EncodeWAV writes mono samples as 16-bit PCM WAV. Samples outside [-1, 1]
// are clipped by the encoder.
func EncodeWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return NewCodecError(FormatWAV, ErrCodeEncoding, "sample rate must be positive", nil)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, &monoStreamer{samples: samples}, format); err != nil {
		return NewCodecError(FormatWAV, ErrCodeEncoding, "failed to encode wav", err)
	}
	return nil
}

// EncodeWAVBytes encodes samples into an in-memory WAV file
func EncodeWAVBytes(samples []float64, sampleRate int) ([]byte, error) {
	var ws WriteSeekBuffer
	if err := EncodeWAV(&ws, samples, sampleRate); err != nil {
		return nil, err
	}
	return ws.Bytes(), nil
}

// monoStreamer plays a mono slice on both beep channels
type monoStreamer struct {
	samples []float64
	pos     int
}

func (m *monoStreamer) Stream(out [][2]float64) (int, bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	n := copy2(out, m.samples[m.pos:])
	m.pos += n
	return n, true
}

func (m *monoStreamer) Err() error {
	return nil
}

func copy2(dst [][2]float64, src []float64) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}

// WriteSeekBuffer is an in-memory io.WriteSeeker
type WriteSeekBuffer struct {
	buf []byte
	pos int
}

func (b *WriteSeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *WriteSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = int(abs)
	return abs, nil
}

// Bytes returns the written contents
func (b *WriteSeekBuffer) Bytes() []byte {
	return b.buf
}
