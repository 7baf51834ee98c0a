package codec

import (
	"path/filepath"
	"strings"
	"time"
)

// AudioData is decoded PCM audio
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
}

func newAudioData(pcm []float64, sampleRate, channels int, format string) *AudioData {
	var duration time.Duration
	if sampleRate > 0 {
		duration = time.Duration(float64(len(pcm)) / float64(sampleRate) * float64(time.Second))
	}
	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   duration,
		Format:     format,
	}
}

// Supported container formats
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatOGG  = "ogg"
	FormatFLAC = "flac"
)

// NormalizeFormatName normalizes format names and extensions to standard values
func NormalizeFormatName(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	format = strings.TrimPrefix(format, ".")

	switch {
	case format == "wav" || format == "wave" || strings.Contains(format, "x-wav"):
		return FormatWAV
	case format == "mp3" || strings.Contains(format, "mpeg"):
		return FormatMP3
	case format == "oga" || strings.Contains(format, "ogg") || strings.Contains(format, "vorbis"):
		return FormatOGG
	case strings.Contains(format, "flac"):
		return FormatFLAC
	default:
		return format
	}
}

// FormatFromFilename returns the normalized format implied by a file extension
func FormatFromFilename(name string) string {
	return NormalizeFormatName(filepath.Ext(name))
}

// IsSupported reports whether files with this name can be decoded
func IsSupported(name string) bool {
	switch FormatFromFilename(name) {
	case FormatWAV, FormatMP3, FormatOGG, FormatFLAC:
		return true
	default:
		return false
	}
}

// SupportedFormats lists the decodable formats
func SupportedFormats() []string {
	return []string{FormatWAV, FormatMP3, FormatOGG, FormatFLAC}
}
