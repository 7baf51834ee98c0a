package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

func testSpectrogram(frames, bins int) *Spectrogram {
	spec := &Spectrogram{
		DB:       make([][]float64, frames),
		FreqAxis: make([]float64, bins),
		Times:    make([]float64, frames),
		Track:    make([]float64, frames),
		Info:     []string{"v = 12.0 m/s"},
	}
	for i := range spec.FreqAxis {
		spec.FreqAxis[i] = 100 + 10*float64(i)
	}
	for t := range spec.DB {
		row := make([]float64, bins)
		for f := range row {
			row[f] = -80
		}
		row[90] = 0
		spec.DB[t] = row
		spec.Times[t] = float64(t) * 0.1
		spec.Track[t] = 600
	}
	return spec
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestColorMapperBounds(t *testing.T) {
	cm := NewColorMapper(17, GrayscaleTheme, Bounds{Min: -80, Max: 0})

	assert.Equal(t, rgba(cm.GetColor(-80)), rgba(cm.GetColor(-200)))
	assert.Equal(t, rgba(cm.GetColor(0)), rgba(cm.GetColor(30)))
	assert.Equal(t, color.RGBA{A: 0xff}, rgba(cm.GetColor(-80)))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, rgba(cm.GetColor(0)))

	// brighter with more energy
	assert.Greater(t, rgba(cm.GetColor(-20)).R, rgba(cm.GetColor(-60)).R)

	cm.UpdateBounds(Bounds{Min: 5, Max: 5})
	assert.NotPanics(t, func() { cm.GetColor(5) })
}

func TestThemesAreOpaque(t *testing.T) {
	for _, theme := range append(Themes(), ColorTheme("unknown")) {
		fn := GetColorTheme(theme)
		for _, p := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
			assert.Equal(t, uint8(0xff), rgba(fn(p)).A, "theme %s at %v", theme, p)
		}
	}
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xff, B: 0xff, A: 0xff}, rgba(ParseColor("#ff00ff", color.White)))
	assert.Equal(t, color.White, ParseColor("not-a-colour", color.White))
	assert.Equal(t, color.Black, ParseColor("", color.Black))
}

func TestRenderLayout(t *testing.T) {
	r, err := NewSpectrogramRenderer(RenderConfig{
		Width:      100,
		Height:     100,
		ShowTrack:  true,
		TrackColor: "#ff00ff",
	})
	require.NoError(t, err)

	img, err := r.Render(testSpectrogram(10, 100))
	require.NoError(t, err)

	b := r.Config().BorderConfig
	assert.Equal(t, image.Rect(0, 0, 100+b.Left+b.Right, 100+b.Top+b.Bottom), img.Bounds())

	// bin 90 maps to plot row 9 from the top
	hot := rgba(NewColorMapper(DefaultColorMapSize, EnhancedTheme, Bounds{Min: -80, Max: 0}).GetColor(0))
	assert.Equal(t, hot, rgba(img.At(b.Left+50, b.Top+9)))
	assert.NotEqual(t, hot, rgba(img.At(b.Left+50, b.Top+50)))

	// 600 Hz track point of frame 3
	area := image.Rect(b.Left, b.Top, b.Left+100, b.Top+100)
	y := area.Max.Y - 1 - int((600.0-100)/990*99)
	assert.Equal(t, color.RGBA{R: 0xff, B: 0xff, A: 0xff}, rgba(img.At(area.Min.X+30, y)))
}

func TestRenderMaxFreq(t *testing.T) {
	r, err := NewSpectrogramRenderer(RenderConfig{Width: 50, Height: 50, MaxFreqHz: 500})
	require.NoError(t, err)

	spec := testSpectrogram(10, 100)
	v := r.view(spec)
	assert.Equal(t, 41, v.bins)
	assert.Equal(t, 500.0, v.freqMax)
	assert.Equal(t, Bounds{Min: -160, Max: -80}, v.dynamicRange)
}

func TestRenderPNG(t *testing.T) {
	r, err := NewSpectrogramRenderer(RenderConfig{Width: 64, Height: 48})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPNG(&buf, testSpectrogram(20, 100)))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	b := r.Config().BorderConfig
	assert.Equal(t, 64+b.Left+b.Right, decoded.Bounds().Dx())
}

func TestRenderRejectsBadInput(t *testing.T) {
	r, err := NewSpectrogramRenderer(RenderConfig{})
	require.NoError(t, err)

	_, err = r.Render(&Spectrogram{})
	assert.Error(t, err)

	spec := testSpectrogram(5, 100)
	spec.FreqAxis = spec.FreqAxis[:10]
	_, err = r.Render(spec)
	assert.Error(t, err)
}

func TestNewSpectrogram(t *testing.T) {
	a := &doppler.Analysis{
		Track:       doppler.FrequencyTrack{Times: []float64{0, 0.1}, Frequencies: []float64{510, 490}},
		Estimate:    doppler.VelocityEstimate{EstimatedVelocityMps: 10, FSourceHz: 500, FApproachHz: 510, FRecedeHz: 490},
		Spectrogram: [][]float64{{0, -10}, {-5, -20}},
		FreqAxis:    []float64{480, 520},
	}

	spec := NewSpectrogram(a)
	assert.Equal(t, a.Track.Frequencies, spec.Track)
	assert.Equal(t, a.Spectrogram, spec.DB)
	assert.Contains(t, spec.Info[0], "10.0 m/s")
	assert.Contains(t, spec.Info[0], "36.0 km/h")
	assert.Equal(t, "f_source = 500 Hz", spec.Info[1])
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 250.0, niceStep(1000, 5, []float64{100, 250, 500}))
	assert.Equal(t, 1000.0, niceStep(5000, 5, []float64{100, 250, 500}))
	assert.Equal(t, "500 Hz", formatFrequency(500))
	assert.Equal(t, "2.5 kHz", formatFrequency(2500))
	assert.Equal(t, "2s", formatSeconds(2))
	assert.Equal(t, "0.5s", formatSeconds(0.5))

	lo, hi := cellRange(0, 100, 10)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)
	lo, hi = cellRange(3, 10, 100)
	assert.Equal(t, 30, lo)
	assert.Equal(t, 40, hi)
}
