package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

const (
	defaultWidth          = 1200
	defaultHeight         = 600
	defaultFontSize       = 12.0
	defaultDynamicRangeDB = 80.0

	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 50
	defaultRightBorder  = 20

	trackDotSize = 2
)

// BorderConfig defines the white space around the plot
type BorderConfig struct {
	Top    int // info bar
	Left   int // frequency scale
	Bottom int // time scale
	Right  int
}

// RenderConfig holds the spectrogram image options
type RenderConfig struct {
	Width  int // plot area width in pixels
	Height int // plot area height in pixels

	ColorTheme     ColorTheme
	ColorMapSize   int
	DynamicRangeDB float64 // dB below the peak mapped to the bottom colour
	MaxFreqHz      float64 // upper display limit; zero shows the whole band

	ShowTrack  bool
	TrackColor string // #rrggbb

	FontSize     float64
	BorderConfig BorderConfig
}

// Spectrogram is a band-limited dB spectrogram ready to be drawn
type Spectrogram struct {
	DB       [][]float64 // frames x bins, dB relative to the peak
	FreqAxis []float64   // Hz, ascending
	Times    []float64   // frame start times, seconds
	Track    []float64   // dominant frequency per frame, optional
	Info     []string    // summary shown above the plot
}

// NewSpectrogram prepares an estimator result for rendering
func NewSpectrogram(a *doppler.Analysis) *Spectrogram {
	return &Spectrogram{
		DB:       a.Spectrogram,
		FreqAxis: a.FreqAxis,
		Times:    a.Track.Times,
		Track:    a.Track.Frequencies,
		Info: []string{
			fmt.Sprintf("v = %.1f m/s (%.1f km/h)", a.Estimate.EstimatedVelocityMps, a.Estimate.EstimatedVelocityMps*3.6),
			"f_source = " + formatFrequency(a.Estimate.FSourceHz),
			"f_approach = " + formatFrequency(a.Estimate.FApproachHz),
			"f_recede = " + formatFrequency(a.Estimate.FRecedeHz),
		},
	}
}

// SpectrogramRenderer draws spectrograms as annotated heatmaps
type SpectrogramRenderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewSpectrogramRenderer creates a renderer, filling zero config values with defaults
func NewSpectrogramRenderer(config RenderConfig) (*SpectrogramRenderer, error) {
	if config.Width <= 0 {
		config.Width = defaultWidth
	}
	if config.Height <= 0 {
		config.Height = defaultHeight
	}
	if config.ColorTheme == "" {
		config.ColorTheme = EnhancedTheme
	}
	if config.ColorMapSize <= 0 {
		config.ColorMapSize = DefaultColorMapSize
	}
	if config.DynamicRangeDB <= 0 {
		config.DynamicRangeDB = defaultDynamicRangeDB
	}
	if config.FontSize <= 0 {
		config.FontSize = defaultFontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	parsed, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &SpectrogramRenderer{config: config, font: parsed}, nil
}

// Config returns the effective configuration
func (r *SpectrogramRenderer) Config() RenderConfig {
	return r.config
}

// Render draws spec with frequency on the vertical axis and time on the
// horizontal axis
func (r *SpectrogramRenderer) Render(spec *Spectrogram) (*image.RGBA, error) {
	if len(spec.DB) == 0 || len(spec.FreqAxis) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if len(spec.DB[0]) != len(spec.FreqAxis) {
		return nil, fmt.Errorf("spectrogram has %d bins but %d axis values", len(spec.DB[0]), len(spec.FreqAxis))
	}

	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width+b.Left+b.Right, r.config.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+r.config.Width, b.Top+r.config.Height)
	view := r.view(spec)

	r.renderHeatmap(img, area, spec, view)
	if r.config.ShowTrack && len(spec.Track) > 0 {
		r.renderTrack(img, area, spec, view)
	}

	ann := newAnnotator(r.font, r.config.FontSize, b)
	defer ann.Close()
	if err := ann.annotate(img, area, spec, view); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

// RenderPNG renders spec and writes it as PNG
func (r *SpectrogramRenderer) RenderPNG(w io.Writer, spec *Spectrogram) error {
	img, err := r.Render(spec)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// viewport is the part of the spectrogram that is drawn
type viewport struct {
	bins         int
	freqMin      float64
	freqMax      float64
	timeMin      float64
	timeMax      float64
	dynamicRange Bounds
}

func (r *SpectrogramRenderer) view(spec *Spectrogram) viewport {
	bins := len(spec.FreqAxis)
	if r.config.MaxFreqHz > 0 {
		for bins > 1 && spec.FreqAxis[bins-1] > r.config.MaxFreqHz {
			bins--
		}
	}

	v := viewport{
		bins:    bins,
		freqMin: spec.FreqAxis[0],
		freqMax: spec.FreqAxis[bins-1],
	}
	if len(spec.Times) > 0 {
		v.timeMin = spec.Times[0]
		v.timeMax = spec.Times[len(spec.Times)-1]
	}

	peak := math.Inf(-1)
	for _, row := range spec.DB {
		for _, db := range row[:bins] {
			peak = math.Max(peak, db)
		}
	}
	v.dynamicRange = Bounds{Min: peak - r.config.DynamicRangeDB, Max: peak}
	return v
}

// renderHeatmap max-pools the cells covered by each pixel so narrow
// partials survive downscaling
func (r *SpectrogramRenderer) renderHeatmap(img *image.RGBA, area image.Rectangle, spec *Spectrogram, v viewport) {
	cm := NewColorMapper(r.config.ColorMapSize, r.config.ColorTheme, v.dynamicRange)

	frames := len(spec.DB)
	width, height := area.Dx(), area.Dy()

	for px := 0; px < width; px++ {
		t0, t1 := cellRange(px, width, frames)
		for py := 0; py < height; py++ {
			// row 0 is the top of the plot, the highest frequency
			f0, f1 := cellRange(height-1-py, height, v.bins)

			db := math.Inf(-1)
			for t := t0; t < t1; t++ {
				for f := f0; f < f1; f++ {
					db = math.Max(db, spec.DB[t][f])
				}
			}
			img.Set(area.Min.X+px, area.Min.Y+py, cm.GetColor(db))
		}
	}
}

// cellRange returns the half-open range of n cells covered by pixel i of size pixels
func cellRange(i, size, n int) (int, int) {
	lo := i * n / size
	hi := (i + 1) * n / size
	if hi <= lo {
		hi = lo + 1
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

func (r *SpectrogramRenderer) renderTrack(img *image.RGBA, area image.Rectangle, spec *Spectrogram, v viewport) {
	trackColor := ParseColor(r.config.TrackColor, color.White)
	frames := len(spec.Track)

	for t, f := range spec.Track {
		if f < v.freqMin || f > v.freqMax || math.IsNaN(f) {
			continue
		}
		x := area.Min.X + t*area.Dx()/frames
		y := r.freqToY(f, area, v)
		for dx := 0; dx < trackDotSize; dx++ {
			for dy := 0; dy < trackDotSize; dy++ {
				img.Set(x+dx, y-dy, trackColor)
			}
		}
	}
}

func (r *SpectrogramRenderer) freqToY(f float64, area image.Rectangle, v viewport) int {
	if v.freqMax <= v.freqMin {
		return area.Max.Y - 1
	}
	ratio := (f - v.freqMin) / (v.freqMax - v.freqMin)
	return area.Max.Y - 1 - int(ratio*float64(area.Dy()-1))
}
