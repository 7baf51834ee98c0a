package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 72.0
	tickMarkLength = 5
	pixelsPerLabel = 120.0
)

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	borders  BorderConfig
}

func newAnnotator(parsed *truetype.Font, size float64, borders BorderConfig) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsed)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
		borders: borders,
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, spec *Spectrogram, v viewport) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, area, v); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawTimeScale(img, area, v); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, spec, v); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) fontHeight() int {
	m := a.fontFace.Metrics()
	return (m.Ascent + m.Descent).Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, area image.Rectangle, v viewport) error {
	span := v.freqMax - v.freqMin
	if span <= 0 {
		return nil
	}
	step := niceStep(span, float64(area.Dy())/pixelsPerLabel, []float64{50, 100, 250, 500, 1000, 2000, 2500, 5000})
	half := a.fontHeight() / 2

	for freq := math.Ceil(v.freqMin/step) * step; freq <= v.freqMax; freq += step {
		y := area.Max.Y - 1 - int((freq-v.freqMin)/span*float64(area.Dy()-1))

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(area.Min.X-tickMarkLength-3-width, y+half-a.fontFace.Metrics().Descent.Round())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, v viewport) error {
	span := v.timeMax - v.timeMin
	if span <= 0 {
		return nil
	}
	step := niceStep(span, float64(area.Dx())/pixelsPerLabel, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60})
	textY := area.Max.Y + tickMarkLength + a.fontHeight()

	for ts := math.Ceil(v.timeMin/step) * step; ts <= v.timeMax; ts += step {
		x := area.Min.X + int((ts-v.timeMin)/span*float64(area.Dx()-1))

		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatSeconds(ts)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, spec *Spectrogram, v viewport) error {
	parts := append([]string{formatFrequencyRange(v.freqMin, v.freqMax)}, spec.Info...)

	textY := (a.borders.Top+a.fontHeight())/2 - a.fontFace.Metrics().Descent.Round()
	pt := freetype.Pt(a.borders.Left, textY)
	if _, err := a.context.DrawString(strings.Join(parts, "; "), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// niceStep picks the smallest standard step that yields at most the
// desired number of labels
func niceStep(span, desiredLabels float64, steps []float64) float64 {
	if desiredLabels < 1 {
		desiredLabels = 1
	}
	target := span / desiredLabels
	for _, step := range steps {
		if step >= target {
			return step
		}
	}
	return steps[len(steps)-1] * math.Ceil(target/steps[len(steps)-1])
}

func formatFrequency(hz float64) string {
	value, prefix := humanize.ComputeSI(hz)
	if prefix == "" {
		return fmt.Sprintf("%.0f Hz", value)
	}
	return fmt.Sprintf("%.1f %sHz", value, prefix)
}

func formatFrequencyRange(lo, hi float64) string {
	return fmt.Sprintf("Band: %s - %s", formatFrequency(lo), formatFrequency(hi))
}

func formatSeconds(s float64) string {
	if s == math.Trunc(s) {
		return fmt.Sprintf("%.0fs", s)
	}
	return fmt.Sprintf("%.2gs", s)
}
