package render

import (
	"image/color"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme names a dB-to-colour scheme
type ColorTheme string

const (
	EnhancedTheme  ColorTheme = "enhanced"  // Black -> Blue -> Cyan -> Yellow -> Red
	ClassicTheme   ColorTheme = "classic"   // Blue -> Red
	GrayscaleTheme ColorTheme = "grayscale" // Black -> White
	ThermalTheme   ColorTheme = "thermal"   // Black -> Red -> Yellow -> White
	MarineTheme    ColorTheme = "marine"    // Deep Blue -> Cyan -> White

	DefaultColorMapSize = 256
)

// Themes lists every supported theme
func Themes() []ColorTheme {
	return []ColorTheme{EnhancedTheme, ClassicTheme, GrayscaleTheme, ThermalTheme, MarineTheme}
}

// Bounds is the dB range mapped onto the colour scale
type Bounds struct {
	Min float64
	Max float64
}

// ColorMapper maps dB values onto a precomputed colour table
type ColorMapper struct {
	colorMap   []color.Color
	bounds     Bounds
	theme      func(float64) color.Color
	size       int
	dbPerIndex float64
	mu         sync.RWMutex
}

// NewColorMapper creates a mapper with size colours spread over bounds
func NewColorMapper(size int, theme ColorTheme, bounds Bounds) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}
	cm := &ColorMapper{
		colorMap: make([]color.Color, size),
		theme:    GetColorTheme(theme),
		size:     size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds changes the mapped range and rebuilds the table
func (cm *ColorMapper) UpdateBounds(bounds Bounds) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if bounds.Max <= bounds.Min {
		bounds.Max = bounds.Min + 1
	}
	cm.bounds = bounds
	cm.dbPerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1))
	}
}

// GetColor returns the colour for a dB value, clamped to the bounds
func (cm *ColorMapper) GetColor(db float64) color.Color {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if math.IsNaN(db) {
		return cm.colorMap[0]
	}
	db = math.Max(cm.bounds.Min, math.Min(db, cm.bounds.Max))

	index := int((db - cm.bounds.Min) / cm.dbPerIndex)
	if index < 0 {
		index = 0
	} else if index >= cm.size {
		index = cm.size - 1
	}
	return cm.colorMap[index]
}

func hsv(h, s, v float64) color.Color {
	return colorful.Hsv(math.Mod(h+360, 360), clamp01(s), clamp01(v)).Clamped()
}

func gray(v float64) color.Color {
	g := uint8(clamp01(v) * 255)
	return color.RGBA{R: g, G: g, B: g, A: 0xff}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// GetColorTheme returns the colour function of a theme; unknown names get
// the enhanced theme
func GetColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(p float64) color.Color {
			return hsv(240-p*240, 0.9+p*0.1, math.Pow(p, 0.7))
		}

	case GrayscaleTheme:
		return func(p float64) color.Color {
			return gray(math.Pow(p, 0.7))
		}

	case ThermalTheme:
		return func(p float64) color.Color {
			switch {
			case p < 0.33:
				return color.RGBA{R: uint8(clamp01(p*3) * 255), A: 0xff}
			case p < 0.66:
				return color.RGBA{R: 255, G: uint8(clamp01((p-0.33)*3) * 255), A: 0xff}
			default:
				return color.RGBA{R: 255, G: 255, B: uint8(clamp01((p-0.66)*3) * 255), A: 0xff}
			}
		}

	case MarineTheme:
		return func(p float64) color.Color {
			return hsv(240-p*60, 1-p*0.8, 0.3+math.Pow(p, 0.6)*0.7)
		}

	default:
		return enhanced
	}
}

// enhanced spreads the low end of the range so quiet partials stay visible
func enhanced(p float64) color.Color {
	p = clamp01(p)
	boosted := math.Pow(p, 0.7)

	switch {
	case p < 0.25:
		return hsv(240, 1, boosted*4)
	case p < 0.5:
		return hsv(240-(p-0.25)*240, 1, boosted*1.5)
	case p < 0.75:
		return hsv(180-(p-0.5)*4*120, 1, math.Min(1, boosted*1.5))
	default:
		return hsv(60-(p-0.75)*4*60, 1, 1)
	}
}

// ParseColor parses a #rrggbb colour, falling back to def
func ParseColor(hex string, def color.Color) color.Color {
	if hex == "" {
		return def
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return def
	}
	return c
}
