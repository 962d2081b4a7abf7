package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
)

// NoiseColor is used for DBSCAN noise points in every chart.
var NoiseColor = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}

// Palette returns n visually distinct colors spread around the hue wheel.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(max(n, 1))
		out[i] = hslToRGB(hue, 0.65, 0.5)
	}
	return out
}

// LabelColor picks the color for a label in a palette of n clusters.
func LabelColor(label int, palette []color.RGBA) color.RGBA {
	if label == cluster.Noise || len(palette) == 0 {
		return NoiseColor
	}
	return palette[label%len(palette)]
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func hslToRGB(h, s, l float64) color.RGBA {
	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		q := l * (1 + s)
		if l >= 0.5 {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return color.RGBA{R: uint8(math.Round(r * 255)), G: uint8(math.Round(g * 255)), B: uint8(math.Round(b * 255)), A: 255}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
