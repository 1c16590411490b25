package report

import (
	"fmt"
	"math"
)

// ratioThreshold is how far an aspect ratio may sit from a standard one and still be named
// after it.
const ratioThreshold = 0.05

type standardRatio struct {
	value float64
	label string
}

var standardRatios = []standardRatio{
	{1.0, "1:1"},
	{1.25, "5:4"},
	{1.33333, "4:3"},
	{1.5, "3:2"},
	{1.6, "16:10"},
	{1.66667, "5:3"},
	{1.77778, "16:9"},
	{1.88889, "17:9"},
	{2.0, "2:1"},
	{2.33333, "21:9"},
	{2.35, "2.35:1"},
	{2.39, "2.39:1"},
	{2.4, "12:5"},
}

// Geometry is the pixel size of an image or video frame.
type Geometry struct {
	Width  int
	Height int
}

func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Megapixels returns the pixel count in millions.
func (g Geometry) Megapixels() float64 {
	return float64(g.Width) * float64(g.Height) / 1_000_000
}

// Ratio renders the aspect ratio as "a:b or d.dd:1", adding " or ~std" when a standard
// ratio is close but not identical to the reduced one.
func (g Geometry) Ratio() string {
	if !g.Valid() {
		return "N/A"
	}
	d := gcd(g.Width, g.Height)
	exact := fmt.Sprintf("%d:%d", g.Width/d, g.Height/d)
	decimal := float64(g.Width) / float64(g.Height)

	out := fmt.Sprintf("%s or %.2f:1", exact, decimal)
	if std, ok := closestStandard(decimal); ok && std != exact {
		out += " or ~" + std
	}
	return out
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func closestStandard(decimal float64) (string, bool) {
	best := math.Inf(1)
	label := ""
	for _, r := range standardRatios {
		if diff := math.Abs(r.value - decimal); diff < best {
			best = diff
			label = r.label
		}
	}
	return label, best <= ratioThreshold
}

// MB converts a byte count to mebibytes.
func MB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
