package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/ShammiG/comfy-readable-metadata/metadata"
)

// SummaryLines is the short on-canvas description of a file: geometry, ratio, size and the
// key generation settings.
func SummaryLines(g Geometry, size int64, f metadata.Fields) []string {
	return []string{
		fmt.Sprintf("%dx%d | %.2fMP", g.Width, g.Height, g.Megapixels()),
		"Ratio: " + g.Ratio(),
		fmt.Sprintf("File Size: %.2fMB", MB(size)),
		"",
		"Model: " + f.Model,
		fmt.Sprintf("Seed: %s | Steps: %s | CFG: %s", f.Seed, f.Steps, f.CFG),
		fmt.Sprintf("Sampler: %s | Scheduler: %s", f.Sampler, f.Scheduler),
	}
}

// VideoInfo describes a probed video file.
type VideoInfo struct {
	Path     string
	Geometry Geometry
	Size     int64
	FPS      float64
	Duration float64
}

// VideoHeader is printed above the generation report of a video.
func VideoHeader(v VideoInfo) string {
	return strings.Join([]string{
		HeaderVideo,
		"Filename: " + filepath.Base(v.Path),
		fmt.Sprintf("%dx%d | %.2fMP | %.2fMB", v.Geometry.Width, v.Geometry.Height, v.Geometry.Megapixels(), MB(v.Size)),
		fmt.Sprintf("FPS: %d | Duration: %.1fs", int(v.FPS), v.Duration),
	}, "\n")
}

// TextStats counts what a text viewer shows under the text.
type TextStats struct {
	Chars int
	Words int
	Lines int
}

func Stats(text string) TextStats {
	s := TextStats{
		Chars: len([]rune(text)),
		Words: len(strings.Fields(text)),
	}
	if text != "" {
		s.Lines = strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
	}
	return s
}

func (s TextStats) String() string {
	return fmt.Sprintf("Characters: %d | Words: %d | Lines: %d", s.Chars, s.Words, s.Lines)
}

var (
	headerColor  = color.New(color.FgHiGreen, color.Bold)
	sectionColor = color.New(color.FgHiCyan)
	missingColor = color.New(color.FgYellow, color.Italic)
)

// Colorize highlights headers and section labels of a rendered report for the terminal.
// It returns the text unchanged when colour output is disabled.
func Colorize(text string) string {
	if color.NoColor {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "==="):
			lines[i] = headerColor.Sprint(l)
		case l == NotFound:
			lines[i] = missingColor.Sprint(l)
		case l != "" && !strings.HasPrefix(l, " ") && strings.Contains(l, ":"):
			lines[i] = sectionColor.Sprint(l)
		}
	}
	return strings.Join(lines, "\n")
}
