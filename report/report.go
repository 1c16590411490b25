package report

import (
	"fmt"
	"strings"

	"github.com/ShammiG/comfy-readable-metadata/metadata"
)

const (
	HeaderGraph    = "=== ComfyUI Generation Parameters ==="
	HeaderFlat     = "=== WebUI Forge/A1111 Generation Parameters ==="
	HeaderWorkflow = "=== ComfyUI Workflow Parameters ==="
	HeaderVideo    = "=== Video Information ==="

	// NotFound is the whole report when no generation metadata could be recognised.
	NotFound = "No ComfyUI or WebUI generation metadata found."
	// NoVideoMetadata follows the video header when the container carries no metadata tag.
	NoVideoMetadata = "(No embedded ComfyUI generation metadata detected in file)"
)

type symbol string

const (
	symbolModels   symbol = "🧠"
	symbolPrompts  symbol = "📝"
	symbolSampling symbol = "🎯"
	symbolDims     symbol = "📏"
	symbolLoRA     symbol = "🎨"
	symbolAdvanced symbol = "⚙️"
)

// Formatter renders extraction results as the readable report.
type Formatter struct {
	Emoji bool
}

func NewFormatter(emoji bool) *Formatter {
	return &Formatter{Emoji: emoji}
}

func (fm *Formatter) label(s symbol, text string) string {
	if !fm.Emoji {
		return text
	}
	return string(s) + " " + text
}

func headerFor(format metadata.Format) string {
	switch format {
	case metadata.FormatFlat:
		return HeaderFlat
	case metadata.FormatWorkflow:
		return HeaderWorkflow
	}
	return HeaderGraph
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

// Render builds the report. Sections come in a fixed order and a section without any known
// field is left out entirely.
func (fm *Formatter) Render(res metadata.Result) string {
	if res.Format == metadata.FormatUnknown {
		return NotFound
	}
	f := res.Fields

	sections := [][]string{
		{headerFor(res.Format)},
		fm.model(f),
		fm.prompts(f),
		fm.sampling(f),
		fm.dimensions(f),
		fm.components(f),
		fm.loras(f),
		fm.advanced(f),
	}

	var b strings.Builder
	for _, lines := range sections {
		if len(lines) == 0 {
			continue
		}
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (fm *Formatter) model(f metadata.Fields) []string {
	if !metadata.Known(f.Model) {
		return nil
	}
	return []string{fm.label(symbolModels, "MODEL: "+f.Model)}
}

func (fm *Formatter) prompts(f metadata.Fields) []string {
	if f.Positive == "" && f.Negative == "" {
		return nil
	}
	return []string{
		fm.label(symbolPrompts, "PROMPTS:"),
		"  Positive: " + orEmpty(f.Positive),
		"  Negative: " + orEmpty(f.Negative),
	}
}

func (fm *Formatter) sampling(f metadata.Fields) []string {
	if !f.HasSampling() {
		return nil
	}
	return []string{
		fm.label(symbolSampling, "SAMPLING SETTINGS:"),
		"  Seed: " + f.Seed,
		"  Steps: " + f.Steps,
		"  CFG Scale: " + f.CFG,
		"  Sampler: " + f.Sampler,
		"  Scheduler: " + f.Scheduler,
		"  Denoise: " + f.Denoise,
	}
}

func (fm *Formatter) dimensions(f metadata.Fields) []string {
	if !f.HasDimensions() {
		return nil
	}
	lines := []string{fm.label(symbolDims, "IMAGE DIMENSIONS:")}

	g := Geometry{Width: metadata.IntOrZero(f.Width), Height: metadata.IntOrZero(f.Height)}
	if g.Valid() {
		lines = append(lines,
			fmt.Sprintf("  Resolution: %dx%d | %.2fMP", g.Width, g.Height, g.Megapixels()),
			"  Ratio: "+g.Ratio(),
		)
	} else {
		// at least one side is an unresolved reference
		lines = append(lines, fmt.Sprintf("  Resolution: %sx%s", f.Width, f.Height))
	}
	if metadata.Known(f.BatchSize) {
		lines = append(lines, "  Batch Size: "+f.BatchSize)
	}
	return lines
}

func (fm *Formatter) components(f metadata.Fields) []string {
	if len(f.Components) == 0 && !metadata.Known(f.ModelHash) {
		return nil
	}
	lines := []string{fm.label(symbolModels, "MODELS & COMPONENTS:")}
	for _, c := range f.Components {
		lines = append(lines, fmt.Sprintf("  %s: %s", c.Kind, c.Name))
	}
	if metadata.Known(f.ModelHash) {
		lines = append(lines, "  Model Hash: "+f.ModelHash)
	}
	return lines
}

func (fm *Formatter) loras(f metadata.Fields) []string {
	if len(f.LoRAs) == 0 {
		return nil
	}
	lines := []string{fm.label(symbolLoRA, "LORA MODELS:")}
	for _, l := range f.LoRAs {
		lines = append(lines, fmt.Sprintf("  %s (Strength: %s)", l.Name, l.Strength))
	}
	return lines
}

func (fm *Formatter) advanced(f metadata.Fields) []string {
	if !f.HasAdvanced() {
		return nil
	}
	lines := []string{fm.label(symbolAdvanced, "ADVANCED SETTINGS:")}
	add := func(name, value string) {
		if metadata.Known(value) {
			lines = append(lines, "  "+name+": "+value)
		}
	}
	add("Clip Skip", f.ClipSkip)
	add("Hires Upscale", f.HiresUpscale)
	add("Hires Steps", f.HiresSteps)
	add("Hires Upscaler", f.HiresUpscaler)
	add("WebUI Version", f.Version)
	return lines
}
