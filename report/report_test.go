package report

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShammiG/comfy-readable-metadata/metadata"
)

func TestRenderNotFound(t *testing.T) {
	res := metadata.NewExtractor(metadata.Options{}).Extract(`{"broken": `)
	assert.Equal(t, NotFound, NewFormatter(true).Render(res))
}

func TestRenderSectionOrder(t *testing.T) {
	f := metadata.NewFields()
	f.Model = "sdxl.safetensors"
	f.Positive = "a cat"
	f.Seed, f.Steps, f.CFG = "42", "20", "7.5"
	f.Width, f.Height, f.BatchSize = "1024", "576", "1"
	f.Components = []metadata.Component{{Kind: "VAE", Name: "ae.safetensors"}}
	f.LoRAs = []metadata.LoRA{{Name: "grain.safetensors", Strength: "0.5"}}
	f.ClipSkip = "2"

	out := NewFormatter(true).Render(metadata.Result{Format: metadata.FormatGraph, Fields: f})

	order := []string{
		HeaderGraph,
		"🧠 MODEL: sdxl.safetensors",
		"📝 PROMPTS:",
		"🎯 SAMPLING SETTINGS:",
		"📏 IMAGE DIMENSIONS:",
		"🧠 MODELS & COMPONENTS:",
		"🎨 LORA MODELS:",
		"⚙️ ADVANCED SETTINGS:",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		require.GreaterOrEqual(t, i, 0, "missing %q", s)
		assert.Greater(t, i, last, "%q out of order", s)
		last = i
	}

	assert.Contains(t, out, "  Negative: (empty)")
	assert.Contains(t, out, "  Resolution: 1024x576 | 0.59MP")
	assert.Contains(t, out, "  Ratio: 16:9 or 1.78:1")
	assert.Contains(t, out, "  VAE: ae.safetensors")
	assert.Contains(t, out, "  grain.safetensors (Strength: 0.5)")
	assert.Contains(t, out, "  Clip Skip: 2")
	assert.Contains(t, out, "  Scheduler: N/A")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRenderOmitsAbsentSections(t *testing.T) {
	res := metadata.NewExtractor(metadata.Options{}).Extract("Steps: 20")
	out := NewFormatter(false).Render(res)

	assert.True(t, strings.HasPrefix(out, HeaderFlat))
	assert.Contains(t, out, "SAMPLING SETTINGS:")
	assert.Contains(t, out, "  Steps: 20")
	for _, absent := range []string{"MODEL:", "PROMPTS:", "IMAGE DIMENSIONS:", "MODELS & COMPONENTS:", "LORA MODELS:", "ADVANCED SETTINGS:"} {
		assert.NotContains(t, out, absent)
	}
	assert.NotContains(t, out, "🎯")
}

func TestRenderWorkflowHeaderAndPlaceholderSize(t *testing.T) {
	f := metadata.NewFields()
	f.Width, f.Height = "[Node Reference: 7]", "512"

	out := NewFormatter(false).Render(metadata.Result{Format: metadata.FormatWorkflow, Fields: f})
	assert.Equal(t, HeaderWorkflow+"\n\nIMAGE DIMENSIONS:\n  Resolution: [Node Reference: 7]x512", out)
}

func TestRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{1024, 1024, "1:1 or 1.00:1"},
		{1920, 1080, "16:9 or 1.78:1"},
		{832, 1216, "13:19 or 0.68:1"},
		{1344, 768, "7:4 or 1.75:1 or ~16:9"},
		{1536, 640, "12:5 or 2.40:1"},
		{2560, 1080, "64:27 or 2.37:1 or ~2.39:1"},
		{0, 512, "N/A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Geometry{Width: tt.w, Height: tt.h}.Ratio(), "%dx%d", tt.w, tt.h)
	}
}

func TestSummaryLines(t *testing.T) {
	f := metadata.NewFields()
	f.Model = "flux1-dev.safetensors (UNET)"
	f.Seed, f.Steps, f.CFG = "7", "25", "1.0"
	f.Sampler, f.Scheduler = "euler", "simple"

	lines := SummaryLines(Geometry{Width: 1024, Height: 1024}, 3*1024*1024/2, f)
	assert.Equal(t, []string{
		"1024x1024 | 1.05MP",
		"Ratio: 1:1 or 1.00:1",
		"File Size: 1.50MB",
		"",
		"Model: flux1-dev.safetensors (UNET)",
		"Seed: 7 | Steps: 25 | CFG: 1.0",
		"Sampler: euler | Scheduler: simple",
	}, lines)
}

func TestVideoHeader(t *testing.T) {
	out := VideoHeader(VideoInfo{
		Path:     "/out/clip_00001.mp4",
		Geometry: Geometry{Width: 832, Height: 480},
		Size:     2 * 1024 * 1024,
		FPS:      16,
		Duration: 5.0625,
	})
	assert.Equal(t, "=== Video Information ===\nFilename: clip_00001.mp4\n832x480 | 0.40MP | 2.00MB\nFPS: 16 | Duration: 5.1s", out)
}

func TestStats(t *testing.T) {
	assert.Equal(t, TextStats{}, Stats(""))
	assert.Equal(t, TextStats{Chars: 11, Words: 4, Lines: 2}, Stats("héllo a\nb c"))
	assert.Equal(t, TextStats{Chars: 4, Words: 1, Lines: 1}, Stats("abc\n"))
	assert.Equal(t, "Characters: 4 | Words: 1 | Lines: 1", Stats("abc\n").String())
}

func TestColorizeDisabled(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	assert.Equal(t, HeaderGraph+"\n\nMODEL: x", Colorize(HeaderGraph+"\n\nMODEL: x"))
}
