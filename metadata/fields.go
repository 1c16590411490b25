package metadata

import (
	"log/slog"
	"strconv"
	"strings"
)

// Unknown is the sentinel every absent field reads as.
const Unknown = "N/A"

// LoRA is one LoRA reference with its strength as written in the source.
type LoRA struct {
	Name     string
	Strength string
}

// Component is an auxiliary model: VAE, CLIP, text encoder, control net, upscaler and so on.
// Kind is the display label, for example "VAE" or "CLIP-2".
type Component struct {
	Kind string
	Name string
}

// Fields holds everything extracted from one metadata blob. Scalar fields are never empty;
// absent values read as Unknown. Prompts are empty when absent.
type Fields struct {
	Model     string
	Seed      string
	Steps     string
	CFG       string
	Sampler   string
	Scheduler string
	Denoise   string

	Positive string
	Negative string

	Width     string
	Height    string
	BatchSize string

	ModelHash     string
	ClipSkip      string
	Version       string
	VAE           string
	HiresUpscale  string
	HiresSteps    string
	HiresUpscaler string

	LoRAs      []LoRA
	Components []Component
}

// NewFields returns Fields with every scalar set to Unknown.
func NewFields() Fields {
	return Fields{
		Model:         Unknown,
		Seed:          Unknown,
		Steps:         Unknown,
		CFG:           Unknown,
		Sampler:       Unknown,
		Scheduler:     Unknown,
		Denoise:       Unknown,
		Width:         Unknown,
		Height:        Unknown,
		BatchSize:     Unknown,
		ModelHash:     Unknown,
		ClipSkip:      Unknown,
		Version:       Unknown,
		VAE:           Unknown,
		HiresUpscale:  Unknown,
		HiresSteps:    Unknown,
		HiresUpscaler: Unknown,
	}
}

// Known reports whether s carries a value.
func Known(s string) bool {
	return s != "" && s != Unknown
}

// HasSampling reports whether any sampling field is known.
func (f Fields) HasSampling() bool {
	return Known(f.Seed) || Known(f.Steps) || Known(f.CFG) || Known(f.Sampler) || Known(f.Scheduler) || Known(f.Denoise)
}

// HasDimensions reports whether the latent or declared size is known.
func (f Fields) HasDimensions() bool {
	return Known(f.Width) && Known(f.Height)
}

// HasAdvanced reports whether any of the flat-text only settings are present.
func (f Fields) HasAdvanced() bool {
	return Known(f.ClipSkip) || Known(f.Version) || Known(f.HiresUpscale) || Known(f.HiresSteps) || Known(f.HiresUpscaler)
}

// SeedInt returns the seed as an integer, or 0 when it is unknown or not a number.
func (f Fields) SeedInt() int64 {
	if !Known(f.Seed) {
		return 0
	}
	s := strings.TrimSpace(f.Seed)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		slog.Debug("Seed exceeds int64, wrapping", "seed", s)
		return int64(u)
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(fl)
	}
	return 0
}

// IntOrZero parses a dimension style field.
func IntOrZero(s string) int {
	if !Known(s) {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}
