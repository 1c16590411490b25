package metadata

import (
	"regexp"
	"strings"
)

const negativePrefix = "Negative prompt:"

type flatParam struct {
	target  func(f *Fields) *string
	pattern *regexp.Regexp
}

var flatParams = []flatParam{
	{func(f *Fields) *string { return &f.Steps }, regexp.MustCompile(`Steps:\s*(\d+)`)},
	{func(f *Fields) *string { return &f.Sampler }, regexp.MustCompile(`Sampler:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.CFG }, regexp.MustCompile(`CFG scale:\s*([\d.]+)`)},
	{func(f *Fields) *string { return &f.Seed }, regexp.MustCompile(`Seed:\s*(\d+)`)},
	{func(f *Fields) *string { return &f.Model }, regexp.MustCompile(`Model:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.ModelHash }, regexp.MustCompile(`Model hash:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.Denoise }, regexp.MustCompile(`Denoising strength:\s*([\d.]+)`)},
	{func(f *Fields) *string { return &f.ClipSkip }, regexp.MustCompile(`Clip skip:\s*(\d+)`)},
	{func(f *Fields) *string { return &f.Scheduler }, regexp.MustCompile(`Schedule type:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.Version }, regexp.MustCompile(`Version:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.VAE }, regexp.MustCompile(`VAE:\s*([^,]+)`)},
	{func(f *Fields) *string { return &f.HiresUpscale }, regexp.MustCompile(`Hires upscale:\s*([\d.]+)`)},
	{func(f *Fields) *string { return &f.HiresSteps }, regexp.MustCompile(`Hires steps:\s*(\d+)`)},
	{func(f *Fields) *string { return &f.HiresUpscaler }, regexp.MustCompile(`Hires upscaler:\s*([^,]+)`)},
}

var (
	flatSize       = regexp.MustCompile(`Size:\s*(\d+)x(\d+)`)
	flatLoRA       = regexp.MustCompile(`<lora:([^:]+):([\d.]+)>`)
	flatModelAny   = regexp.MustCompile(`Model:\s*([^,\n]+)`)
	flatFirstField = regexp.MustCompile(`(Steps|Sampler|CFG scale|Seed|Size|Model hash|Model|Denoising strength|Clip skip|Schedule type|Version|VAE|Hires upscale|Hires upscaler|Hires steps):`)
)

// FlatParser extracts Fields from WebUI Forge/A1111 "parameters" text.
type FlatParser struct{}

func NewFlatParser() *FlatParser {
	return &FlatParser{}
}

// paramLine returns the index of the line holding the generation parameters, -1 if none.
// The negative prompt line only qualifies when no other line carries the parameters.
func paramLine(lines []string) int {
	for i, line := range lines {
		if !strings.HasPrefix(line, negativePrefix) && hallmarkSteps.MatchString(line) {
			return i
		}
	}
	for i, line := range lines {
		if strings.HasPrefix(line, negativePrefix) {
			continue
		}
		if hallmarkSampler.MatchString(line) || hallmarkCFG.MatchString(line) {
			return i
		}
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, negativePrefix) {
			continue
		}
		if hallmarkSteps.MatchString(line) || hallmarkSampler.MatchString(line) || hallmarkCFG.MatchString(line) {
			return i
		}
	}
	return -1
}

func (fp *FlatParser) Parse(text string) Fields {
	f := NewFields()
	text = StripPromptPrefix(text)
	lines := strings.Split(text, "\n")
	idx := paramLine(lines)

	guard("flat prompts", func() { f.Positive, f.Negative = flatPrompts(lines, idx) })
	if idx >= 0 {
		line := lines[idx]
		guard("flat parameters", func() {
			for _, p := range flatParams {
				if m := p.pattern.FindStringSubmatch(line); m != nil {
					if v := strings.TrimSpace(m[1]); v != "" {
						*p.target(&f) = v
					}
				}
			}
			if m := flatSize.FindStringSubmatch(line); m != nil {
				f.Width, f.Height = m[1], m[2]
			}
		})
	}
	guard("flat model", func() {
		if Known(f.Model) {
			return
		}
		if m := flatModelAny.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				f.Model = v
			}
		}
	})
	guard("flat loras", func() {
		set := newLoraSet()
		for _, m := range flatLoRA.FindAllStringSubmatch(text, -1) {
			set.add(m[1], m[2])
		}
		f.LoRAs = set.items
	})
	guard("flat components", func() {
		set := newComponentSet(f.LoRAs)
		if Known(f.Model) {
			set.add("CHECKPOINT", f.Model)
		}
		if Known(f.VAE) {
			set.add("VAE", f.VAE)
		}
		f.Components = set.items
	})
	return f
}

// flatPrompts collects the positive prompt from the lines before the parameter line, plus
// any free text the parameter line carries before its first field.
func flatPrompts(lines []string, idx int) (string, string) {
	var negative string
	var parts []string
	for i, line := range lines {
		if strings.HasPrefix(line, negativePrefix) {
			if negative == "" {
				negative = strings.TrimSpace(strings.TrimPrefix(line, negativePrefix))
			}
			continue
		}
		if idx >= 0 && i >= idx {
			continue
		}
		parts = append(parts, line)
	}
	if idx >= 0 && !strings.HasPrefix(lines[idx], negativePrefix) {
		line := lines[idx]
		if loc := flatFirstField.FindStringIndex(line); loc != nil {
			if prefix := strings.TrimSpace(line[:loc[0]]); prefix != "" {
				parts = append(parts, prefix)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), negative
}
