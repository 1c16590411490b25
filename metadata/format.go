package metadata

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Format is the dialect of a metadata blob.
type Format int

const (
	FormatUnknown Format = iota
	// FormatGraph is a ComfyUI API prompt (node id -> node record).
	FormatGraph
	// FormatFlat is the WebUI Forge/A1111 "parameters" text.
	FormatFlat
	// FormatWorkflow is a ComfyUI UI workflow (nodes list). Detect never returns it; the
	// extractor refines FormatGraph into it after looking at the document.
	FormatWorkflow
)

func (f Format) String() string {
	switch f {
	case FormatGraph:
		return "comfyui"
	case FormatFlat:
		return "webui"
	case FormatWorkflow:
		return "comfyui-workflow"
	}
	return "unknown"
}

var (
	hallmarkSteps   = regexp.MustCompile(`Steps:\s*\d+`)
	hallmarkSampler = regexp.MustCompile(`Sampler:\s*\w+`)
	hallmarkCFG     = regexp.MustCompile(`CFG scale:\s*[\d.]+`)
)

// StripPromptPrefix trims the text and removes one leading "Prompt:" marker, as written
// by some front-ends and by video comment tags.
func StripPromptPrefix(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Prompt:") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "Prompt:"))
	}
	return text
}

// Detect classifies a raw metadata blob. Valid JSON is a graph, text carrying any of the
// Steps/Sampler/CFG scale markers is flat, anything else is unknown. It never panics.
func Detect(text string) (format Format) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Format detection failed", "error", r)
			format = FormatUnknown
		}
	}()

	body := StripPromptPrefix(text)
	if body == "" {
		return FormatUnknown
	}
	if json.Valid([]byte(body)) {
		return FormatGraph
	}
	if hallmarkSteps.MatchString(body) || hallmarkSampler.MatchString(body) || hallmarkCFG.MatchString(body) {
		return FormatFlat
	}
	return FormatUnknown
}
