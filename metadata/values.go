package metadata

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

// guard runs one extraction step. A panic inside it is logged and the step's fields keep
// whatever they held before.
func guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Metadata extraction step failed", "step", step, "error", r)
		}
	}()
	fn()
}

// referencePlaceholder is how an unresolved one-hop reference is displayed.
func referencePlaceholder(ref graphapi.Reference) string {
	return fmt.Sprintf("[Node Reference: %s]", ref.NodeID)
}

func isPlaceholder(s string) bool {
	return strings.HasPrefix(s, "[Node Reference: ")
}

// display converts a literal value into report text. References, nulls and blank strings
// read as Unknown; a list reads as its first item.
func display(v graphapi.Value) string {
	switch v.Kind() {
	case graphapi.KindNull, graphapi.KindReference:
		return Unknown
	case graphapi.KindString:
		s, _ := v.AsString()
		if strings.TrimSpace(s) == "" {
			return Unknown
		}
		return s
	case graphapi.KindList:
		items, _ := v.List()
		if len(items) == 0 {
			return Unknown
		}
		return display(items[0])
	}
	return v.String()
}

// literalName returns a usable model or file name: a non-blank string that is not "None".
func literalName(v graphapi.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return "", false
	}
	return s, true
}

// baseName strips directories written with either separator.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

func normalizedFile(name string) string {
	return strings.ToLower(baseName(strings.TrimSpace(name)))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// numericLike matches values such as "1.0", "-2" or "3_000" that can never name a file.
func numericLike(s string) bool {
	stripped := strings.NewReplacer(".", "", "-", "", "_", "").Replace(s)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
