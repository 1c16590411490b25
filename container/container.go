// Package container pulls embedded generation metadata out of image and video files.
package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupported = errors.New("unsupported container format")

// NotFoundRaw is the raw blob of a file that carries no recognisable metadata.
const NotFoundRaw = "No ComfyUI or WebUI format metadata found. Image may be from a different source."

type Kind int

const (
	KindUnknown Kind = iota
	KindPNG
	KindWebP
	KindJPEG
	KindVideo
)

func (k Kind) String() string {
	return []string{
		"unknown",
		"png",
		"webp",
		"jpeg",
		"video",
	}[k]
}

// Sniff classifies data by content. Extensions are never consulted.
func Sniff(data []byte) Kind {
	return kindOf(mimetype.Detect(data))
}

// SniffFile classifies the file at path from its leading bytes.
func SniffFile(path string) (Kind, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("sniff %s: %w", path, err)
	}
	return kindOf(m), nil
}

// kindOf walks up the MIME tree so that e.g. APNG is read as PNG.
func kindOf(m *mimetype.MIME) Kind {
	for ; m != nil; m = m.Parent() {
		switch {
		case m.Is("image/png"):
			return KindPNG
		case m.Is("image/webp"):
			return KindWebP
		case m.Is("image/jpeg"):
			return KindJPEG
		case strings.HasPrefix(m.String(), "video/"):
			return KindVideo
		}
	}
	return KindUnknown
}

// Blob is everything an image container told us about itself.
type Blob struct {
	Kind   Kind
	Width  int
	Height int
	// Text holds textual entries by keyword: PNG text chunks, or "comment" for a JPEG COM
	// segment.
	Text map[string]string
	// EXIF is the raw EXIF payload, with or without the "Exif\0\0" preamble.
	EXIF []byte
}

func newBlob(kind Kind) *Blob {
	return &Blob{Kind: kind, Text: make(map[string]string)}
}

// Raw picks the single metadata blob that describes the generation. A prompt chunk that is
// valid JSON wins, then WebUI parameters, then whatever the EXIF payload carries, then the
// UI workflow and finally a plain comment.
func (b *Blob) Raw() string {
	if p, ok := b.Text["prompt"]; ok && json.Valid([]byte(strings.TrimSpace(p))) {
		return p
	}
	if p := b.Text["parameters"]; strings.TrimSpace(p) != "" {
		return p
	}
	if len(b.EXIF) > 0 {
		if raw, ok := exifRaw(b.EXIF); ok {
			return raw
		}
	}
	if w, ok := wrapWorkflow(b.Text["workflow"]); ok {
		return w
	}
	for _, key := range []string{"comment", "Comment", "Description"} {
		if c := b.Text[key]; strings.TrimSpace(c) != "" {
			return c
		}
	}
	return NotFoundRaw
}

// Workflow returns the UI workflow stored next to the prompt, if any.
func (b *Blob) Workflow() string {
	if w := b.Text["workflow"]; json.Valid([]byte(w)) {
		return w
	}
	if len(b.EXIF) > 0 {
		if w, ok := exifMarker(b.EXIF, "workflow:"); ok {
			return w
		}
	}
	return ""
}

func wrapWorkflow(w string) (string, bool) {
	w = strings.TrimSpace(w)
	if w == "" || !json.Valid([]byte(w)) {
		return "", false
	}
	return `{"workflow": ` + w + `}`, true
}

// Read parses an in-memory image.
func Read(data []byte) (*Blob, error) {
	switch kind := Sniff(data); kind {
	case KindPNG:
		return readPNG(data)
	case KindWebP:
		return readWebP(data)
	case KindJPEG:
		return readJPEG(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// ReadFile parses the image at path.
func ReadFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	b, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}
