package container

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"strings"
	"unicode/utf16"
)

const (
	tagExifIFD     = 0x8769
	tagUserComment = 0x9286
)

// exifRaw finds generation metadata in an EXIF payload. ComfyUI writes "prompt:" and
// "workflow:" prefixed strings into arbitrary tags, other tools use UserComment.
func exifRaw(exif []byte) (string, bool) {
	if p, ok := exifMarker(exif, "prompt:"); ok {
		return p, true
	}
	if w, ok := exifMarker(exif, "workflow:"); ok {
		return `{"workflow": ` + w + `}`, true
	}
	if c, ok := userComment(exif); ok {
		return c, true
	}
	return "", false
}

// exifMarker returns the JSON text following marker, up to the next NUL.
func exifMarker(exif []byte, marker string) (string, bool) {
	i := bytes.Index(exif, []byte(marker))
	if i == -1 {
		return "", false
	}
	rest := exif[i+len(marker):]
	if end := bytes.IndexByte(rest, 0); end != -1 {
		rest = rest[:end]
	}
	text := strings.TrimSpace(string(rest))
	if !json.Valid([]byte(text)) {
		return "", false
	}
	return text, true
}

type tiffReader struct {
	data  []byte
	order binary.ByteOrder
}

func newTIFFReader(exif []byte) (*tiffReader, bool) {
	exif = bytes.TrimPrefix(exif, []byte("Exif\x00\x00"))
	if len(exif) < 8 {
		return nil, false
	}
	var order binary.ByteOrder
	switch string(exif[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return nil, false
	}
	return &tiffReader{data: exif, order: order}, true
}

// entry finds tag in the IFD at offset and returns its raw value bytes.
func (t *tiffReader) entry(offset uint32, tag uint16) ([]byte, bool) {
	if int(offset)+2 > len(t.data) {
		return nil, false
	}
	count := int(t.order.Uint16(t.data[offset:]))
	for i := 0; i < count; i++ {
		base := int(offset) + 2 + i*12
		if base+12 > len(t.data) {
			return nil, false
		}
		if t.order.Uint16(t.data[base:]) != tag {
			continue
		}
		typ := t.order.Uint16(t.data[base+2:])
		n := int(t.order.Uint32(t.data[base+4:]))
		size := n * typeSize(typ)
		if size <= 4 {
			return t.data[base+8 : base+8+size], true
		}
		start := int(t.order.Uint32(t.data[base+8:]))
		if start < 0 || start+size > len(t.data) {
			return nil, false
		}
		return t.data[start : start+size], true
	}
	return nil, false
}

func typeSize(typ uint16) int {
	switch typ {
	case 3, 8:
		return 2
	case 4, 9, 11:
		return 4
	case 5, 10, 12:
		return 8
	}
	return 1
}

// userComment walks IFD0 to the Exif sub-IFD and decodes its UserComment.
func userComment(exif []byte) (string, bool) {
	t, ok := newTIFFReader(exif)
	if !ok {
		return "", false
	}
	ifd0 := t.order.Uint32(t.data[4:])

	raw, ok := t.entry(ifd0, tagUserComment)
	if !ok {
		ptr, found := t.entry(ifd0, tagExifIFD)
		if !found || len(ptr) < 4 {
			return "", false
		}
		raw, ok = t.entry(t.order.Uint32(ptr), tagUserComment)
		if !ok {
			return "", false
		}
	}
	text := decodeUserComment(raw, t.order)
	if text == "" {
		return "", false
	}
	return text, true
}

// decodeUserComment honours the 8 byte character code prefix of a UserComment value.
func decodeUserComment(raw []byte, order binary.ByteOrder) string {
	if len(raw) < 8 {
		return strings.Trim(string(raw), "\x00 ")
	}
	prefix, body := string(raw[:8]), raw[8:]
	switch {
	case strings.HasPrefix(prefix, "UNICODE"):
		// a byte order mark overrides the TIFF byte order
		if len(body) >= 2 {
			switch {
			case body[0] == 0xFE && body[1] == 0xFF:
				order, body = binary.BigEndian, body[2:]
			case body[0] == 0xFF && body[1] == 0xFE:
				order, body = binary.LittleEndian, body[2:]
			}
		}
		units := make([]uint16, 0, len(body)/2)
		for i := 0; i+1 < len(body); i += 2 {
			units = append(units, order.Uint16(body[i:]))
		}
		return strings.Trim(string(utf16.Decode(units)), "\x00 ")
	case strings.HasPrefix(prefix, "ASCII"), prefix == "\x00\x00\x00\x00\x00\x00\x00\x00":
		return strings.Trim(string(body), "\x00 ")
	}
	return strings.Trim(string(raw), "\x00 ")
}
