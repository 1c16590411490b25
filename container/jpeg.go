package container

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	markerCOM  = 0xFE
)

func isSOF(marker byte) bool {
	return marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

// readJPEG walks the segments up to the start of scan.
func readJPEG(data []byte) (*Blob, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a valid JPEG file")
	}

	blob := newBlob(KindJPEG)
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return blob, nil
		}
		marker := data[pos+1]
		if marker == 0xFF {
			// fill byte
			pos++
			continue
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		if marker == markerSOS || marker == 0xD9 {
			return blob, nil
		}

		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		if length < 2 || pos+2+length > len(data) {
			return blob, nil
		}
		payload := data[pos+4 : pos+2+length]

		switch {
		case marker == markerAPP1 && bytes.HasPrefix(payload, []byte("Exif\x00\x00")):
			blob.EXIF = payload
		case marker == markerCOM:
			blob.Text["comment"] = string(bytes.TrimRight(payload, "\x00"))
		case isSOF(marker) && len(payload) >= 5:
			blob.Height = int(binary.BigEndian.Uint16(payload[1:]))
			blob.Width = int(binary.BigEndian.Uint16(payload[3:]))
		}
		pos += 2 + length
	}
	return blob, nil
}
