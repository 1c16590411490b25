package container

import (
	"bytes"
	"encoding/binary"
	"errors"
)

func readWebP(data []byte) (*Blob, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, errors.New("not a valid WebP file")
	}

	blob := newBlob(KindWebP)
	haveCanvas := false
	pos := 12
	for pos+8 <= len(data) {
		fourCC := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		start := pos + 8
		end := start + size
		if size < 0 || end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		switch fourCC {
		case "VP8X":
			// canvas size is stored minus one in 24 bit fields
			if len(chunk) >= 10 {
				blob.Width = int(uint24(chunk[4:7])) + 1
				blob.Height = int(uint24(chunk[7:10])) + 1
				haveCanvas = true
			}
		case "VP8 ":
			if !haveCanvas && len(chunk) >= 10 && bytes.Equal(chunk[3:6], []byte{0x9d, 0x01, 0x2a}) {
				blob.Width = int(binary.LittleEndian.Uint16(chunk[6:]) & 0x3fff)
				blob.Height = int(binary.LittleEndian.Uint16(chunk[8:]) & 0x3fff)
			}
		case "VP8L":
			if !haveCanvas && len(chunk) >= 5 && chunk[0] == 0x2f {
				bits := binary.LittleEndian.Uint32(chunk[1:])
				blob.Width = int(bits&0x3fff) + 1
				blob.Height = int((bits>>14)&0x3fff) + 1
			}
		case "EXIF":
			blob.EXIF = chunk
		}

		// chunks are padded to an even length
		pos = start + size + size%2
	}
	return blob, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
