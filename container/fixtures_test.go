package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"unicode/utf16"
)

func pngChunk(typ string, data []byte) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(typ)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	_ = binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func buildPNG(width, height int, chunks ...[]byte) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(height))
	ihdr[8] = 8
	ihdr[9] = 2

	var b bytes.Buffer
	b.Write(pngSignature)
	b.Write(pngChunk("IHDR", ihdr))
	for _, c := range chunks {
		b.Write(c)
	}
	b.Write(pngChunk("IEND", nil))
	return b.Bytes()
}

func deflate(text string) []byte {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	_, _ = w.Write([]byte(text))
	_ = w.Close()
	return b.Bytes()
}

func tEXt(keyword, text string) []byte {
	return pngChunk("tEXt", []byte(keyword+"\x00"+text))
}

func zTXt(keyword, text string) []byte {
	data := append([]byte(keyword+"\x00\x00"), deflate(text)...)
	return pngChunk("zTXt", data)
}

func iTXt(keyword, text string, compressed bool) []byte {
	data := []byte(keyword + "\x00")
	if compressed {
		data = append(data, 1, 0)
		data = append(data, []byte("en\x00\x00")...)
		data = append(data, deflate(text)...)
	} else {
		data = append(data, 0, 0)
		data = append(data, []byte("en\x00\x00")...)
		data = append(data, []byte(text)...)
	}
	return pngChunk("iTXt", data)
}

func riffChunk(fourCC string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(fourCC)
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	if len(data)%2 == 1 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

func buildWebP(width, height int, chunks ...[]byte) []byte {
	vp8x := make([]byte, 10)
	vp8x[0] = 0x08 // EXIF present
	w, h := uint32(width-1), uint32(height-1)
	vp8x[4], vp8x[5], vp8x[6] = byte(w), byte(w>>8), byte(w>>16)
	vp8x[7], vp8x[8], vp8x[9] = byte(h), byte(h>>8), byte(h>>16)

	var body bytes.Buffer
	body.WriteString("WEBP")
	body.Write(riffChunk("VP8X", vp8x))
	for _, c := range chunks {
		body.Write(c)
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

// buildTIFF produces a little endian TIFF structure whose Exif sub-IFD holds a UserComment.
func buildTIFF(userComment []byte) []byte {
	le := binary.LittleEndian
	const ifd0, exifIFD, dataOffset = 8, 26, 44

	out := make([]byte, dataOffset, dataOffset+len(userComment))
	copy(out, "II*\x00")
	le.PutUint32(out[4:], ifd0)

	le.PutUint16(out[ifd0:], 1)
	le.PutUint16(out[ifd0+2:], tagExifIFD)
	le.PutUint16(out[ifd0+4:], 4)
	le.PutUint32(out[ifd0+6:], 1)
	le.PutUint32(out[ifd0+10:], exifIFD)

	le.PutUint16(out[exifIFD:], 1)
	le.PutUint16(out[exifIFD+2:], tagUserComment)
	le.PutUint16(out[exifIFD+4:], 7)
	le.PutUint32(out[exifIFD+6:], uint32(len(userComment)))
	le.PutUint32(out[exifIFD+10:], dataOffset)

	return append(out, userComment...)
}

func asciiComment(text string) []byte {
	return append([]byte("ASCII\x00\x00\x00"), []byte(text)...)
}

func unicodeComment(text string) []byte {
	out := []byte("UNICODE\x00")
	for _, u := range utf16.Encode([]rune(text)) {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func jpegSegment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(out[2:], uint16(len(payload)+2))
	return append(out, payload...)
}

func buildJPEG(width, height int, segments ...[]byte) []byte {
	sof := []byte{8, 0, 0, 0, 0, 3, 1, 0x22, 0, 2, 0x11, 1, 3, 0x11, 1}
	binary.BigEndian.PutUint16(sof[1:], uint16(height))
	binary.BigEndian.PutUint16(sof[3:], uint16(width))

	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	for _, s := range segments {
		b.Write(s)
	}
	b.Write(jpegSegment(0xC0, sof))
	b.Write(jpegSegment(markerSOS, []byte{1, 1, 0, 0, 0x3f, 0}))
	b.Write([]byte{0x00, 0x00, 0xFF, 0xD9})
	return b.Bytes()
}
