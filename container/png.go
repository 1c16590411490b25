package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var pngSignature = []byte{137, 80, 78, 71, 13, 10, 26, 10}

// maxTextChunk bounds decompressed text chunks.
const maxTextChunk = 64 << 20

func readPNG(data []byte) (*Blob, error) {
	r := bytes.NewReader(data)
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if !bytes.Equal(header, pngSignature) {
		return nil, errors.New("not a valid PNG file")
	}

	blob := newBlob(KindPNG)
	for {
		var length uint32
		err := binary.Read(r, binary.BigEndian, &length)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(r, chunkType); err != nil {
			return nil, err
		}
		if int64(length) > int64(r.Len()) {
			// truncated file: keep what was read so far
			slog.Warn("Truncated PNG chunk", "type", string(chunkType), "length", length)
			break
		}
		chunkData := make([]byte, length)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, err
		}

		switch string(chunkType) {
		case "IHDR":
			if len(chunkData) >= 8 {
				blob.Width = int(binary.BigEndian.Uint32(chunkData[0:4]))
				blob.Height = int(binary.BigEndian.Uint32(chunkData[4:8]))
			}
		case "tEXt", "zTXt", "iTXt":
			keyword, text, err := decodeTextChunk(string(chunkType), chunkData)
			if err != nil {
				slog.Warn("Skipping malformed PNG text chunk", "type", string(chunkType), "error", err)
				break
			}
			blob.Text[keyword] = text
		case "eXIf":
			blob.EXIF = chunkData
		case "IEND":
			return blob, nil
		}

		// Skip the CRC
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}
	return blob, nil
}

// decodeTextChunk splits a tEXt, zTXt or iTXt payload into keyword and text.
func decodeTextChunk(chunkType string, data []byte) (string, string, error) {
	keywordEnd := bytes.IndexByte(data, 0)
	if keywordEnd == -1 {
		return "", "", fmt.Errorf("malformed %s chunk", chunkType)
	}
	keyword := string(data[:keywordEnd])
	rest := data[keywordEnd+1:]

	switch chunkType {
	case "tEXt":
		return keyword, string(rest), nil
	case "zTXt":
		// compression method byte, then the zlib stream
		if len(rest) < 1 {
			return "", "", errors.New("zTXt chunk without compression method")
		}
		text, err := inflate(rest[1:])
		return keyword, text, err
	}

	// iTXt: compression flag, compression method, language tag\0, translated keyword\0, text
	if len(rest) < 2 {
		return "", "", errors.New("iTXt chunk too short")
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		end := bytes.IndexByte(rest, 0)
		if end == -1 {
			return "", "", errors.New("iTXt chunk without terminator")
		}
		rest = rest[end+1:]
	}
	if !compressed {
		return keyword, string(rest), nil
	}
	text, err := inflate(rest)
	return keyword, text, err
}

func inflate(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxTextChunk))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
