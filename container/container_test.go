package container

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	promptJSON   = `{"3":{"class_type":"KSampler","inputs":{"seed":42}}}`
	workflowJSON = `{"nodes":[{"id":1,"type":"KSampler"}],"links":[]}`
	flatText     = "a cat\nSteps: 20, Sampler: Euler, CFG scale: 7, Seed: 1, Size: 512x512"
)

func TestSniff(t *testing.T) {
	assert.Equal(t, KindPNG, Sniff(buildPNG(1, 1)))
	assert.Equal(t, KindWebP, Sniff(buildWebP(1, 1)))
	assert.Equal(t, KindJPEG, Sniff(buildJPEG(1, 1)))
	assert.Equal(t, KindUnknown, Sniff([]byte("GIF89a\x01\x00\x01\x00")))
	assert.Equal(t, "webp", KindWebP.String())
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(path, buildPNG(64, 32, tEXt("prompt", promptJSON)), 0o644))

	kind, err := SniffFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindPNG, kind)

	blob, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, promptJSON, blob.Raw())

	_, err = ReadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestPNGTextChunks(t *testing.T) {
	data := buildPNG(832, 1216,
		tEXt("prompt", promptJSON),
		zTXt("workflow", workflowJSON),
		iTXt("parameters", flatText, false),
		iTXt("Description", "compressed text", true),
	)
	blob, err := Read(data)
	require.NoError(t, err)

	assert.Equal(t, KindPNG, blob.Kind)
	assert.Equal(t, 832, blob.Width)
	assert.Equal(t, 1216, blob.Height)
	assert.Equal(t, flatText, blob.Text["parameters"])
	assert.Equal(t, "compressed text", blob.Text["Description"])
	assert.Equal(t, promptJSON, blob.Raw())
	assert.Equal(t, workflowJSON, blob.Workflow())
}

func TestPNGRawPriority(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
		want   string
	}{
		{
			name:   "invalid prompt falls through to parameters",
			chunks: [][]byte{tEXt("prompt", "{not json"), tEXt("parameters", flatText)},
			want:   flatText,
		},
		{
			name:   "workflow only is wrapped",
			chunks: [][]byte{iTXt("workflow", workflowJSON, true)},
			want:   `{"workflow": ` + workflowJSON + `}`,
		},
		{
			name:   "comment",
			chunks: [][]byte{tEXt("Comment", "made by hand")},
			want:   "made by hand",
		},
		{
			name:   "exif user comment before comment",
			chunks: [][]byte{tEXt("Comment", "made by hand"), pngChunk("eXIf", buildTIFF(asciiComment(flatText)))},
			want:   flatText,
		},
		{
			name: "nothing",
			want: NotFoundRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Read(buildPNG(8, 8, tt.chunks...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, blob.Raw())
		})
	}
}

func TestPNGTruncated(t *testing.T) {
	data := buildPNG(8, 8, tEXt("parameters", flatText), tEXt("prompt", promptJSON))
	// cut into the second text chunk
	cut := len(data) - len(pngChunk("IEND", nil)) - 10
	blob, err := Read(data[:cut])
	require.NoError(t, err)
	assert.Equal(t, flatText, blob.Raw())
}

func TestPNGMalformedTextChunkSkipped(t *testing.T) {
	blob, err := Read(buildPNG(8, 8, pngChunk("tEXt", []byte("nokeyword")), tEXt("parameters", flatText)))
	require.NoError(t, err)
	assert.Equal(t, flatText, blob.Raw())
}

func TestWebPExifMarkers(t *testing.T) {
	exif := append([]byte("Exif\x00\x00"), buildTIFF(nil)...)
	exif = append(exif, []byte("workflow:"+workflowJSON+"\x00prompt:"+promptJSON+"\x00")...)

	blob, err := Read(buildWebP(1024, 768, riffChunk("EXIF", exif)))
	require.NoError(t, err)

	assert.Equal(t, KindWebP, blob.Kind)
	assert.Equal(t, 1024, blob.Width)
	assert.Equal(t, 768, blob.Height)
	assert.Equal(t, promptJSON, blob.Raw())
	assert.Equal(t, workflowJSON, blob.Workflow())
}

func TestWebPWorkflowOnly(t *testing.T) {
	exif := []byte("workflow:" + workflowJSON + "\x00")
	blob, err := Read(buildWebP(16, 16, riffChunk("EXIF", exif)))
	require.NoError(t, err)
	assert.Equal(t, `{"workflow": `+workflowJSON+`}`, blob.Raw())
}

func TestWebPWithoutMetadata(t *testing.T) {
	blob, err := Read(buildWebP(16, 9))
	require.NoError(t, err)
	assert.Equal(t, NotFoundRaw, blob.Raw())
	assert.Empty(t, blob.Workflow())
}

func TestJPEGUserComment(t *testing.T) {
	tests := []struct {
		name    string
		comment []byte
	}{
		{"ascii", asciiComment(flatText)},
		{"unicode", unicodeComment(flatText)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app1 := append([]byte("Exif\x00\x00"), buildTIFF(tt.comment)...)
			data := buildJPEG(640, 480, jpegSegment(markerAPP1, app1), jpegSegment(markerCOM, []byte("ignored")))

			blob, err := Read(data)
			require.NoError(t, err)
			assert.Equal(t, KindJPEG, blob.Kind)
			assert.Equal(t, 640, blob.Width)
			assert.Equal(t, 480, blob.Height)
			assert.Equal(t, flatText, blob.Raw())
		})
	}
}

func TestJPEGComment(t *testing.T) {
	blob, err := Read(buildJPEG(10, 20, jpegSegment(markerCOM, []byte(flatText+"\x00"))))
	require.NoError(t, err)
	assert.Equal(t, flatText, blob.Raw())
}

func TestDecodeUserCommentByteOrderMark(t *testing.T) {
	raw := []byte("UNICODE\x00\xFE\xFF\x00h\x00i")
	assert.Equal(t, "hi", decodeUserComment(raw, nil))
}
