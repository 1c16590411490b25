package container

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/floostack/transcoder/ffmpeg"
)

// videoTagKeys are the container tags that may hold a prompt, in the order they are tried.
var videoTagKeys = []string{"comment", "prompt", "workflow", "description", "user_data"}

// ProbeResult is the subset of ffprobe's JSON output that is read here.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type ProbeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

type ProbeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	RFrameRate   string            `json:"r_frame_rate"`
	Tags         map[string]string `json:"tags"`
}

// Prober runs a metadata probe over a video file.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFProbe runs the ffprobe executable.
type FFProbe struct {
	Path string
}

func NewFFProbe(path string) *FFProbe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFProbe{Path: path}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, p.Path, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var res ProbeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return &res, nil
}

func (r *ProbeResult) videoStream() (ProbeStream, bool) {
	for _, s := range r.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return ProbeStream{}, false
}

// MetadataTag returns the first tag value that looks like generation metadata: JSON, or
// text carrying a "Prompt:" marker. Format tags are searched before video stream tags.
func (r *ProbeResult) MetadataTag() (string, bool) {
	sources := []map[string]string{r.Format.Tags}
	for _, s := range r.Streams {
		if s.CodecType == "video" && s.Tags != nil {
			sources = append(sources, s.Tags)
		}
	}
	for _, tags := range sources {
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range videoTagKeys {
			// an exact key wins over the ones that only differ in case
			if v, ok := tags[key]; ok {
				if clean, ok := metadataValue(v); ok {
					return clean, true
				}
			}
			for _, k := range keys {
				if k == key || !strings.EqualFold(k, key) {
					continue
				}
				if clean, ok := metadataValue(tags[k]); ok {
					return clean, true
				}
			}
		}
	}
	return "", false
}

func metadataValue(v string) (string, bool) {
	clean := strings.TrimSpace(v)
	if strings.HasPrefix(clean, "{") || strings.Contains(clean, "Prompt:") {
		return clean, true
	}
	return "", false
}

// FrameRate parses the average frame rate, falling back to the nominal one.
func (r *ProbeResult) FrameRate() float64 {
	s, ok := r.videoStream()
	if !ok {
		return 0
	}
	if fps := parseRate(s.AvgFrameRate); fps > 0 {
		return fps
	}
	return parseRate(s.RFrameRate)
}

func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// VideoGeometry is the frame size and running time of a video.
type VideoGeometry struct {
	Width    int
	Height   int
	Duration float64
}

// GeometrySource measures a video.
type GeometrySource interface {
	Geometry(path string) (VideoGeometry, error)
}

// TranscoderGeometry reads frame size and duration through the transcoder ffprobe wrapper.
type TranscoderGeometry struct {
	FfprobePath string
}

func (t *TranscoderGeometry) Geometry(path string) (VideoGeometry, error) {
	cfg := ffmpeg.Config{FfprobeBinPath: t.FfprobePath}
	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return VideoGeometry{}, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}

	var g VideoGeometry
	for _, stream := range metadata.GetStreams() {
		if stream.GetCodecType() == "video" {
			g.Width = stream.GetWidth()
			g.Height = stream.GetHeight()
			break
		}
	}
	g.Duration, _ = strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64)
	return g, nil
}

// VideoBlob is what a video container told us about itself.
type VideoBlob struct {
	VideoGeometry
	FPS float64
	// Tag is the raw metadata tag, empty when none was found.
	Tag string
}

// Raw returns the metadata blob, or NotFoundRaw.
func (v *VideoBlob) Raw() string {
	if v.Tag == "" {
		return NotFoundRaw
	}
	return v.Tag
}

// VideoReader combines a tag probe with a geometry source. Without a geometry source the
// probe's own stream data is used.
type VideoReader struct {
	Prober   Prober
	Geometry GeometrySource
}

func NewVideoReader(ffprobePath string) *VideoReader {
	probe := NewFFProbe(ffprobePath)
	return &VideoReader{
		Prober:   probe,
		Geometry: &TranscoderGeometry{FfprobePath: probe.Path},
	}
}

var errNoProber = errors.New("no video prober configured")

func (vr *VideoReader) Read(ctx context.Context, path string) (*VideoBlob, error) {
	if vr.Prober == nil {
		return nil, errNoProber
	}
	res, err := vr.Prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	blob := &VideoBlob{FPS: res.FrameRate()}
	blob.Tag, _ = res.MetadataTag()

	if vr.Geometry != nil {
		g, err := vr.Geometry.Geometry(path)
		if err == nil {
			blob.VideoGeometry = g
			return blob, nil
		}
		slog.Warn("Falling back to probe stream geometry", "path", path, "error", err)
	}
	if s, ok := res.videoStream(); ok {
		blob.Width, blob.Height = s.Width, s.Height
	}
	blob.Duration, _ = strconv.ParseFloat(res.Format.Duration, 64)
	return blob, nil
}
