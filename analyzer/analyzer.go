// Package analyzer turns one image or video file into its readable report and discrete
// generation fields.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShammiG/comfy-readable-metadata/container"
	"github.com/ShammiG/comfy-readable-metadata/metadata"
	"github.com/ShammiG/comfy-readable-metadata/report"
)

type Options struct {
	Emoji       bool
	FFProbePath string
	Extract     metadata.Options
}

// Analysis is everything one file yields.
type Analysis struct {
	Path string
	// Name is the file name without its extension.
	Name string
	Kind container.Kind
	Size int64

	Geometry report.Geometry
	// FPS and Duration are only set for videos.
	FPS      float64
	Duration float64

	Format metadata.Format
	Fields metadata.Fields
	Raw    string

	Report  string
	Summary []string

	Positive string
	Negative string
	Seed     int64
	Model    string
}

type Analyzer struct {
	extractor *metadata.Extractor
	formatter *report.Formatter
	video     *container.VideoReader
}

func New(opts Options) *Analyzer {
	return &Analyzer{
		extractor: metadata.NewExtractor(opts.Extract),
		formatter: report.NewFormatter(opts.Emoji),
		video:     container.NewVideoReader(opts.FFProbePath),
	}
}

// WithVideoReader replaces the video reader, mostly so tests can avoid running ffprobe.
func (a *Analyzer) WithVideoReader(vr *container.VideoReader) *Analyzer {
	a.video = vr
	return a
}

// Analyze reads the file at path. Only I/O failures and unsupported containers are
// returned as errors; unreadable metadata is reported in the analysis itself.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Analysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	kind, err := container.SniffFile(path)
	if err != nil {
		return nil, err
	}
	if kind == container.KindVideo {
		return a.analyzeVideo(ctx, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a.AnalyzeBytes(ctx, path, data)
}

// AnalyzeBytes analyzes an image that is already in memory, such as one fetched from a
// ComfyUI server.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, name string, data []byte) (*Analysis, error) {
	blob, err := container.Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	an := a.newAnalysis(name, blob.Kind, int64(len(data)))
	an.Geometry = report.Geometry{Width: blob.Width, Height: blob.Height}
	an.Raw = blob.Raw()
	a.fill(an, a.extractor.ExtractWithWorkflow(an.Raw, blob.Workflow()))
	an.Report = a.formatter.Render(metadata.Result{Format: an.Format, Fields: an.Fields})

	slog.Debug("Analyzed image", "name", name, "kind", blob.Kind, "format", an.Format)
	return an, nil
}

func (a *Analyzer) analyzeVideo(ctx context.Context, path string, size int64) (*Analysis, error) {
	blob, err := a.video.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	an := a.newAnalysis(path, container.KindVideo, size)
	an.Geometry = report.Geometry{Width: blob.Width, Height: blob.Height}
	an.FPS = blob.FPS
	an.Duration = blob.Duration
	an.Raw = blob.Tag
	a.fill(an, a.extractor.Extract(blob.Raw()))

	header := report.VideoHeader(report.VideoInfo{
		Path:     path,
		Geometry: an.Geometry,
		Size:     size,
		FPS:      blob.FPS,
		Duration: blob.Duration,
	})
	body := report.NoVideoMetadata
	if blob.Tag != "" {
		body = a.formatter.Render(metadata.Result{Format: an.Format, Fields: an.Fields})
	}
	an.Report = header + "\n\n" + body

	slog.Debug("Analyzed video", "path", path, "format", an.Format, "fps", blob.FPS)
	return an, nil
}

func (a *Analyzer) newAnalysis(path string, kind container.Kind, size int64) *Analysis {
	base := filepath.Base(path)
	return &Analysis{
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Kind: kind,
		Size: size,
	}
}

func (a *Analyzer) fill(an *Analysis, res metadata.Result) {
	an.Format = res.Format
	an.Fields = res.Fields
	an.Summary = report.SummaryLines(an.Geometry, an.Size, res.Fields)
	an.Positive = res.Fields.Positive
	an.Negative = res.Fields.Negative
	an.Seed = res.Fields.SeedInt()
	an.Model = res.Fields.Model
}

// FieldLines lists the discrete outputs, one "Label: value" per line.
func (an *Analysis) FieldLines() []string {
	return []string{
		"Positive: " + an.Positive,
		"Negative: " + an.Negative,
		fmt.Sprintf("Seed: %d", an.Seed),
		"Model: " + an.Model,
		"Filename: " + an.Name,
	}
}
