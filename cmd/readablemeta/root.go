package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/analyzer"
	"github.com/ShammiG/comfy-readable-metadata/config"
	"github.com/ShammiG/comfy-readable-metadata/report"
)

var rootCmd = &cobra.Command{
	Use:   "readablemeta",
	Short: "Show the generation metadata embedded in ComfyUI and WebUI images and videos",
	Long: `Show the generation metadata embedded in ComfyUI and WebUI images and videos.

PNG, WebP and JPEG files are read directly. Videos are probed with ffprobe.
Settings are read from ~/.config/readablemeta/config.yaml (or --config) and
RM_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	flagConfig   string
	flagLogLevel string
	flagNoEmoji  bool

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Plain section labels without emoji")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		c.LogLevel = strings.ToLower(flagLogLevel)
	}
	if flagNoEmoji {
		c.Emoji = false
	}
	cfg = c

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
	return nil
}

func newAnalyzer() (*analyzer.Analyzer, error) {
	opts, err := cfg.ExtractOptions()
	if err != nil {
		return nil, err
	}
	return analyzer.New(analyzer.Options{
		Emoji:       cfg.Emoji,
		FFProbePath: cfg.FFProbePath,
		Extract:     opts,
	}), nil
}

// writeOutput prints text to the command's output, coloured when it is a report, or writes
// it uncoloured and atomically to path.
func writeOutput(cmd *cobra.Command, path string, text string, isReport bool) error {
	if path == "" || path == "-" {
		if isReport {
			text = colorFor(cmd.OutOrStdout(), text)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(text+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("Wrote output", "path", path)
	return nil
}

// colorFor colours only what goes to the real terminal.
func colorFor(w io.Writer, text string) string {
	if w != os.Stdout {
		return text
	}
	return report.Colorize(text)
}
