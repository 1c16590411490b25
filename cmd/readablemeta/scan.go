package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/analyzer"
	"github.com/ShammiG/comfy-readable-metadata/container"
)

var scanCmd = &cobra.Command{
	Use:   "scan {dir}",
	Short: "Print the report of every image and video below a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  doScan,
}

var flagScanSummary bool

func init() {
	scanCmd.Flags().BoolVar(&flagScanSummary, "summary", false, "Print the concise summary lines instead of full reports")
	rootCmd.AddCommand(scanCmd)
}

// regularFiles lists the regular files below dir in lexical order.
func regularFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func doScan(cmd *cobra.Command, args []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	files, err := regularFiles(args[0])
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	var results []*analyzer.Analysis
	for _, path := range files {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		an, err := a.Analyze(cmd.Context(), path)
		_ = bar.Add(1)
		switch {
		case errors.Is(err, container.ErrUnsupported):
			slog.Debug("Skipping unsupported file", "path", path)
			continue
		case err != nil:
			slog.Warn("Failed to analyze file", "path", path, "error", err)
			continue
		}
		results = append(results, an)
	}
	_ = bar.Finish()

	for _, an := range results {
		if err := writeOutput(cmd, "-", section(an, flagScanSummary), true); err != nil {
			return err
		}
	}
	slog.Info("Scan complete", "files", len(files), "analyzed", len(results))
	return nil
}

// section is the per-file block printed by scan, watch and follow.
func section(an *analyzer.Analysis, summary bool) string {
	body := an.Report
	if summary {
		body = strings.Join(an.Summary, "\n")
	}
	return fmt.Sprintf("### %s\n%s\n", an.Path, body)
}
