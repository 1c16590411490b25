package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/analyzer"
	"github.com/ShammiG/comfy-readable-metadata/client"
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print the report of every image a ComfyUI server produces",
	Long: `Connect to the configured ComfyUI server and, whenever a node finishes with image
outputs, fetch each image through /view and print its summary and report.

Preview images are skipped unless --previews is given.`,
	Args: cobra.NoArgs,
	RunE: doFollow,
}

var (
	flagFollowPreviews bool
	flagFollowRetries  int
)

func init() {
	followCmd.Flags().BoolVar(&flagFollowPreviews, "previews", false, "Also report temporary preview images")
	followCmd.Flags().IntVar(&flagFollowRetries, "retries", 5, "Reconnection attempts before giving up")
	rootCmd.AddCommand(followCmd)
}

type follower struct {
	analyzer *analyzer.Analyzer
	previews bool
	emit     func(string) error
}

func (f *follower) outputs(ctx context.Context, c *client.ComfyClient, out *client.ExecutedOutput) {
	for _, file := range out.Files() {
		if file.IsTemp() && !f.previews {
			continue
		}
		data, err := c.GetImage(file)
		if err != nil {
			slog.Warn("Failed to fetch output", "file", file.Filename, "error", err)
			continue
		}
		an, err := f.analyzer.AnalyzeBytes(ctx, file.Filename, data)
		if err != nil {
			slog.Warn("Failed to analyze output", "file", file.Filename, "error", err)
			continue
		}
		text := fmt.Sprintf("### %s (prompt %s, node %s)\n%s\n\n%s\n",
			file.Filename, out.PromptID, out.NodeID, strings.Join(an.Summary, "\n"), an.Report)
		if err := f.emit(text); err != nil {
			slog.Warn("Failed to print report", "error", err)
		}
	}
}

func doFollow(cmd *cobra.Command, _ []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	f := &follower{
		analyzer: a,
		previews: flagFollowPreviews,
		emit: func(text string) error {
			return writeOutput(cmd, "-", text, true)
		},
	}

	callbacks := &client.ComfyClientCallbacks{
		QueueCountChanged: func(c *client.ComfyClient, queuecount int) {
			slog.Debug("Queue size changed", "client", c.ClientID(), "queue", queuecount)
		},
		OutputsAvailable: func(c *client.ComfyClient, out *client.ExecutedOutput) {
			f.outputs(ctx, c, out)
		},
		ExecutionStopped: func(_ *client.ComfyClient, promptID string, reason client.ExecutionStoppedReason) {
			slog.Info("Prompt finished", "prompt_id", promptID, "reason", reason)
		},
	}
	c := client.NewComfyClient(cfg.Server.Protocol, cfg.Server.Address, cfg.Server.Port, callbacks)

	if stats, err := c.GetSystemStats(); err != nil {
		slog.Warn("Cannot read system stats", "server", c.BaseURL(), "error", err)
	} else {
		slog.Info("Connected to ComfyUI", "server", c.BaseURL(), "os", stats.System.OS, "devices", len(stats.Devices))
	}

	if err := c.Connect(30, flagFollowRetries); err != nil {
		return fmt.Errorf("connect to %s: %w", c.BaseURL(), err)
	}
	defer c.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-c.Done():
		return fmt.Errorf("connection to %s closed", c.BaseURL())
	}
}
