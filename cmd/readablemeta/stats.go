package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats [file | -]",
	Short: "Count characters, words and lines of a text",
	Long: `Count characters, words and lines of a text, as shown under a text viewer.

Reads stdin when no file or "-" is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: doStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func doStats(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read text: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), report.Stats(string(data)))
	return err
}
