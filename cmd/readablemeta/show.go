package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show {file}",
	Short: "Print the readable report of one image or video",
	Long: `Print the readable report of one image or video.

By default the full report is printed. --summary prints the short on-canvas lines,
--raw the metadata blob as found in the file and --fields the discrete outputs.

Examples:
  readablemeta show ComfyUI_00001_.png
  readablemeta show clip.mp4 --summary
  readablemeta show render.webp --raw -o render.json
`,
	Args: cobra.ExactArgs(1),
	RunE: doShow,
}

var (
	flagShowSummary bool
	flagShowRaw     bool
	flagShowFields  bool
	flagShowOutput  string
)

func init() {
	showCmd.Flags().BoolVar(&flagShowSummary, "summary", false, "Print the concise summary lines")
	showCmd.Flags().BoolVar(&flagShowRaw, "raw", false, "Print the raw metadata blob")
	showCmd.Flags().BoolVar(&flagShowFields, "fields", false, "Print positive, negative, seed, model and file name")
	showCmd.Flags().StringVarP(&flagShowOutput, "output", "o", "-", `Output file path. Use "-" for stdout`)
	showCmd.MarkFlagsMutuallyExclusive("summary", "raw", "fields")
	rootCmd.AddCommand(showCmd)
}

func doShow(cmd *cobra.Command, args []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	an, err := a.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var text string
	switch {
	case flagShowRaw:
		text = an.Raw
	case flagShowSummary:
		text = strings.Join(an.Summary, "\n")
	case flagShowFields:
		text = strings.Join(an.FieldLines(), "\n")
	default:
		text = an.Report
	}
	return writeOutput(cmd, flagShowOutput, text, !flagShowRaw)
}
