package main

import (
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/metadata"
)

var diffCmd = &cobra.Command{
	Use:   "diff {a} {b}",
	Short: "Compare the generation settings of two files",
	Long: `Compare the generation settings of two files.

Every field that differs is listed, followed by how similar the positive and negative
prompts are (Levenshtein similarity, 0 to 1).`,
	Args: cobra.ExactArgs(2),
	RunE: doDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

type fieldDiff struct {
	Name string
	A, B string
}

// scalarFields lists the comparable single-valued fields by display name.
func scalarFields(f metadata.Fields) [][2]string {
	return [][2]string{
		{"Model", f.Model},
		{"Seed", f.Seed},
		{"Steps", f.Steps},
		{"CFG", f.CFG},
		{"Sampler", f.Sampler},
		{"Scheduler", f.Scheduler},
		{"Denoise", f.Denoise},
		{"Width", f.Width},
		{"Height", f.Height},
		{"Batch Size", f.BatchSize},
		{"Model Hash", f.ModelHash},
		{"VAE", f.VAE},
		{"Clip Skip", f.ClipSkip},
		{"Hires Upscale", f.HiresUpscale},
		{"Hires Steps", f.HiresSteps},
		{"Hires Upscaler", f.HiresUpscaler},
		{"LoRAs", loraList(f.LoRAs)},
	}
}

func loraList(loras []metadata.LoRA) string {
	if len(loras) == 0 {
		return metadata.Unknown
	}
	parts := make([]string, len(loras))
	for i, l := range loras {
		parts[i] = fmt.Sprintf("%s:%s", l.Name, l.Strength)
	}
	return strings.Join(parts, ", ")
}

func diffFields(a, b metadata.Fields) []fieldDiff {
	fa, fb := scalarFields(a), scalarFields(b)
	var out []fieldDiff
	for i := range fa {
		if fa[i][1] != fb[i][1] {
			out = append(out, fieldDiff{Name: fa[i][0], A: fa[i][1], B: fb[i][1]})
		}
	}
	return out
}

// promptSimilarity is 1 for identical prompts, including two empty ones.
func promptSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

func doDiff(cmd *cobra.Command, args []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	left, err := a.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	right, err := a.Analyze(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	diffs := diffFields(left.Fields, right.Fields)
	if len(diffs) == 0 {
		fmt.Fprintln(w, "Settings: identical")
	}
	for _, d := range diffs {
		fmt.Fprintf(w, "%s: %s -> %s\n", d.Name, d.A, d.B)
	}
	fmt.Fprintf(w, "Positive similarity: %.2f\n", promptSimilarity(left.Positive, right.Positive))
	fmt.Fprintf(w, "Negative similarity: %.2f\n", promptSimilarity(left.Negative, right.Negative))
	return nil
}
