package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/graphapi"
)

var stampCmd = &cobra.Command{
	Use:   "stamp {prompt.json}",
	Short: "Write a prompt text into a node of an API prompt",
	Long: `Write a prompt text into a node of an API prompt and title the node
"Positive Prompt (Saved)" or "Negative Prompt (Saved)".

The rest of the prompt is kept as is, key order included.

Examples:
  readablemeta stamp prompt.json --node 6 --role positive --text "a cat"
  readablemeta stamp prompt.json --node 7 --role negative --text "blurry" -o prompt.json
`,
	Args: cobra.ExactArgs(1),
	RunE: doStamp,
}

var (
	flagStampNode   string
	flagStampRole   string
	flagStampText   string
	flagStampOutput string
)

func init() {
	stampCmd.Flags().StringVar(&flagStampNode, "node", "", "Node id to stamp")
	stampCmd.Flags().StringVar(&flagStampRole, "role", "positive", "positive or negative")
	stampCmd.Flags().StringVar(&flagStampText, "text", "", "Prompt text to store")
	stampCmd.Flags().StringVarP(&flagStampOutput, "output", "o", "-", `Output file path. Use "-" for stdout`)
	_ = stampCmd.MarkFlagRequired("node")
	rootCmd.AddCommand(stampCmd)
}

func doStamp(cmd *cobra.Command, args []string) error {
	role, err := graphapi.ParsePromptRole(flagStampRole)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	prompt, err := graphapi.NewPromptFromJSON(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := prompt.StampText(flagStampNode, flagStampText, role); err != nil {
		return err
	}
	out, err := prompt.MarshalJSON()
	if err != nil {
		return err
	}
	return writeOutput(cmd, flagStampOutput, string(out), false)
}
