package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"github.com/dgallion1/patchgest/internal/render"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse a saved patch page and print its sections",
	Long: `Parse reads an HTML patch page (or stdin with "-") and prints the
ordered blocks. --text names a plain-text copy used when the markup yields
nothing. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("text", "", "plain-text fallback file")
	parseCmd.Flags().Bool("buckets", false, "include the per-category bucket view")
	parseCmd.Flags().StringP("format", "f", "json", "output format: json, yaml, markdown or html")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	rawHTML, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	var fallback string
	if path, _ := cmd.Flags().GetString("text"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading fallback text: %w", err)
		}
		fallback = string(b)
	}

	res := parser.Parse(string(rawHTML), fallback)
	if res.Empty() {
		newLogger().Warn("nothing could be extracted", "file", args[0])
	}

	format, _ := cmd.Flags().GetString("format")
	withBuckets, _ := cmd.Flags().GetBool("buckets")
	return writeResult(cmd.OutOrStdout(), res, format, withBuckets, "")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return b, nil
}

// writeResult prints a parse result. Structured formats print only the
// blocks unless withBuckets is set.
func writeResult(w io.Writer, res patchdoc.Result, format string, withBuckets bool, title string) error {
	blocks := res.Blocks
	if blocks == nil {
		blocks = []patchdoc.Block{}
	}
	var v any = blocks
	if withBuckets {
		buckets := res.Buckets
		if buckets == nil {
			buckets = patchdoc.Buckets{}
		}
		v = patchdoc.Result{Blocks: blocks, Buckets: buckets}
	}

	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "markdown":
		_, err := io.WriteString(w, render.Markdown(title, blocks))
		return err
	case "html":
		out, err := render.HTML(title, blocks)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unsupported format %q: use json, yaml, markdown or html", format)
}
