package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"github.com/dgallion1/patchgest/internal/pathstore"
	"github.com/dgallion1/patchgest/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show [version]",
	Short: "List stored patches or print one patch's sections",
	Long: `Show with no arguments lists the stored patches, newest first. With a
version it prints that patch's sections, optionally narrowed by --category
and --size. --from-mirror reads the sections from the pathstore mirror
instead of the local database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("category", "", "only this category")
	showCmd.Flags().String("size", "", "only this size (all, large, small)")
	showCmd.Flags().Bool("buckets", false, "include the per-category bucket view")
	showCmd.Flags().StringP("format", "f", "markdown", "output format: json, yaml, markdown or html")
	showCmd.Flags().Bool("from-mirror", false, "read sections from the pathstore mirror (needs pathstore_url)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	size, _ := cmd.Flags().GetString("size")
	f := store.SectionFilter{Category: patchdoc.Category(category), Size: patchdoc.Size(size)}
	if f.Category != "" && !f.Category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}
	if f.Size != "" && !f.Size.Valid() {
		return fmt.Errorf("unknown size %q", size)
	}
	format, _ := cmd.Flags().GetString("format")
	withBuckets, _ := cmd.Flags().GetBool("buckets")
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if fromMirror, _ := cmd.Flags().GetBool("from-mirror"); fromMirror {
		if len(args) == 0 {
			return fmt.Errorf("--from-mirror needs a version")
		}
		blocks, err := mirrorBlocks(ctx, args[0], f)
		if err != nil {
			return err
		}
		return writeResult(out, bucketed(blocks), format, withBuckets, "Patch "+args[0])
	}

	st, err := store.Open(viper.GetString("database"))
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		patches, err := st.ListPatches(ctx)
		if err != nil {
			return err
		}
		if len(patches) == 0 {
			fmt.Fprintln(out, "No patches stored.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSECTIONS\tUPDATED\tSOURCE")
		for _, p := range patches {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Version, p.Sections, p.UpdatedAt.Format("2006-01-02"), p.SourceURL)
		}
		return tw.Flush()
	}

	p, err := st.GetPatch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("patch %s: %w", args[0], err)
	}
	blocks, err := st.Sections(ctx, p.Version, f)
	if err != nil {
		return err
	}
	return writeResult(out, bucketed(blocks), format, withBuckets, "Patch "+p.Version)
}

// mirrorBlocks reads a version's sections back from pathstore and applies f.
func mirrorBlocks(ctx context.Context, version string, f store.SectionFilter) ([]patchdoc.Block, error) {
	u := viper.GetString("pathstore_url")
	if u == "" {
		return nil, fmt.Errorf("pathstore_url is not configured")
	}
	ps := pathstore.NewClient(u, viper.GetString("pathstore_api_key"))
	defer ps.Close()

	blocks, err := ps.Blocks(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("mirror %s: %w", version, err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("patch %s: not in mirror", version)
	}
	kept := blocks[:0]
	for _, b := range blocks {
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.Size != "" && b.Size != f.Size {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}

func bucketed(blocks []patchdoc.Block) patchdoc.Result {
	return patchdoc.Result{Blocks: blocks, Buckets: parser.BucketView(blocks)}
}
