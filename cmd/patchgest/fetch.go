package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/patchgest/internal/fetch"
	"github.com/dgallion1/patchgest/internal/pathstore"
	"github.com/dgallion1/patchgest/internal/pipeline"
	"github.com/dgallion1/patchgest/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download patch pages and store their sections",
	Long: `Fetch tries each version's announcement URLs, stores new or changed
pages in the database and re-parses their sections. Unchanged pages are
skipped. Without --versions every version in the configured range is tried,
newest first.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.String("versions", "", "comma-separated versions, e.g. 16.4,16.3")
	f.Int("major-min", 0, "lowest major version of the default range")
	f.Int("major-max", 0, "highest major version of the default range")
	f.Int("minor-max", 0, "highest minor version of the default range")
	f.String("base-url", "", "announcement index URL")

	viper.BindPFlag("versions", f.Lookup("versions"))
	viper.BindPFlag("major_min", f.Lookup("major-min"))
	viper.BindPFlag("major_max", f.Lookup("major-max"))
	viper.BindPFlag("minor_max", f.Lookup("minor-max"))
	viper.BindPFlag("base_url", f.Lookup("base-url"))
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := newLogger()

	versions := targetVersions()
	if len(versions) == 0 {
		return fmt.Errorf("no versions to fetch")
	}

	st, err := store.Open(viper.GetString("database"))
	if err != nil {
		return err
	}
	defer st.Close()

	client := fetch.NewClient(fetch.Config{
		BaseURL:       viper.GetString("base_url"),
		UserAgent:     viper.GetString("user_agent"),
		Timeout:       viper.GetDuration("timeout"),
		MinPageBytes:  viper.GetInt("min_page_bytes"),
		MaxConcurrent: viper.GetInt("max_concurrent"),
	})
	defer client.Close()

	var mirror pipeline.Mirror
	if u := viper.GetString("pathstore_url"); u != "" {
		ps := pathstore.NewClient(u, viper.GetString("pathstore_api_key"))
		defer ps.Close()
		mirror = ps
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trying %d version(s)...\n", len(versions))

	worker := pipeline.NewWorker(client, st, mirror, log, viper.GetInt("min_content_chars"))
	results, runErr := worker.Run(ctx, versions)

	var added, updated, skipped, notFound, failed int
	for _, r := range results {
		switch r.Outcome {
		case pipeline.OutcomeAdded:
			added++
			fmt.Fprintf(out, "Added %s (%s), %d sections\n", r.Version, r.URL, r.Sections)
		case pipeline.OutcomeUpdated:
			updated++
			fmt.Fprintf(out, "Updated %s (%s), %d sections\n", r.Version, r.URL, r.Sections)
		case pipeline.OutcomeSkipped:
			skipped++
		case pipeline.OutcomeNotFound:
			notFound++
		case pipeline.OutcomeTooShort:
			fmt.Fprintf(out, "Content too short for %s (%s)\n", r.Version, r.URL)
		case pipeline.OutcomeFailed:
			failed++
			fmt.Fprintf(out, "Failed %s: %v\n", r.Version, r.Err)
		}
	}
	fmt.Fprintf(out, "Done. Added=%d Updated=%d Skipped=%d NotFound=%d Failed=%d\n",
		added, updated, skipped, notFound, failed)

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d version(s) failed", failed)
	}
	return nil
}

// targetVersions returns --versions when given, otherwise the configured
// range.
func targetVersions() []fetch.Version {
	if s := viper.GetString("versions"); s != "" {
		return fetch.ParseVersionList(s)
	}
	return fetch.VersionRange(viper.GetInt("major_min"), viper.GetInt("major_max"), viper.GetInt("minor_max"))
}
