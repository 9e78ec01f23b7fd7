// Package main is the patchgest command-line tool: parse saved patch pages
// and fetch, store and inspect patches without running the HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/patchgest/internal/config"
)

// rootCmd is the base command for the patchgest CLI.
var rootCmd = &cobra.Command{
	Use:   "patchgest",
	Short: "Parse and collect TFT patch announcements",
	Long: `patchgest turns patch announcement pages into ordered, classified
sections (overview, champions, items, traits, augments, other) and keeps
them in a local SQLite database.

Settings come from flags, PATCHGEST_* environment variables, or a
patchgest.yaml config file.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.Load()
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./patchgest.yaml or ~/.config/patchgest/config.yaml)")
	pf.String("database", defaults.DatabasePath, "SQLite database path")
	pf.BoolP("verbose", "v", false, "debug logging")

	viper.BindPFlag("database", pf.Lookup("database"))
	viper.BindPFlag("verbose", pf.Lookup("verbose"))

	viper.SetDefault("base_url", defaults.PatchBaseURL)
	viper.SetDefault("user_agent", defaults.FetchUserAgent)
	viper.SetDefault("timeout", defaults.FetchTimeout)
	viper.SetDefault("max_concurrent", defaults.FetchMaxConcurrent)
	viper.SetDefault("min_page_bytes", defaults.MinPageBytes)
	viper.SetDefault("min_content_chars", defaults.MinContentChars)
	viper.SetDefault("major_min", defaults.VersionMajorMin)
	viper.SetDefault("major_max", defaults.VersionMajorMax)
	viper.SetDefault("minor_max", defaults.VersionMinorMax)
	viper.SetDefault("pathstore_url", defaults.PathstoreURL)
	viper.SetDefault("pathstore_api_key", defaults.PathstoreAPIKey)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("patchgest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "patchgest"))
		}
	}

	viper.SetEnvPrefix("PATCHGEST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
