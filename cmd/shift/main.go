// Command shift is the operator CLI: one-shot pipeline runs, feed listing
// and read access to the snapshot archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiftnews/shift/internal/config"
)

var version = "dev"

var (
	flagFeeds string
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:           "shift",
	Short:         "Bilingual UAE news aggregator",
	Long:          "shift builds bilingual English/Arabic stories from news feeds and inspects archived snapshots.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagFeeds != "" {
			os.Setenv("FEEDS_FILE", flagFeeds)
		}
		cfg = config.Load()
		// Logs go to stderr so stdout stays pipeable JSON.
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shift %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFeeds, "feeds", "", "path to feeds YAML (overrides FEEDS_FILE)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(hashTokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("shift", "err", err)
		stop()
		os.Exit(1)
	}
}
