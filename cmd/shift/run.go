package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shiftnews/shift/internal/ai"
	"github.com/shiftnews/shift/internal/pipeline"
)

var (
	flagTranslate bool
	flagLimit     int
	flagArchive   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the stories as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		translator, closeTranslator, err := ai.NewTranslator(ctx, cfg)
		if err != nil {
			return fmt.Errorf("translator: %w", err)
		}
		defer closeTranslator()

		p := pipeline.FromConfig(cfg, translator)
		res := p.Run(ctx, pipeline.Options{Translate: flagTranslate, Limit: flagLimit})

		for _, name := range res.FailedSources {
			slog.Warn("source failed", "source", name)
		}

		if flagArchive {
			archiver, cleanup, err := openArchiver(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			run, err := archiver.Archive(ctx, res)
			if err != nil {
				return err
			}
			slog.Info("run archived", "run", run.ID, "snapshot", run.SnapshotKey)
		}

		return writeIndentedJSON(cmd.OutOrStdout(), res.Stories)
	},
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LANG\tNAME\tURL")
		for _, f := range cfg.Feeds.List {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Lang, f.Name, f.URL)
		}
		if cfg.NewsAPI.APIKey != "" {
			fmt.Fprintf(tw, "en,ar\tNewsAPI\t%s\n", cfg.NewsAPI.BaseURL)
		}
		return tw.Flush()
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagTranslate, "translate", false, "fill missing language sides by translation")
	runCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap the number of stories (0 uses MAX_STORIES)")
	runCmd.Flags().BoolVar(&flagArchive, "archive", false, "store the result in the snapshot archive")
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
