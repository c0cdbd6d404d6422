package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftnews/shift/internal/db"
	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/pipeline"
	"github.com/shiftnews/shift/internal/storage"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Read archived story snapshots",
}

var snapshotGetCmd = &cobra.Command{
	Use:   "get [prefix|latest]",
	Short: "Print an archived snapshot's stories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := "latest"
		if len(args) == 1 {
			ref = args[0]
		}

		client, err := storage.NewClient(cmd.Context(), cfg.S3)
		if err != nil {
			return err
		}
		snap, err := client.GetSnapshot(cmd.Context(), ref)
		if err != nil {
			return err
		}
		cmd.PrintErrf("run %s  %s  %d stories  captured %s\n",
			snap.Meta.RunID, snap.Meta.Data, snap.Meta.Stories, snap.Meta.CapturedAt.Format(time.RFC3339))
		return writeIndentedJSON(cmd.OutOrStdout(), snap.Stories)
	},
}

var (
	flagRunsLimit  int
	flagRunsStatus string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openRunStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := store.List(cmd.Context(), models.RunFilter{Data: flagRunsStatus, Limit: flagRunsLimit})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tID\tDATA\tTRANS\tSTORIES\tTRANSLATED\tFAILED\tMS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				r.StartedAt.Format(time.RFC3339), r.ID, r.Data, r.Translation,
				r.Stories, r.Translated, len(r.FailedSources), r.DurationMS)
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		store, cleanup, err := openRunStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd.OutOrStdout(), run)
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Print a bcrypt hash for DIAG_TOKEN_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotGetCmd)

	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "number of runs to list")
	runsCmd.Flags().StringVar(&flagRunsStatus, "status", "", "filter by data provenance (live, demo, error)")
	runsCmd.AddCommand(runsShowCmd)
}

func openRunStore(ctx context.Context) (*models.RunStore, func(), error) {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return models.NewRunStore(pool), pool.Close, nil
}

// openArchiver wires whichever archive stores are configured.
func openArchiver(ctx context.Context) (*pipeline.Archiver, func(), error) {
	a := &pipeline.Archiver{}
	cleanup := func() {}

	client, err := storage.NewClient(ctx, cfg.S3)
	if err != nil {
		return nil, nil, err
	}
	if client.Configured() {
		a.Snapshots = client
	}

	if cfg.DB.Enabled() {
		store, closeStore, err := openRunStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		a.Runs = store
		cleanup = closeStore
	}
	return a, cleanup, nil
}
