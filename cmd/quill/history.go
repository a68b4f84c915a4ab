package main

import (
	"errors"
	"fmt"

	"github.com/FranksOps/quill/internal/report"
	"github.com/FranksOps/quill/internal/storage"
	"github.com/spf13/cobra"
)

type historyFlags struct {
	dsn     string
	slug    string
	status  string
	run     string
	limit   int
	summary bool
}

func historyCmd(g *globalFlags) *cobra.Command {
	var f historyFlags

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded article outcomes from the history ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if f.dsn != "" {
				cfg.HistoryDSN = f.dsn
			}
			if cfg.HistoryDSN == "" {
				return errors.New("no history ledger configured (set --dsn or QUILL_HISTORY_DSN)")
			}

			status := storage.Status(f.status)
			switch status {
			case "", storage.StatusEnhanced, storage.StatusFailed, storage.StatusSkipped:
			default:
				return fmt.Errorf("%w: unknown status %q", errUsage, f.status)
			}

			backend, err := openHistory(cmd.Context(), cfg.HistoryDSN)
			if err != nil {
				return err
			}
			defer closeHistory(backend, logger)

			outcomes, err := backend.Query(cmd.Context(), storage.Filter{
				RunID:  f.run,
				Slug:   f.slug,
				Status: status,
				Limit:  f.limit,
			})
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}

			out := cmd.OutOrStdout()
			if f.summary {
				return report.WriteText(out, report.GenerateSummary(outcomes))
			}
			return report.WriteHistory(out, outcomes)
		},
	}

	cmd.Flags().StringVar(&f.dsn, "dsn", "", "History ledger DSN (overrides history_dsn)")
	cmd.Flags().StringVar(&f.slug, "slug", "", "Only outcomes for this article")
	cmd.Flags().StringVar(&f.status, "status", "", "Only outcomes with this status (enhanced, failed, skipped)")
	cmd.Flags().StringVar(&f.run, "run", "", "Only outcomes of this run ID")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of outcomes")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print a run summary of the matching outcomes instead of a table")

	return cmd
}
