package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/FranksOps/quill/internal/citation"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/FranksOps/quill/internal/report"
	"github.com/spf13/cobra"
)

type enhanceFlags struct {
	all             bool
	format          string
	citationsFormat string
	appendCitations string
	metricsPort     int
	history         string
}

func enhanceCmd(g *globalFlags) *cobra.Command {
	var f enhanceFlags

	cmd := &cobra.Command{
		Use:   "enhance [limit]",
		Short: fmt.Sprintf("Enhance up to limit pending articles (default %d)", pipeline.DefaultLimit),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseLimit(args, pipeline.DefaultLimit)
			if err != nil {
				return err
			}
			return runEnhance(cmd, g, f, limit)
		},
	}

	cmd.Flags().BoolVar(&f.all, "all", false, "Include articles that already have an enhanced version")
	cmd.Flags().StringVar(&f.format, "format", "text", "Summary format (text, json, html)")
	cmd.Flags().StringVar(&f.citationsFormat, "citations-format", citation.Markdown, "Citation example format (markdown, html, plain, json)")
	cmd.Flags().StringVar(&f.appendCitations, "append-citations", "", "Append a reference block to stored content (markdown, html, plain)")
	cmd.Flags().IntVar(&f.metricsPort, "metrics-port", 0, "Expose Prometheus metrics on this port during the run")
	cmd.Flags().StringVar(&f.history, "history", "", "History ledger DSN (overrides history_dsn)")

	return cmd
}

func runEnhance(cmd *cobra.Command, g *globalFlags, f enhanceFlags, limit int) error {
	switch f.format {
	case "text", "json", "html":
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, f.format)
	}
	switch strings.ToLower(f.citationsFormat) {
	case citation.Markdown, citation.HTML, citation.Plain, citation.JSON:
	default:
		return fmt.Errorf("%w: unknown citations format %q", errUsage, f.citationsFormat)
	}
	switch strings.ToLower(f.appendCitations) {
	case "", citation.Markdown, citation.HTML, citation.Plain:
	default:
		return fmt.Errorf("%w: cannot append citations as %q", errUsage, f.appendCitations)
	}

	cfg, logger, err := setup(g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if f.history != "" {
		cfg.HistoryDSN = f.history
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsPort > 0 {
		srv := metrics.Start(f.metricsPort, logger)
		defer srv.Stop(context.Background())
	}

	c, err := build(cfg, logger)
	if err != nil {
		return err
	}

	history, err := openHistory(ctx, cfg.HistoryDSN)
	if err != nil {
		return err
	}
	defer closeHistory(history, logger)

	p, err := pipeline.New(pipeline.Deps{
		Store:     c.store,
		Search:    c.search,
		Extractor: c.extractor,
		Enhancer:  c.enhancer,
		History:   history,
		Logger:    logger,
	}, pipeline.Config{
		ReferenceCount:  cfg.ReferenceCount,
		AppendCitations: f.appendCitations,
	})
	if err != nil {
		return err
	}

	logger.Info("starting enhancement", "version", Version, "limit", limit, "model", c.model.Model())
	summary, err := p.Run(ctx, pipeline.Options{Limit: limit, All: f.all})
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	return writeSummary(cmd.OutOrStdout(), *summary, f.format, f.citationsFormat)
}

func writeSummary(w io.Writer, s report.Summary, format, citationsFormat string) error {
	switch format {
	case "json":
		return report.WriteJSON(w, s)
	case "html":
		return report.WriteHTML(w, s)
	}

	if err := report.WriteText(w, s); err != nil {
		return err
	}
	if first := s.FirstEnhanced(); first != nil && len(first.Citations) > 0 {
		fmt.Fprintf(w, "\nCitation Formatting Example:\n%s\n", strings.Repeat("=", 50))
		fmt.Fprint(w, citation.Format(first.Citations, citationsFormat))
	}
	return nil
}
