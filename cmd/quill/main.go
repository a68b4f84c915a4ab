// Package main provides the quill binary: it enhances blog articles held by
// an article store with rewrites informed by top-ranking reference pages.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
	appName = "quill"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Enhance blog articles with AI rewrites grounded in top-ranking references",
		Long: `Quill pulls articles that have no enhanced version yet from the article
store, searches the web for competing articles on the same topic, extracts
their content and asks a generative model to rewrite the original using
them as context. The rewrite is stored back with the reference URLs as
citations.

Environment:
  API_BASE_URL          article store API (default http://localhost:8000/api)
  OPENROUTER_API_KEY    model credential (required for enhance and test)
  OPENROUTER_MODEL      model override
  QUILL_*               any other setting, e.g. QUILL_EXTRACT_DELAY=2s`,
		Example: `  quill enhance          # enhance up to 5 articles
  quill enhance 10       # enhance up to 10 articles
  quill test             # check store, search and model connectivity
  quill history --status failed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		enhanceCmd(&g),
		testCmd(&g),
		historyCmd(&g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
