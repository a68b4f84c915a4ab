package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/spf13/cobra"
)

var errChecksFailed = errors.New("some component checks failed")

func testCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check connectivity of the article store, search and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			c, err := build(cfg, logger)
			if err != nil {
				return err
			}

			checks := pipeline.CheckComponents(cmd.Context(), c.store, c.search, c.model)
			return printChecks(cmd, checks)
		},
	}
}

func printChecks(cmd *cobra.Command, checks []pipeline.Check) error {
	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 50)

	fmt.Fprintf(out, "Testing pipeline components\n%s\n", rule)
	failed := false
	for _, c := range checks {
		if c.Passed() {
			fmt.Fprintf(out, "%-12s PASSED  %s\n", c.Name, c.Detail)
			continue
		}
		failed = true
		fmt.Fprintf(out, "%-12s FAILED  %v\n", c.Name, c.Err)
	}
	fmt.Fprintln(out, rule)

	if failed {
		fmt.Fprintln(out, "Some tests failed")
		return errChecksFailed
	}
	fmt.Fprintln(out, "All tests passed!")
	return nil
}
