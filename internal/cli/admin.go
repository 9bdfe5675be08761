package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linkbox/pkg/domain"
)

func (a *App) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the stored data with the demo seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.svc.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset store: %w", err)
			}
			s := a.svc.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Store reset: %d processes, %d conversations, %d investments\n",
				len(s.Processes), len(s.Convos), len(s.Investments))
			return nil
		},
	}
}

func (a *App) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every store invariant",
		Long:  "Evaluate all rules against the whole store. Exits non-zero when a blocking violation is found.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.Verify(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to evaluate rules: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(res.Violations) == 0 {
				fmt.Fprintf(w, "%s store is consistent\n", color.New(color.FgGreen).Sprint("✓"))
				return nil
			}
			writeViolations(w, res.Violations)
			if res.HasBlocking() {
				return fmt.Errorf("%d blocking violation(s)", len(res.Filter(domain.SeverityBlock)))
			}
			return nil
		},
	}
}
