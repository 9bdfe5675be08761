package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"linkbox/internal/core"
	"linkbox/pkg/domain"
)

func parseStatus(s string) (domain.InvestmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linked":
		return domain.StatusLinked, nil
	case "in_progress", "in-progress":
		return domain.StatusInProgress, nil
	case "archived":
		return domain.StatusArchived, nil
	case "unassigned", "none":
		return domain.StatusUnassigned, nil
	}
	return "", fmt.Errorf("unknown investment status %q", s)
}

func (a *App) investmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "investment",
		Aliases: []string{"inv"},
		Short:   "Manage investments",
	}
	cmd.AddCommand(a.investmentListCmd())
	cmd.AddCommand(a.investmentStatusCmd())
	cmd.AddCommand(a.investmentAddCmd())
	cmd.AddCommand(a.investmentRemoveCmd())
	return cmd
}

func (a *App) investmentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List investments",
		Long:  "List investments. --unassigned needs --client; --outside lists investments not in the given process.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _ := cmd.Flags().GetString("client")
			unassigned, _ := cmd.Flags().GetBool("unassigned")
			outside, _ := cmd.Flags().GetInt("outside")

			s := a.svc.Snapshot()
			var list []domain.Investment
			switch {
			case unassigned:
				if client == "" {
					return fmt.Errorf("--unassigned requires --client")
				}
				list = core.UnassignedInvestments(s, client)
			case outside != 0:
				if _, err := a.svc.Process(outside); err != nil {
					return err
				}
				list = core.InvestmentsNotInProcess(s, outside)
			default:
				for _, id := range s.InvestmentIDs() {
					inv := s.Investments[id]
					if client == "" || inv.ClientID == client {
						list = append(list, inv)
					}
				}
			}
			writeInvestments(cmd.OutOrStdout(), core.SortInvestmentsByDefault(list))
			return nil
		},
	}
	cmd.Flags().String("client", "", "Only investments of this client id")
	cmd.Flags().Bool("unassigned", false, "Only investments no conversation references")
	cmd.Flags().Int("outside", 0, "Only investments not referenced by this process")
	return cmd
}

func (a *App) investmentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [investment-id] [status]",
		Short: "Set an investment status (linked, in_progress, archived)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "investment")
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			out, res, err := a.svc.SetInvestmentStatus(cmd.Context(), id, status)
			return report(cmd, out, res, err)
		},
	}
}

func (a *App) investmentAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [process-id] [investment-id...]",
		Short: "Add investments to a process conversation",
		Long:  "Add investments to a process. Without --convo the first conversation of the process is used.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := parseID(args[0], "process")
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			convo, _ := cmd.Flags().GetString("convo")
			out, res, err := a.svc.AddInvestmentsToProcess(cmd.Context(), processID, convo, ids)
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().String("convo", "", "Conversation to attach the investments to")
	return cmd
}

func (a *App) investmentRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [process-id] [investment-id...]",
		Short: "Remove investments from every conversation of a process",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := parseID(args[0], "process")
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			out, res, err := a.svc.RemoveInvestmentsFromProcess(cmd.Context(), processID, ids)
			return report(cmd, out, res, err)
		},
	}
}
