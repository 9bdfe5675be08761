package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"linkbox/internal/core"
)

func (a *App) processesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "List processes, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.svc.Snapshot()
			list := core.ProcessesByActivity(s)
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "No processes found")
				return nil
			}
			tw := newTable(w)
			fmt.Fprintln(tw, "ID\tFUND\tCLIENT\tCONVERSATIONS\tLINKED\tLAST ACTIVITY")
			for _, p := range list {
				client := p.ClientID
				if c, ok := s.Client(p.ClientID); ok {
					client = c.Name
				}
				progress := core.ProcessProgress(s, p.ID)
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d/%d\t%s\n", p.ID, p.FundName, client, len(p.ConvoIDs),
					progress.Linked, progress.Total, day(core.ProcessLastActivity(s, p.ID)))
			}
			return tw.Flush()
		},
	}
}

func (a *App) processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Inspect and create processes",
	}
	cmd.AddCommand(a.processShowCmd())
	cmd.AddCommand(a.processCreateCmd())
	return cmd
}

func (a *App) processShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [process-id]",
		Short: "Show a process with its conversations and investments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "process")
			if err != nil {
				return err
			}
			p, err := a.svc.Process(id)
			if err != nil {
				return err
			}
			status, _ := cmd.Flags().GetString("status")
			sortCol, _ := cmd.Flags().GetString("sort")
			desc, _ := cmd.Flags().GetBool("desc")

			s := a.svc.Snapshot()
			w := cmd.OutOrStdout()
			progress := core.ProcessProgress(s, id)
			fmt.Fprintf(w, "Process %d: %s\n", p.ID, p.FundName)
			fmt.Fprintf(w, "  Client: %s\n", p.ClientID)
			fmt.Fprintf(w, "  Progress: %d/%d linked\n", progress.Linked, progress.Total)

			fmt.Fprintln(w, "\nConversations:")
			tw := newTable(w)
			for _, c := range core.ProcessConversations(s, id) {
				fmt.Fprintf(tw, "  %s\t%s\t%d msg\t%s\t%s\n", c.ID, c.Subject, c.MessageCount, day(c.LastActivityAt), badges(c.State))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			list := core.ProcessInvestments(s, id)
			counts := core.CalculateInvestmentCounts(list)
			fmt.Fprintf(w, "\nInvestments (%d total, %d linked, %d in progress, %d archived):\n",
				counts.Total, counts.Linked, counts.InProgress, counts.Archived)
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				list = core.FilterInvestmentsByStatus(list, &st)
			}
			spec := core.SortSpec{Column: core.SortColumn(sortCol), Direction: core.SortAsc}
			if desc {
				spec.Direction = core.SortDesc
			}
			writeInvestments(w, core.SortInvestments(list, spec))
			return nil
		},
	}
	cmd.Flags().String("status", "", "Only show investments with this status (linked, in_progress, archived)")
	cmd.Flags().String("sort", "", "Sort column (id, entity, fund, status, lastActivity)")
	cmd.Flags().Bool("desc", false, "Sort descending")
	return cmd
}

func (a *App) processCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a process with its first conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fund, _ := cmd.Flags().GetString("fund")
			client, _ := cmd.Flags().GetString("client")
			ids, err := investmentFlag(cmd)
			if err != nil {
				return err
			}
			out, res, err := a.svc.CreateProcess(cmd.Context(), core.CreateProcessInput{
				FundName:      fund,
				ClientName:    client,
				Email:         emailFlags(cmd),
				InvestmentIDs: ids,
			})
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().String("fund", "", "Fund name")
	cmd.Flags().String("client", "", "Client name")
	addEmailFlags(cmd)
	cmd.Flags().StringSlice("investment", nil, "Investment ids to include")
	return cmd
}

func addEmailFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("to", nil, "Recipients")
	cmd.Flags().StringSlice("cc", nil, "CC recipients")
	cmd.Flags().StringSlice("bcc", nil, "BCC recipients")
	cmd.Flags().String("subject", "", "Subject line")
	cmd.Flags().String("body", "", "Message body")
}

func emailFlags(cmd *cobra.Command) core.EmailInput {
	to, _ := cmd.Flags().GetStringSlice("to")
	cc, _ := cmd.Flags().GetStringSlice("cc")
	bcc, _ := cmd.Flags().GetStringSlice("bcc")
	subject, _ := cmd.Flags().GetString("subject")
	body, _ := cmd.Flags().GetString("body")
	return core.EmailInput{
		To:      to,
		CC:      cc,
		BCC:     bcc,
		Subject: subject,
		Body:    strings.ReplaceAll(body, `\n`, "\n"),
	}
}

func investmentFlag(cmd *cobra.Command) ([]int, error) {
	raw, _ := cmd.Flags().GetStringSlice("investment")
	return parseIDs(raw)
}
