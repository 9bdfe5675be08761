package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"linkbox/internal/core"
	"linkbox/pkg/domain"
)

func (a *App) convoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "convo",
		Aliases: []string{"conversation"},
		Short:   "Manage conversations with fund administrators",
	}
	cmd.AddCommand(a.convoShowCmd())
	cmd.AddCommand(a.convoCreateCmd())
	cmd.AddCommand(a.convoSendCmd())
	cmd.AddCommand(a.convoAppendCmd())
	cmd.AddCommand(a.convoReplyAsFirmCmd())
	cmd.AddCommand(a.convoRefsCmd())
	cmd.AddCommand(a.convoMoveCmd())
	return cmd
}

func (a *App) convoShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [conversation-id]",
		Short: "Show a conversation thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.Conversation(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  %s  %s\n", c.ID, c.Subject, badges(c.State))
			fmt.Fprintf(w, "  Process: %d\n", c.ProcessID)
			fmt.Fprintf(w, "  Alias: %s\n", c.AliasEmail)
			if firm := core.FirmAddress(c); !firm.IsZero() {
				fmt.Fprintf(w, "  Firm: %s\n", firm)
			}
			for _, m := range c.Messages {
				fmt.Fprintf(w, "\n[%s] %s %s -> %s\n", day(m.Timestamp), m.Direction, m.From, strings.Join(m.To, ", "))
				fmt.Fprintln(w, m.Body)
			}
			fmt.Fprintln(w)
			writeInvestments(w, core.ConversationInvestments(a.svc.Snapshot(), c.ID))
			return nil
		},
	}
}

func (a *App) convoCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [process-id]",
		Short: "Start a new conversation in a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := parseID(args[0], "process")
			if err != nil {
				return err
			}
			ids, err := investmentFlag(cmd)
			if err != nil {
				return err
			}
			out, res, err := a.svc.CreateConversation(cmd.Context(), processID, core.ConversationInput{
				Email:          emailFlags(cmd),
				InvestmentRefs: ids,
			})
			return report(cmd, out, res, err)
		},
	}
	addEmailFlags(cmd)
	cmd.Flags().StringSlice("investment", nil, "Investment ids to reference")
	return cmd
}

func (a *App) convoSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [conversation-id]",
		Short: "Send a reply as ops",
		Long:  "Send a reply as ops. Without --to the reply goes to the firm that last wrote in.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := emailFlags(cmd)
			out, res, err := a.svc.SendAsOps(cmd.Context(), args[0], core.Reply{
				To:   email.To,
				CC:   email.CC,
				BCC:  email.BCC,
				Body: email.Body,
			})
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().StringSlice("to", nil, "Recipients")
	cmd.Flags().StringSlice("cc", nil, "CC recipients")
	cmd.Flags().StringSlice("bcc", nil, "BCC recipients")
	cmd.Flags().String("body", "", "Message body")
	return cmd
}

func (a *App) convoAppendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append [conversation-id]",
		Short: "Record a message as received or sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			role, _ := cmd.Flags().GetString("role")
			direction, _ := cmd.Flags().GetString("direction")
			state, _ := cmd.Flags().GetString("state")
			email := emailFlags(cmd)

			msg := domain.EmailMsg{
				From:      domain.ParseAddress(from),
				FromRole:  domain.Role(strings.ToUpper(role)),
				To:        email.To,
				CC:        email.CC,
				BCC:       email.BCC,
				Direction: domain.Direction(strings.ToUpper(direction)),
				Body:      email.Body,
			}
			if msg.Direction != domain.DirectionIn && msg.Direction != domain.DirectionOut {
				return fmt.Errorf("invalid direction %q: use in or out", direction)
			}
			opts := core.AppendOptions{ResultingState: domain.ConvoState(strings.ToUpper(state))}
			out, res, err := a.svc.AppendMessage(cmd.Context(), args[0], msg, opts)
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().String("from", "", `Sender, e.g. "Landmark Admin <admin@landmark.com>"`)
	cmd.Flags().String("role", string(domain.RoleAdmin), "Sender role (OPS, ADMIN, FUND, CLIENT)")
	cmd.Flags().String("direction", "in", "Message direction (in, out)")
	cmd.Flags().String("state", "", "Force the resulting conversation state")
	cmd.Flags().StringSlice("to", nil, "Recipients")
	cmd.Flags().StringSlice("cc", nil, "CC recipients")
	cmd.Flags().StringSlice("bcc", nil, "BCC recipients")
	cmd.Flags().String("body", "", "Message body")
	return cmd
}

func (a *App) convoReplyAsFirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply-as-firm [conversation-id]",
		Short: "Simulate an inbound reply from the fund administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetString("body")
			out, res, err := a.svc.ReplyAsFirm(cmd.Context(), args[0], body)
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().String("body", "", "Message body")
	return cmd
}

func (a *App) convoRefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs [conversation-id] [investment-id...]",
		Short: "Replace the investments a conversation references",
		Long: `Replace the investments a conversation references. With --reconcile,
removed investments that are no longer referenced fall back to unassigned
and newly added unassigned investments become in_progress.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			reconcile, _ := cmd.Flags().GetBool("reconcile")
			if reconcile {
				out, res, err := a.svc.EditConversationInvestments(cmd.Context(), args[0], ids)
				return report(cmd, out, res, err)
			}
			out, res, err := a.svc.SetInvestmentRefs(cmd.Context(), args[0], ids)
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().Bool("reconcile", false, "Also update investment statuses")
	return cmd
}

func (a *App) convoMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move [conversation-id...]",
		Short: "Move conversations to another process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			out, res, err := a.svc.MoveConversations(cmd.Context(), args, from, to)
			return report(cmd, out, res, err)
		},
	}
	cmd.Flags().Int("from", 0, "Source process id")
	cmd.Flags().Int("to", 0, "Target process id")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
