package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linkbox/internal/core"
	"linkbox/pkg/domain"
)

var toneColors = map[string]*color.Color{
	"blue":  color.New(color.FgBlue),
	"amber": color.New(color.FgYellow),
	"gray":  color.New(color.FgHiBlack),
}

func badges(state domain.ConvoState) string {
	parts := make([]string, 0, 2)
	for _, b := range core.StateBadges(state) {
		c, ok := toneColors[b.Tone]
		if !ok {
			parts = append(parts, "["+b.Text+"]")
			continue
		}
		parts = append(parts, c.Sprint("["+b.Text+"]"))
	}
	return strings.Join(parts, " ")
}

func statusText(s domain.InvestmentStatus) string {
	switch s {
	case domain.StatusLinked:
		return color.New(color.FgGreen).Sprint("linked")
	case domain.StatusInProgress:
		return color.New(color.FgBlue).Sprint("in_progress")
	case domain.StatusArchived:
		return color.New(color.FgHiBlack).Sprint("archived")
	}
	return "-"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeInvestments(w io.Writer, list []domain.Investment) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No investments")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tENTITY\tFUND\tSTATUS\tLAST ACTIVITY")
	for _, inv := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", inv.ID, inv.InvestingEntity, inv.FundName, statusText(inv.Status), day(inv.LastActivityAt))
	}
	_ = tw.Flush()
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// report prints the result of a mutation. Rejections and blocking rule
// failures become errors so the process exits non-zero.
func report(cmd *cobra.Command, out core.Outcome, res domain.Result, err error) error {
	w := cmd.OutOrStdout()
	if err != nil {
		var rv domain.RuleViolationError
		if errors.As(err, &rv) {
			writeViolations(w, rv.Result.Violations)
		}
		return err
	}
	if out.Rejected() {
		return fmt.Errorf("rejected: %s", out.Reason)
	}
	fmt.Fprintf(w, "%s applied %d change(s)\n", color.New(color.FgGreen).Sprint("✓"), len(out.Changes))
	created := []struct {
		label, value string
	}{
		{"process", idText(out.ProcessID)},
		{"client", out.ClientID},
		{"conversation", out.ConversationID},
		{"message", out.MessageID},
	}
	for _, c := range created {
		if c.value != "" {
			fmt.Fprintf(w, "  %s: %s\n", c.label, c.value)
		}
	}
	writeViolations(w, res.Violations)
	return nil
}

func idText(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func writeViolations(w io.Writer, violations []domain.Violation) {
	for _, v := range violations {
		mark := color.New(color.FgYellow).Sprint("!")
		if v.Severity == domain.SeverityBlock {
			mark = color.New(color.FgRed).Sprint("✗")
		}
		fmt.Fprintf(w, "  %s %s [%s %s]: %s\n", mark, v.Rule, v.Entity, v.EntityID, v.Message)
	}
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
