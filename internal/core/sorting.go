package core

import (
	"cmp"
	"slices"
	"strings"

	"linkbox/pkg/domain"
)

// SortColumn names a sortable investment column.
type SortColumn string

// Sortable columns. The empty column means default ordering.
const (
	SortNone         SortColumn = ""
	SortID           SortColumn = "id"
	SortEntity       SortColumn = "entity"
	SortFund         SortColumn = "fund"
	SortStatus       SortColumn = "status"
	SortLastActivity SortColumn = "lastActivity"
)

// SortDirection is ascending, descending, or unset.
type SortDirection string

// Sort directions.
const (
	SortUnset SortDirection = ""
	SortAsc   SortDirection = "asc"
	SortDesc  SortDirection = "desc"
)

// SortSpec is the active column sort of an investment table.
type SortSpec struct {
	Column    SortColumn
	Direction SortDirection
}

// Active reports whether both column and direction are set.
func (s SortSpec) Active() bool { return s.Column != SortNone && s.Direction != SortUnset }

// NextSort cycles a header click: the same column goes asc, desc, then off;
// a different column starts ascending.
func NextSort(current SortSpec, target SortColumn) SortSpec {
	if current.Column != target {
		return SortSpec{Column: target, Direction: SortAsc}
	}
	switch current.Direction {
	case SortAsc:
		return SortSpec{Column: target, Direction: SortDesc}
	case SortDesc:
		return SortSpec{}
	}
	return SortSpec{Column: target, Direction: SortAsc}
}

// StatusPriority orders statuses: in_progress, linked, archived, then
// unassigned or unknown.
func StatusPriority(status domain.InvestmentStatus) int {
	switch status {
	case domain.StatusInProgress:
		return 1
	case domain.StatusLinked:
		return 2
	case domain.StatusArchived:
		return 3
	}
	return 4
}

// StatePriority orders conversation states by urgency.
func StatePriority(state domain.ConvoState) int {
	switch state {
	case domain.StatePendingArch:
		return 1
	case domain.StatePendingFund:
		return 2
	case domain.StateClosed:
		return 3
	}
	return 4
}

// SortInvestmentsByDefault orders by status priority, then id.
func SortInvestmentsByDefault(list []domain.Investment) []domain.Investment {
	out := slices.Clone(list)
	slices.SortStableFunc(out, compareDefault)
	return out
}

func compareDefault(a, b domain.Investment) int {
	if d := cmp.Compare(StatusPriority(a.Status), StatusPriority(b.Status)); d != 0 {
		return d
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortInvestments sorts a copy of list by spec, or by the default ordering
// when spec is inactive. Ties keep input order.
func SortInvestments(list []domain.Investment, spec SortSpec) []domain.Investment {
	if !spec.Active() {
		return SortInvestmentsByDefault(list)
	}
	var compare func(a, b domain.Investment) int
	switch spec.Column {
	case SortID:
		compare = func(a, b domain.Investment) int { return cmp.Compare(a.ID, b.ID) }
	case SortEntity:
		compare = func(a, b domain.Investment) int {
			return strings.Compare(strings.ToLower(a.InvestingEntity), strings.ToLower(b.InvestingEntity))
		}
	case SortFund:
		compare = func(a, b domain.Investment) int {
			return strings.Compare(strings.ToLower(a.FundName), strings.ToLower(b.FundName))
		}
	case SortStatus:
		compare = func(a, b domain.Investment) int { return cmp.Compare(StatusPriority(a.Status), StatusPriority(b.Status)) }
	case SortLastActivity:
		compare = func(a, b domain.Investment) int { return a.LastActivityAt.Compare(b.LastActivityAt) }
	default:
		return slices.Clone(list)
	}
	out := slices.Clone(list)
	if spec.Direction == SortDesc {
		slices.SortStableFunc(out, func(a, b domain.Investment) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

// SortConversationsByPriority orders by state priority, most recent
// activity first within a state.
func SortConversationsByPriority(list []domain.Conversation) []domain.Conversation {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b domain.Conversation) int {
		if d := cmp.Compare(StatePriority(a.State), StatePriority(b.State)); d != 0 {
			return d
		}
		return b.LastActivityAt.Compare(a.LastActivityAt)
	})
	return out
}

// Badge is one state chip with its tone.
type Badge struct {
	Text string
	Tone string
}

// StateBadges returns the chips displayed for a conversation state.
func StateBadges(state domain.ConvoState) []Badge {
	switch state {
	case domain.StateNoResponse:
		return []Badge{{Text: state.Label(), Tone: "gray"}}
	case domain.StatePendingFund:
		return []Badge{{Text: state.Label(), Tone: "blue"}}
	case domain.StatePendingArch:
		return []Badge{{Text: state.Label(), Tone: "amber"}}
	case domain.StateClosed:
		return []Badge{{Text: state.Label(), Tone: "gray"}, {Text: domain.StateNoResponse.Label(), Tone: "gray"}}
	}
	return nil
}
