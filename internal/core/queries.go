package core

import (
	"slices"
	"time"

	"linkbox/pkg/domain"
)

// InvestmentCounts tallies investments by status.
type InvestmentCounts struct {
	Total      int `json:"total"`
	Linked     int `json:"linked"`
	InProgress int `json:"inProgress"`
	Archived   int `json:"archived"`
}

// Progress summarises how far a process has come.
type Progress struct {
	Linked   int `json:"linked"`
	Total    int `json:"total"`
	Unlinked int `json:"unlinked"`
}

// CalculateInvestmentCounts counts investments per status in one pass.
func CalculateInvestmentCounts(list []domain.Investment) InvestmentCounts {
	counts := InvestmentCounts{Total: len(list)}
	for _, inv := range list {
		switch inv.Status {
		case domain.StatusLinked:
			counts.Linked++
		case domain.StatusInProgress:
			counts.InProgress++
		case domain.StatusArchived:
			counts.Archived++
		}
	}
	return counts
}

// FilterInvestmentsByStatus keeps investments with exactly status, in input
// order. A nil filter returns the input.
func FilterInvestmentsByStatus(list []domain.Investment, status *domain.InvestmentStatus) []domain.Investment {
	if status == nil {
		return list
	}
	out := make([]domain.Investment, 0, len(list))
	for _, inv := range list {
		if inv.Status == *status {
			out = append(out, inv)
		}
	}
	return out
}

// ProcessInvestments returns the union of investments referenced by the
// process's conversations in first-reference order. Dangling ids are dropped.
func ProcessInvestments(s domain.Store, processID int) []domain.Investment {
	p, ok := s.Processes[processID]
	if !ok {
		return nil
	}
	seen := make(map[int]struct{})
	var out []domain.Investment
	for _, cid := range p.ConvoIDs {
		c, ok := s.Convos[cid]
		if !ok {
			continue
		}
		for _, ref := range c.InvestmentRefs {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			if inv, ok := s.Investments[ref]; ok {
				out = append(out, inv)
			}
		}
	}
	return out
}

// ConversationInvestments returns the resolvable investments of one
// conversation in ref order.
func ConversationInvestments(s domain.Store, convoID string) []domain.Investment {
	c, ok := s.Convos[convoID]
	if !ok {
		return nil
	}
	out := make([]domain.Investment, 0, len(c.InvestmentRefs))
	for _, ref := range domain.DedupeRefs(c.InvestmentRefs) {
		if inv, ok := s.Investments[ref]; ok {
			out = append(out, inv)
		}
	}
	return out
}

// UnassignedInvestments returns the client's investments that no
// conversation references, ordered by id.
func UnassignedInvestments(s domain.Store, clientID string) []domain.Investment {
	var out []domain.Investment
	for _, id := range s.InvestmentIDs() {
		inv := s.Investments[id]
		if inv.ClientID == clientID && !s.IsReferenced(id) {
			out = append(out, inv)
		}
	}
	return out
}

// InvestmentsNotInProcess returns the investments of the process's client
// that the process does not reference: unassigned ones plus those linked
// through other processes. Ordered by id.
func InvestmentsNotInProcess(s domain.Store, processID int) []domain.Investment {
	p, ok := s.Processes[processID]
	if !ok {
		return nil
	}
	in := make(map[int]struct{})
	for _, inv := range ProcessInvestments(s, processID) {
		in[inv.ID] = struct{}{}
	}
	var out []domain.Investment
	for _, id := range s.InvestmentIDs() {
		inv := s.Investments[id]
		if _, ok := in[id]; ok || inv.ClientID != p.ClientID {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// ProcessProgress reports linked versus total investments of a process.
func ProcessProgress(s domain.Store, processID int) Progress {
	counts := CalculateInvestmentCounts(ProcessInvestments(s, processID))
	return Progress{Linked: counts.Linked, Total: counts.Total, Unlinked: counts.Total - counts.Linked}
}

// ProcessConversations returns the resolvable conversations of a process
// ordered by priority.
func ProcessConversations(s domain.Store, processID int) []domain.Conversation {
	p, ok := s.Processes[processID]
	if !ok {
		return nil
	}
	out := make([]domain.Conversation, 0, len(p.ConvoIDs))
	for _, cid := range p.ConvoIDs {
		if c, ok := s.Convos[cid]; ok {
			out = append(out, c)
		}
	}
	return SortConversationsByPriority(out)
}

// ProcessLastActivity is the latest of the process's own timestamp and its
// conversations' activity.
func ProcessLastActivity(s domain.Store, processID int) time.Time {
	p, ok := s.Processes[processID]
	if !ok {
		return time.Time{}
	}
	latest := p.LastActivityAt
	for _, cid := range p.ConvoIDs {
		if c, ok := s.Convos[cid]; ok && c.LastActivityAt.After(latest) {
			latest = c.LastActivityAt
		}
	}
	return latest
}

// ProcessesByActivity lists processes most recently active first.
func ProcessesByActivity(s domain.Store) []domain.FundProcess {
	ids := s.ProcessIDs()
	slices.SortStableFunc(ids, func(a, b int) int {
		return ProcessLastActivity(s, b).Compare(ProcessLastActivity(s, a))
	})
	out := make([]domain.FundProcess, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Processes[id])
	}
	return out
}
