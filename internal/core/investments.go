package core

import (
	"slices"
	"time"

	"linkbox/pkg/domain"
)

// SetInvestmentStatus sets a referenced investment's status and re-derives
// every conversation referencing it.
func (e *Engine) SetInvestmentStatus(s domain.Store, investmentID int, status domain.InvestmentStatus) (domain.Store, Outcome) {
	inv, ok := s.Investments[investmentID]
	if !ok {
		return s, rejected("investment %d not found", investmentID)
	}
	if !status.Valid() {
		if status == domain.StatusUnassigned {
			return s, rejected("investment %d cannot be unassigned directly; remove it from its conversations", investmentID)
		}
		return s, rejected("unknown investment status %q", status)
	}
	if !s.IsReferenced(investmentID) {
		return s, rejected("investment %d is not referenced by any conversation", investmentID)
	}
	if inv.Status == status {
		return s, Outcome{}
	}
	ed := s.Edit()
	inv.Status = status
	inv.LastActivityAt = e.now()
	ed.PutInvestment(inv)
	rederive(ed, s.ReferencingConversations(investmentID))
	return finish(s, ed, Outcome{})
}

// AddInvestmentsToProcess links ids to a conversation of the process: the
// named one, or the most recently active one when convoID is empty.
func (e *Engine) AddInvestmentsToProcess(s domain.Store, processID int, convoID string, ids []int) (domain.Store, Outcome) {
	p, ok := s.Processes[processID]
	if !ok {
		return s, rejected("process %d not found", processID)
	}
	ids = domain.DedupeRefs(ids)
	if len(ids) == 0 {
		return s, rejected("no investments selected")
	}
	if missing, ok := firstMissingInvestment(s, ids); !ok {
		return s, rejected("investment %d not found", missing)
	}
	if convoID == "" {
		latest, ok := latestConversation(s, p)
		if !ok {
			return s, rejected("process %d has no conversations", processID)
		}
		convoID = latest.ID
	}
	c, ok := s.Convos[convoID]
	if !ok || !p.HasConversation(convoID) || c.ProcessID != processID {
		return s, rejected("conversation %s is not part of process %d", convoID, processID)
	}
	refs := slices.Clone(c.InvestmentRefs)
	for _, id := range ids {
		if !slices.Contains(refs, id) {
			refs = append(refs, id)
		}
	}
	next, out := e.EditConversationInvestments(s, convoID, refs)
	out.ProcessID = processID
	return next, out
}

// RemoveInvestmentsFromProcess strips ids from every conversation of the
// process. Investments left without any referrer become unassigned and
// all affected conversations are re-derived.
func (e *Engine) RemoveInvestmentsFromProcess(s domain.Store, processID int, ids []int) (domain.Store, Outcome) {
	p, ok := s.Processes[processID]
	if !ok {
		return s, rejected("process %d not found", processID)
	}
	ids = domain.DedupeRefs(ids)
	if len(ids) == 0 {
		return s, rejected("no investments selected")
	}
	owned := make(map[int]struct{})
	for _, inv := range ProcessInvestments(s, processID) {
		owned[inv.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := s.Investments[id]; !ok {
			return s, rejected("investment %d not found", id)
		}
		if _, ok := owned[id]; !ok {
			return s, rejected("investment %d is not part of process %d", id, processID)
		}
	}

	ed := s.Edit()
	var edited []string
	for _, cid := range p.ConvoIDs {
		c, ok := s.Convos[cid]
		if !ok {
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(c.InvestmentRefs), func(ref int) bool { return slices.Contains(ids, ref) })
		if len(kept) == len(c.InvestmentRefs) {
			continue
		}
		next := c.Clone()
		next.InvestmentRefs = kept
		ed.PutConversation(next)
		edited = append(edited, cid)
	}
	affected := reconcileInvestments(ed, ids, e.now())
	rederive(ed, dedupeStrings(append(edited, affected...)))
	return finish(s, ed, Outcome{ProcessID: processID})
}

// assignInvestments marks unassigned investments in_progress.
func assignInvestments(ed *domain.Editor, ids []int, now time.Time) {
	for _, id := range ids {
		inv, ok := ed.View().Investments[id]
		if !ok || inv.Status != domain.StatusUnassigned {
			continue
		}
		inv.Status = domain.StatusInProgress
		inv.LastActivityAt = now
		ed.PutInvestment(inv)
	}
}

// reconcileInvestments restores the referenced-iff-assigned rule for ids
// and returns the conversations whose derivation inputs changed.
func reconcileInvestments(ed *domain.Editor, ids []int, now time.Time) []string {
	var affected []string
	for _, id := range ids {
		view := ed.View()
		inv, ok := view.Investments[id]
		if !ok {
			continue
		}
		referenced := view.IsReferenced(id)
		switch {
		case referenced && inv.Status == domain.StatusUnassigned:
			inv.Status = domain.StatusInProgress
		case !referenced && inv.Status != domain.StatusUnassigned:
			inv.Status = domain.StatusUnassigned
		default:
			continue
		}
		inv.LastActivityAt = now
		ed.PutInvestment(inv)
		affected = append(affected, view.ReferencingConversations(id)...)
	}
	return dedupeStrings(affected)
}

func latestConversation(s domain.Store, p domain.FundProcess) (domain.Conversation, bool) {
	var (
		latest domain.Conversation
		found  bool
	)
	for _, cid := range p.ConvoIDs {
		c, ok := s.Convos[cid]
		if !ok {
			continue
		}
		if !found || c.LastActivityAt.After(latest.LastActivityAt) {
			latest, found = c, true
		}
	}
	return latest, found
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Reconcile restores status and state consistency over the whole store:
// referenced investments without a status become in_progress, unreferenced
// ones become unassigned, and every conversation state is re-derived.
// Snapshots migrated from the legacy layout need this, since that layout
// let a process own investments no conversation referenced.
func (e *Engine) Reconcile(s domain.Store) (domain.Store, Outcome) {
	s = s.Indexed()
	ed := s.Edit()
	reconcileInvestments(ed, s.InvestmentIDs(), e.now())
	rederive(ed, s.ConversationIDs())
	return finish(s, ed, Outcome{})
}
