package core

import "linkbox/pkg/domain"

// DeriveState computes a conversation's state from the statuses of the
// investments it references. Dangling refs are ignored. With nothing to
// derive from, the current state is kept.
func DeriveState(c domain.Conversation, s domain.Store) domain.ConvoState {
	resolved, terminal := resolveRefs(c, s)
	if resolved == 0 {
		return c.State
	}
	if terminal == resolved {
		return domain.StateClosed
	}
	if c.State == domain.StateClosed {
		return domain.StatePendingFund
	}
	return c.State
}

// closedByInvestments reports whether the conversation's resolvable refs
// are all linked or archived.
func closedByInvestments(c domain.Conversation, s domain.Store) bool {
	resolved, terminal := resolveRefs(c, s)
	return resolved > 0 && terminal == resolved
}

func resolveRefs(c domain.Conversation, s domain.Store) (resolved, terminal int) {
	for _, ref := range c.InvestmentRefs {
		inv, ok := s.Investments[ref]
		if !ok {
			continue
		}
		resolved++
		if inv.Status.Terminal() {
			terminal++
		}
	}
	return resolved, terminal
}

// MessageTransition returns the state a new message moves a conversation
// to. ok is false when the message does not drive a transition.
func MessageTransition(msg domain.EmailMsg) (state domain.ConvoState, ok bool) {
	switch {
	case msg.Direction == domain.DirectionOut:
		return domain.StatePendingFund, true
	case msg.Direction == domain.DirectionIn && msg.FromRole != domain.RoleOps:
		return domain.StatePendingArch, true
	}
	return "", false
}

// Rederive re-applies DeriveState to the named conversations and returns
// the snapshot with changed states written back.
func Rederive(s domain.Store, convoIDs []string) domain.Store {
	ed := s.Edit()
	rederive(ed, convoIDs)
	next, _ := ed.Done()
	if !ed.Dirty() {
		return s
	}
	return next
}

func rederive(ed *domain.Editor, convoIDs []string) {
	for _, id := range convoIDs {
		view := ed.View()
		c, ok := view.Convos[id]
		if !ok {
			continue
		}
		if st := DeriveState(c, view); st != c.State {
			c.State = st
			ed.PutConversation(c)
		}
	}
}
