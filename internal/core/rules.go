package core

import (
	"maps"
	"slices"
	"strconv"

	"linkbox/pkg/domain"
)

// NewDefaultRulesEngine registers the store invariants. Assignment, state,
// membership and message count breaches block; client affinity warns.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewAssignmentStatusRule())
	engine.Register(NewConversationStateRule())
	engine.Register(NewProcessMembershipRule())
	engine.Register(NewMessageCountRule())
	engine.Register(NewClientAffinityRule())
	return engine
}

// scope is the set of entities a rule must look at. all is set for a
// whole-store check.
type scope struct {
	all         bool
	convos      map[string]struct{}
	investments map[int]struct{}
	processes   map[int]struct{}
}

// scopeOf widens the changed entities to everything whose invariants they
// can affect: refs touch investments, investments touch their referrers,
// and membership touches both sides.
func scopeOf(view domain.Store, changes []domain.Change) scope {
	sc := scope{
		all:         changes == nil,
		convos:      make(map[string]struct{}),
		investments: make(map[int]struct{}),
		processes:   make(map[int]struct{}),
	}
	if sc.all {
		return sc
	}
	addConvo := func(c domain.Conversation) {
		sc.convos[c.ID] = struct{}{}
		sc.processes[c.ProcessID] = struct{}{}
		for _, ref := range c.InvestmentRefs {
			sc.investments[ref] = struct{}{}
		}
	}
	addProcess := func(p domain.FundProcess) {
		sc.processes[p.ID] = struct{}{}
		for _, cid := range p.ConvoIDs {
			sc.convos[cid] = struct{}{}
		}
	}
	for _, ch := range changes {
		switch ch.Entity {
		case domain.EntityConversation:
			if c, ok := ch.Before.(domain.Conversation); ok {
				addConvo(c)
			}
			if c, ok := ch.After.(domain.Conversation); ok {
				addConvo(c)
			}
		case domain.EntityProcess:
			if p, ok := ch.Before.(domain.FundProcess); ok {
				addProcess(p)
			}
			if p, ok := ch.After.(domain.FundProcess); ok {
				addProcess(p)
			}
		case domain.EntityInvestment:
			if id, err := strconv.Atoi(ch.ID); err == nil {
				sc.investments[id] = struct{}{}
				for _, cid := range view.ReferencingConversations(id) {
					sc.convos[cid] = struct{}{}
				}
			}
		}
	}
	return sc
}

func (sc scope) conversations(view domain.Store) []domain.Conversation {
	ids := view.ConversationIDs()
	if !sc.all {
		ids = slices.Sorted(maps.Keys(sc.convos))
	}
	out := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		if c, ok := view.Convos[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (sc scope) investmentList(view domain.Store) []domain.Investment {
	ids := view.InvestmentIDs()
	if !sc.all {
		ids = slices.Sorted(maps.Keys(sc.investments))
	}
	out := make([]domain.Investment, 0, len(ids))
	for _, id := range ids {
		if inv, ok := view.Investments[id]; ok {
			out = append(out, inv)
		}
	}
	return out
}

func (sc scope) processList(view domain.Store) []domain.FundProcess {
	ids := view.ProcessIDs()
	if !sc.all {
		ids = slices.Sorted(maps.Keys(sc.processes))
	}
	out := make([]domain.FundProcess, 0, len(ids))
	for _, id := range ids {
		if p, ok := view.Processes[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
