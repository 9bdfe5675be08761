package core

import (
	"context"
	"fmt"

	"linkbox/pkg/domain"
)

// NewClientAffinityRule returns the warning rule flagging conversations
// that reference investments of a client other than their process's.
func NewClientAffinityRule() domain.Rule {
	return clientAffinityRule{}
}

type clientAffinityRule struct{}

func (clientAffinityRule) Name() string { return "client_affinity" }

func (r clientAffinityRule) Evaluate(_ context.Context, view domain.Store, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range scopeOf(view, changes).conversations(view) {
		p, ok := view.Processes[c.ProcessID]
		if !ok {
			continue
		}
		for _, ref := range c.InvestmentRefs {
			inv, ok := view.Investments[ref]
			if !ok || inv.ClientID == p.ClientID {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("conversation %s links investment %d of client %s into process %d of client %s", c.ID, inv.ID, inv.ClientID, p.ID, p.ClientID),
				Entity:   domain.EntityConversation,
				EntityID: c.ID,
			})
		}
	}
	return res, nil
}
