package core

import (
	"context"
	"fmt"
	"strconv"

	"linkbox/pkg/domain"
)

// NewProcessMembershipRule returns the rule keeping process conversation
// lists and conversation process ids in agreement. Dangling ids only warn.
func NewProcessMembershipRule() domain.Rule {
	return processMembershipRule{}
}

type processMembershipRule struct{}

func (processMembershipRule) Name() string { return "process_membership" }

func (r processMembershipRule) Evaluate(_ context.Context, view domain.Store, changes []domain.Change) (domain.Result, error) {
	sc := scopeOf(view, changes)
	res := domain.Result{}
	add := func(sev domain.Severity, entity domain.EntityType, id, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule: r.Name(), Severity: sev, Message: msg, Entity: entity, EntityID: id,
		})
	}

	for _, p := range sc.processList(view) {
		pid := strconv.Itoa(p.ID)
		seen := make(map[string]struct{}, len(p.ConvoIDs))
		for _, cid := range p.ConvoIDs {
			if _, dup := seen[cid]; dup {
				add(domain.SeverityBlock, domain.EntityProcess, pid, fmt.Sprintf("process %d lists conversation %s twice", p.ID, cid))
				continue
			}
			seen[cid] = struct{}{}
			c, ok := view.Convos[cid]
			if !ok {
				add(domain.SeverityWarn, domain.EntityProcess, pid, fmt.Sprintf("process %d lists missing conversation %s", p.ID, cid))
				continue
			}
			if c.ProcessID != p.ID {
				add(domain.SeverityBlock, domain.EntityProcess, pid, fmt.Sprintf("process %d lists conversation %s owned by process %d", p.ID, cid, c.ProcessID))
			}
		}
	}

	for _, c := range sc.conversations(view) {
		p, ok := view.Processes[c.ProcessID]
		if !ok {
			add(domain.SeverityWarn, domain.EntityConversation, c.ID, fmt.Sprintf("conversation %s belongs to missing process %d", c.ID, c.ProcessID))
			continue
		}
		if !p.HasConversation(c.ID) {
			add(domain.SeverityBlock, domain.EntityConversation, c.ID, fmt.Sprintf("conversation %s is not listed by its process %d", c.ID, c.ProcessID))
		}
	}
	return res, nil
}
