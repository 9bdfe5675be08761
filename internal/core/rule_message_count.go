package core

import (
	"context"
	"fmt"

	"linkbox/pkg/domain"
)

// NewMessageCountRule returns the rule requiring messageCount to equal the
// number of stored messages.
func NewMessageCountRule() domain.Rule {
	return messageCountRule{}
}

type messageCountRule struct{}

func (messageCountRule) Name() string { return "message_count" }

func (r messageCountRule) Evaluate(_ context.Context, view domain.Store, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range scopeOf(view, changes).conversations(view) {
		if c.MessageCount == len(c.Messages) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("conversation %s counts %d messages but holds %d", c.ID, c.MessageCount, len(c.Messages)),
			Entity:   domain.EntityConversation,
			EntityID: c.ID,
		})
	}
	return res, nil
}
