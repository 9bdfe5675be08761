package core

import (
	"context"
	"fmt"

	"linkbox/pkg/domain"
)

// NewConversationStateRule returns the rule requiring every conversation's
// stored state to match its derivation.
func NewConversationStateRule() domain.Rule {
	return conversationStateRule{}
}

type conversationStateRule struct{}

func (conversationStateRule) Name() string { return "conversation_state" }

func (r conversationStateRule) Evaluate(_ context.Context, view domain.Store, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range scopeOf(view, changes).conversations(view) {
		var msg string
		if !c.State.Valid() {
			msg = fmt.Sprintf("conversation %s has unknown state %q", c.ID, c.State)
		} else if derived := DeriveState(c, view); derived != c.State {
			msg = fmt.Sprintf("conversation %s is %s but its investments derive %s", c.ID, c.State, derived)
		} else {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityConversation,
			EntityID: c.ID,
		})
	}
	return res, nil
}
