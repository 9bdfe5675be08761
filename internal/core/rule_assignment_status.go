package core

import (
	"context"
	"fmt"
	"strconv"

	"linkbox/pkg/domain"
)

// NewAssignmentStatusRule returns the rule keeping an investment's status
// null exactly when no conversation references it.
func NewAssignmentStatusRule() domain.Rule {
	return assignmentStatusRule{}
}

type assignmentStatusRule struct{}

func (assignmentStatusRule) Name() string { return "assignment_status" }

func (r assignmentStatusRule) Evaluate(_ context.Context, view domain.Store, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, inv := range scopeOf(view, changes).investmentList(view) {
		referenced := view.IsReferenced(inv.ID)
		var msg string
		switch {
		case referenced && inv.Status == domain.StatusUnassigned:
			msg = fmt.Sprintf("investment %d is referenced but has no status", inv.ID)
		case !referenced && inv.Status != domain.StatusUnassigned:
			msg = fmt.Sprintf("investment %d has status %s but no conversation references it", inv.ID, inv.Status)
		case inv.Status != domain.StatusUnassigned && !inv.Status.Valid():
			msg = fmt.Sprintf("investment %d has unknown status %q", inv.ID, inv.Status)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityInvestment,
			EntityID: strconv.Itoa(inv.ID),
		})
	}
	return res, nil
}
