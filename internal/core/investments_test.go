package core

import (
	"context"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"linkbox/pkg/domain"
)

func sameSnapshot(a, b domain.Store) bool {
	return reflect.ValueOf(a.Convos).Pointer() == reflect.ValueOf(b.Convos).Pointer() &&
		reflect.ValueOf(a.Investments).Pointer() == reflect.ValueOf(b.Investments).Pointer() &&
		reflect.ValueOf(a.Processes).Pointer() == reflect.ValueOf(b.Processes).Pointer()
}

func TestSetInvestmentStatusFansOutToEveryReferrer(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	archived, out := e.SetInvestmentStatus(s, 200, domain.StatusArchived)
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if got := archived.Investments[200]; got.Status != domain.StatusArchived || !got.LastActivityAt.Equal(testNow) {
		t.Fatalf("expected archived with fresh activity, got %+v", got)
	}
	for _, id := range []string{"cv_a", "cv_c"} {
		if st := archived.Convos[id].State; st != domain.StateClosed {
			t.Fatalf("expected %s closed, got %s", id, st)
		}
	}
	if s.Investments[200].Status != domain.StatusInProgress || s.Convos["cv_c"].State != domain.StatePendingFund {
		t.Fatalf("input snapshot was mutated")
	}
	if !reflect.DeepEqual(archived.Convos["cv_d"], s.Convos["cv_d"]) {
		t.Fatalf("unrelated conversation changed")
	}

	reopened, _ := e.SetInvestmentStatus(archived, 200, domain.StatusInProgress)
	for _, id := range []string{"cv_a", "cv_c"} {
		if st := reopened.Convos[id].State; st != domain.StatePendingFund {
			t.Fatalf("expected %s reopened to pending fund, got %s", id, st)
		}
	}
}

func TestSetInvestmentStatusRejections(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	cases := []struct {
		name   string
		id     int
		status domain.InvestmentStatus
	}{
		{"missing investment", 999, domain.StatusLinked},
		{"unassign directly", 200, domain.StatusUnassigned},
		{"unknown status", 200, domain.InvestmentStatus("pending")},
		{"unreferenced investment", 100, domain.StatusLinked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, out := e.SetInvestmentStatus(s, tc.id, tc.status)
			if !out.Rejected() {
				t.Fatalf("expected rejection")
			}
			if !sameSnapshot(s, next) || len(out.Changes) != 0 {
				t.Fatalf("rejected operation returned a new snapshot")
			}
		})
	}

	next, out := e.SetInvestmentStatus(s, 200, domain.StatusInProgress)
	if out.Rejected() || len(out.Changes) != 0 || !sameSnapshot(s, next) {
		t.Fatalf("expected unchanged status to be a quiet no-op, got %+v", out)
	}
}

func TestAddInvestmentsToProcess(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	next, out := e.AddInvestmentsToProcess(s, 1, "cv_b", []int{100, 100, 101})
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if got := next.Convos["cv_b"].InvestmentRefs; !slices.Equal(got, []int{202, 100, 101}) {
		t.Fatalf("unexpected refs %v", got)
	}
	for _, id := range []int{100, 101} {
		if next.Investments[id].Status != domain.StatusInProgress {
			t.Fatalf("expected %d in progress, got %q", id, next.Investments[id].Status)
		}
	}
	if st := next.Convos["cv_b"].State; st != domain.StatePendingFund {
		t.Fatalf("expected closed conversation to reopen, got %s", st)
	}
	if out.ProcessID != 1 || out.ConversationID != "cv_b" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	latest, out := e.AddInvestmentsToProcess(s, 1, "", []int{100})
	if out.Rejected() || !slices.Contains(latest.Convos["cv_a"].InvestmentRefs, 100) {
		t.Fatalf("expected default conversation cv_a to receive the investment, got %+v", out)
	}

	for name, call := range map[string]func() (domain.Store, Outcome){
		"missing process":      func() (domain.Store, Outcome) { return e.AddInvestmentsToProcess(s, 9, "", []int{100}) },
		"empty selection":      func() (domain.Store, Outcome) { return e.AddInvestmentsToProcess(s, 1, "", nil) },
		"missing investment":   func() (domain.Store, Outcome) { return e.AddInvestmentsToProcess(s, 1, "", []int{100, 999}) },
		"foreign conversation": func() (domain.Store, Outcome) { return e.AddInvestmentsToProcess(s, 1, "cv_c", []int{100}) },
	} {
		next, out := call()
		if !out.Rejected() || !sameSnapshot(s, next) {
			t.Fatalf("%s: expected rejection with unchanged store", name)
		}
	}
}

func TestRemoveInvestmentsFromProcess(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	next, out := e.RemoveInvestmentsFromProcess(s, 1, []int{200, 202})
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if got := next.Convos["cv_a"].InvestmentRefs; !slices.Equal(got, []int{201}) {
		t.Fatalf("unexpected cv_a refs %v", got)
	}
	if got := next.Convos["cv_b"].InvestmentRefs; len(got) != 0 {
		t.Fatalf("expected cv_b refs stripped, got %v", got)
	}
	// 200 is still referenced from process 2
	if next.Investments[200].Status != domain.StatusInProgress {
		t.Fatalf("expected 200 kept in progress, got %q", next.Investments[200].Status)
	}
	if next.Investments[202].Status != domain.StatusUnassigned {
		t.Fatalf("expected 202 unassigned, got %q", next.Investments[202].Status)
	}
	if st := next.Convos["cv_a"].State; st != domain.StateClosed {
		t.Fatalf("expected cv_a closed on its remaining linked investment, got %s", st)
	}
	if st := next.Convos["cv_b"].State; st != domain.StateClosed {
		t.Fatalf("expected cv_b to keep its state without refs, got %s", st)
	}
	if len(assignmentBreaches(next)) != 0 {
		t.Fatalf("assignment breaches %v", assignmentBreaches(next))
	}

	for name, ids := range map[string][]int{
		"empty selection":   nil,
		"missing":           {999},
		"other process":     {300},
		"partially foreign": {201, 300},
	} {
		next, out := e.RemoveInvestmentsFromProcess(s, 1, ids)
		if !out.Rejected() || !sameSnapshot(s, next) {
			t.Fatalf("%s: expected rejection with unchanged store", name)
		}
	}
}

func TestAssignmentHoldsAcrossRefEdits(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	rules := NewDefaultRulesEngine()
	rng := rand.New(rand.NewPCG(7, 11))
	pool := []int{100, 101, 200, 201, 202}
	convos := []string{"cv_a", "cv_b", "cv_c"}

	for step := 0; step < 200; step++ {
		var out Outcome
		if rng.IntN(4) == 0 {
			pid := 1 + rng.IntN(2)
			var ids []int
			for _, inv := range ProcessInvestments(s, pid) {
				if rng.IntN(2) == 0 {
					ids = append(ids, inv.ID)
				}
			}
			s, out = e.RemoveInvestmentsFromProcess(s, pid, ids)
		} else {
			var refs []int
			for _, id := range pool {
				if rng.IntN(2) == 0 {
					refs = append(refs, id)
				}
			}
			s, out = e.EditConversationInvestments(s, convos[rng.IntN(len(convos))], refs)
		}
		if bad := assignmentBreaches(s); len(bad) != 0 {
			t.Fatalf("step %d (%+v): assignment breaches %v", step, out, bad)
		}
		res, err := rules.Evaluate(context.Background(), s, nil)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if res.HasBlocking() {
			t.Fatalf("step %d: blocking violations %+v", step, res.Violations)
		}
	}
}

func TestReconcileRepairsStatusesAndStates(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	inv := s.Investments[100]
	inv.Status = domain.StatusLinked
	s.Investments[100] = inv
	c := s.Convos["cv_a"]
	c.State = domain.StateClosed
	s.Convos["cv_a"] = c
	s = s.Reindex()

	next, out := e.Reconcile(s)
	if out.Rejected() || len(out.Changes) != 2 {
		t.Fatalf("expected two repairs, got %+v", out)
	}
	if got := next.Investments[100].Status; got != domain.StatusUnassigned {
		t.Fatalf("expected unreferenced investment unassigned, got %q", got)
	}
	if got := next.Convos["cv_a"].State; got != domain.StatePendingFund {
		t.Fatalf("expected cv_a reopened, got %s", got)
	}
	if bad := assignmentBreaches(next); len(bad) != 0 {
		t.Fatalf("assignment breaches remain: %v", bad)
	}

	again, out := e.Reconcile(next)
	if len(out.Changes) != 0 || !sameSnapshot(again, next) {
		t.Fatalf("expected reconcile to be idempotent, got %+v", out.Changes)
	}
}
