package core

import (
	"testing"

	"linkbox/pkg/domain"
)

func TestDeriveState(t *testing.T) {
	s := smallStore()
	cases := []struct {
		name  string
		state domain.ConvoState
		refs  []int
		want  domain.ConvoState
	}{
		{"no refs keeps state", domain.StatePendingArch, nil, domain.StatePendingArch},
		{"dangling refs keep state", domain.StateNoResponse, []int{999}, domain.StateNoResponse},
		{"all terminal closes", domain.StatePendingArch, []int{201, 202}, domain.StateClosed},
		{"terminal plus dangling closes", domain.StatePendingFund, []int{201, 999}, domain.StateClosed},
		{"closed reopens to pending fund", domain.StateClosed, []int{200, 201}, domain.StatePendingFund},
		{"open stays as is", domain.StatePendingArch, []int{200}, domain.StatePendingArch},
		{"closed stays closed", domain.StateClosed, []int{202}, domain.StateClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := domain.Conversation{ID: "x", State: tc.state, InvestmentRefs: tc.refs}
			got := DeriveState(c, s)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			c.State = got
			if again := DeriveState(c, s); again != got {
				t.Fatalf("derivation not idempotent: %s then %s", got, again)
			}
		})
	}
}

func TestMessageTransition(t *testing.T) {
	cases := []struct {
		dir    domain.Direction
		role   domain.Role
		want   domain.ConvoState
		wantOK bool
	}{
		{domain.DirectionOut, domain.RoleOps, domain.StatePendingFund, true},
		{domain.DirectionIn, domain.RoleAdmin, domain.StatePendingArch, true},
		{domain.DirectionIn, domain.RoleFund, domain.StatePendingArch, true},
		{domain.DirectionIn, domain.RoleOps, "", false},
	}
	for _, tc := range cases {
		got, ok := MessageTransition(domain.EmailMsg{Direction: tc.dir, FromRole: tc.role})
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("%s/%s: expected (%s,%v), got (%s,%v)", tc.dir, tc.role, tc.want, tc.wantOK, got, ok)
		}
	}
}

func TestRederiveSharesUnchangedSnapshot(t *testing.T) {
	s := smallStore()
	if got := Rederive(s, []string{"cv_a", "cv_b", "missing"}); got.Convos["cv_a"].State != domain.StatePendingFund {
		t.Fatalf("expected consistent store untouched")
	}

	ed := s.Edit()
	inv := s.Investments[200]
	inv.Status = domain.StatusLinked
	ed.PutInvestment(inv)
	linked, _ := ed.Done()

	next := Rederive(linked, []string{"cv_a", "cv_c"})
	if next.Convos["cv_a"].State != domain.StateClosed || next.Convos["cv_c"].State != domain.StateClosed {
		t.Fatalf("expected both referrers closed, got %s and %s", next.Convos["cv_a"].State, next.Convos["cv_c"].State)
	}
	if linked.Convos["cv_a"].State != domain.StatePendingFund {
		t.Fatalf("input snapshot was mutated")
	}
}
