package core

import (
	"slices"
	"strings"
	"testing"

	"linkbox/pkg/domain"
)

func inboundFrom(addr domain.Address, role domain.Role, body string) domain.EmailMsg {
	return domain.EmailMsg{
		From: addr, FromRole: role, To: []string{"neha.patel-00000@archinvestorservices.com"},
		Direction: domain.DirectionIn, Body: body,
	}
}

func TestAppendMessageTransitions(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	landmark := domain.Address{Name: "Landmark Admin", Email: "admin@landmark.com"}

	next, out := e.AppendMessage(s, "cv_a", inboundFrom(landmark, domain.RoleFund, "  Received, thanks.  "), AppendOptions{})
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	c := next.Convos["cv_a"]
	if c.State != domain.StatePendingArch {
		t.Fatalf("expected pending arch after inbound, got %s", c.State)
	}
	if c.MessageCount != 2 || len(c.Messages) != 2 {
		t.Fatalf("expected two messages, got %d/%d", c.MessageCount, len(c.Messages))
	}
	last := c.Messages[1]
	if last.ID != out.MessageID || last.Body != "Received, thanks." || !last.Timestamp.Equal(testNow) {
		t.Fatalf("unexpected appended message %+v", last)
	}
	if c.Preview != "Received, thanks." || !c.LastActivityAt.Equal(testNow) {
		t.Fatalf("conversation summary not refreshed: %+v", c)
	}
	if !slices.Equal(c.Participants, []domain.Role{domain.RoleAdmin, domain.RoleFund}) {
		t.Fatalf("unexpected participants %v", c.Participants)
	}
	if !next.Processes[1].LastActivityAt.Equal(testNow) {
		t.Fatalf("expected process activity refreshed")
	}
	if len(s.Convos["cv_a"].Messages) != 1 {
		t.Fatalf("input snapshot was mutated")
	}

	replied, _ := e.SendAsOps(next, "cv_a", Reply{Body: "Following up."})
	c = replied.Convos["cv_a"]
	if c.State != domain.StatePendingFund {
		t.Fatalf("expected pending fund after outbound, got %s", c.State)
	}
	sent := c.Messages[2]
	if !slices.Equal(sent.To, []string{"admin@landmark.com"}) || sent.From.Email != c.AliasEmail || sent.FromRole != domain.RoleOps {
		t.Fatalf("expected reply to the firm from the alias, got %+v", sent)
	}
}

func TestAppendMessageKeepsClosedConversationClosed(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	next, out := e.ReplyAsFirm(s, "cv_b", "One more question.")
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	c := next.Convos["cv_b"]
	if c.State != domain.StateClosed {
		t.Fatalf("expected closed conversation to stay closed, got %s", c.State)
	}
	if c.MessageCount != 2 {
		t.Fatalf("expected message appended, got %d", c.MessageCount)
	}
	msg := c.Messages[1]
	if msg.From.Email != fallbackFirmMail || msg.FromRole != domain.RoleAdmin || msg.Direction != domain.DirectionIn {
		t.Fatalf("unexpected firm reply %+v", msg)
	}
}

func TestAppendMessageResultingState(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	msg := domain.EmailMsg{FromRole: domain.RoleOps, To: []string{"admin@fund.com"}, Direction: domain.DirectionOut, Body: "note"}

	next, out := e.AppendMessage(s, "cv_a", msg, AppendOptions{ResultingState: domain.StateNoResponse})
	if out.Rejected() || next.Convos["cv_a"].State != domain.StateNoResponse {
		t.Fatalf("expected explicit state to win, got %s (%s)", next.Convos["cv_a"].State, out.Reason)
	}

	if _, out := e.AppendMessage(s, "cv_a", msg, AppendOptions{ResultingState: "WAITING"}); !out.Rejected() {
		t.Fatalf("expected unknown state rejected")
	}
}

func TestAppendMessageRejections(t *testing.T) {
	e := newTestEngine()
	s := smallStore()
	ok := domain.EmailMsg{To: []string{"admin@fund.com"}, Direction: domain.DirectionOut, FromRole: domain.RoleOps, Body: "hi"}
	blankBody := ok
	blankBody.Body = "   "
	noRecipient := ok
	noRecipient.To = []string{""}
	noDirection := ok
	noDirection.Direction = ""
	sideways := ok
	sideways.Direction = "SIDEWAYS"

	cases := map[string]struct {
		convo string
		msg   domain.EmailMsg
	}{
		"missing conversation": {"cv_x", ok},
		"blank body":           {"cv_a", blankBody},
		"no recipient":         {"cv_a", noRecipient},
		"missing direction":    {"cv_a", noDirection},
		"unknown direction":    {"cv_a", sideways},
	}
	for name, tc := range cases {
		next, out := e.AppendMessage(s, tc.convo, tc.msg, AppendOptions{})
		if !out.Rejected() || !sameSnapshot(s, next) {
			t.Fatalf("%s: expected rejection with unchanged store", name)
		}
	}
	if _, out := e.SendAsOps(s, "cv_x", Reply{Body: "x"}); !out.Rejected() {
		t.Fatalf("expected send to missing conversation rejected")
	}
	if _, out := e.ReplyAsFirm(s, "cv_a", ""); !out.Rejected() {
		t.Fatalf("expected blank firm reply rejected")
	}
}

func TestSetInvestmentRefsLeavesStatuses(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	next, out := e.SetInvestmentRefs(s, "cv_b", []int{202, 100, 202})
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	c := next.Convos["cv_b"]
	if !slices.Equal(c.InvestmentRefs, []int{202, 100}) {
		t.Fatalf("unexpected refs %v", c.InvestmentRefs)
	}
	if next.Investments[100].Status != domain.StatusUnassigned {
		t.Fatalf("expected status untouched, got %q", next.Investments[100].Status)
	}
	if c.State != domain.StatePendingFund {
		t.Fatalf("expected reopened conversation, got %s", c.State)
	}
	if got := next.ReferencingConversations(100); !slices.Equal(got, []string{"cv_b"}) {
		t.Fatalf("index not updated: %v", got)
	}

	same, out := e.SetInvestmentRefs(s, "cv_a", []int{200, 201})
	if out.Rejected() || len(out.Changes) != 0 || !sameSnapshot(s, same) {
		t.Fatalf("expected identical refs to be a no-op")
	}
	if _, out := e.SetInvestmentRefs(s, "cv_a", []int{999}); !out.Rejected() {
		t.Fatalf("expected missing investment rejected")
	}
}

func TestEditConversationInvestmentsReconciles(t *testing.T) {
	e := newTestEngine()
	s := smallStore()

	next, out := e.EditConversationInvestments(s, "cv_a", []int{200, 101})
	if out.Rejected() {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if next.Investments[201].Status != domain.StatusUnassigned {
		t.Fatalf("expected dropped 201 unassigned, got %q", next.Investments[201].Status)
	}
	if next.Investments[101].Status != domain.StatusInProgress {
		t.Fatalf("expected added 101 in progress, got %q", next.Investments[101].Status)
	}
	var touched []string
	for _, ch := range out.Changes {
		touched = append(touched, string(ch.Entity)+":"+ch.ID)
	}
	for _, want := range []string{"conversation:cv_a", "investment:201", "investment:101"} {
		if !slices.Contains(touched, want) {
			t.Fatalf("expected change %s in %v", want, touched)
		}
	}
	if bad := assignmentBreaches(next); len(bad) != 0 {
		t.Fatalf("assignment breaches %v", bad)
	}
}

func TestPreviewAndFirmAddress(t *testing.T) {
	long := strings.Repeat("a", 150)
	if got := Preview(long); len(got) != previewLength+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("  short  "); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}

	c := smallStore().Convos["cv_a"]
	if got := FirmAddress(c); got.Email != fallbackFirmMail {
		t.Fatalf("expected fallback firm address, got %+v", got)
	}
	gso := domain.Address{Name: "GSO Admin", Email: "admin@gso.com"}
	c.Messages = append(c.Messages, inboundFrom(gso, domain.RoleAdmin, "hi"), inboundFrom(domain.Address{Email: "ops@gso.com"}, domain.RoleAdmin, "again"))
	if got := FirmAddress(c); got != gso {
		t.Fatalf("expected first inbound sender, got %+v", got)
	}
}
