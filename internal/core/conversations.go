package core

import (
	"slices"
	"strings"
	"time"

	"linkbox/pkg/domain"
)

const (
	previewLength    = 100
	fallbackFirmMail = "admin@example.com"
	opsDisplayName   = "Arch"
)

// EmailInput is the composer payload for a new thread.
type EmailInput struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Body    string
}

// ConversationInput creates a conversation in an existing process.
type ConversationInput struct {
	Email          EmailInput
	InvestmentRefs []int
}

// Reply is an ops-side message on an existing conversation. An empty To
// addresses the firm that last wrote in.
type Reply struct {
	To   []string
	CC   []string
	BCC  []string
	Body string
}

// AppendOptions tunes AppendMessage.
type AppendOptions struct {
	// ResultingState, when set, replaces the message-driven transition.
	ResultingState domain.ConvoState
}

// CreateConversation opens a new thread in processID with one outbound
// message. Newly referenced unassigned investments become in_progress.
func (e *Engine) CreateConversation(s domain.Store, processID int, in ConversationInput) (domain.Store, Outcome) {
	p, ok := s.Processes[processID]
	if !ok {
		return s, rejected("process %d not found", processID)
	}
	email := trimEmail(in.Email)
	if reason := checkRequest(conversationRequest{To: email.To, Subject: email.Subject, Body: email.Body}); reason != "" {
		return s, rejected("%s", reason)
	}
	refs := domain.DedupeRefs(in.InvestmentRefs)
	if missing, ok := firstMissingInvestment(s, refs); !ok {
		return s, rejected("investment %d not found", missing)
	}
	owner, ok := e.opsOwner(s, p.ClientID)
	if !ok {
		return s, rejected("no ops member available")
	}

	now := e.now()
	ed := s.Edit()
	convo, msg := e.newConversation(s, processID, owner, email, refs, now)
	assignInvestments(ed, refs, now)
	ed.PutConversation(convo)
	rederive(ed, []string{convo.ID})

	p = p.Clone()
	p.ConvoIDs = append(p.ConvoIDs, convo.ID)
	p.LastActivityAt = now
	ed.PutProcess(p)

	return finish(s, ed, Outcome{ProcessID: processID, ConversationID: convo.ID, MessageID: msg.ID})
}

func (e *Engine) newConversation(s domain.Store, processID int, owner domain.OpsMember, email EmailInput, refs []int, now time.Time) (domain.Conversation, domain.EmailMsg) {
	alias := AliasEmail(owner, e.ids)
	cc, bcc := NormalizeRecipients(email.To, email.CC, email.BCC)
	msg := domain.EmailMsg{
		ID:        e.ids.MessageID(),
		Timestamp: now,
		From:      domain.Address{Name: opsDisplayName, Email: alias},
		FromRole:  domain.RoleOps,
		To:        email.To,
		CC:        cc,
		BCC:       bcc,
		Direction: domain.DirectionOut,
		Body:      email.Body,
	}
	convo := domain.Conversation{
		ID:             e.conversationID(s, processID),
		ProcessID:      processID,
		AliasEmail:     alias,
		Subject:        email.Subject,
		Participants:   []domain.Role{domain.RoleAdmin},
		InvestmentRefs: refs,
		MessageCount:   1,
		LastActivityAt: now,
		Preview:        Preview(email.Body),
		State:          domain.StatePendingFund,
		Messages:       []domain.EmailMsg{msg},
	}
	return convo, msg
}

// AppendMessage adds msg to a conversation and applies the message-driven
// state transition. A CLOSED conversation whose investments are all linked
// or archived stays CLOSED; reopening is left to status changes.
func (e *Engine) AppendMessage(s domain.Store, convoID string, msg domain.EmailMsg, opts AppendOptions) (domain.Store, Outcome) {
	c, ok := s.Convos[convoID]
	if !ok {
		return s, rejected("conversation %s not found", convoID)
	}
	msg.Body = strings.TrimSpace(msg.Body)
	msg.To = cleanList(msg.To)
	if reason := checkRequest(messageRequest{To: msg.To, Body: msg.Body}); reason != "" {
		return s, rejected("%s", reason)
	}
	if msg.Direction != domain.DirectionIn && msg.Direction != domain.DirectionOut {
		return s, rejected("unknown message direction %q", msg.Direction)
	}
	if opts.ResultingState != "" && !opts.ResultingState.Valid() {
		return s, rejected("unknown conversation state %q", opts.ResultingState)
	}
	if msg.ID == "" {
		msg.ID = e.ids.MessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = e.now()
	}
	msg.CC, msg.BCC = NormalizeRecipients(msg.To, cleanList(msg.CC), cleanList(msg.BCC))

	next := c.Clone()
	next.Messages = append(next.Messages, msg)
	next.MessageCount++
	next.LastActivityAt = msg.Timestamp
	next.Preview = Preview(msg.Body)
	if msg.FromRole != domain.RoleOps && msg.FromRole != "" && !slices.Contains(next.Participants, msg.FromRole) {
		next.Participants = append(next.Participants, msg.FromRole)
	}
	switch {
	case opts.ResultingState != "":
		next.State = opts.ResultingState
	case c.State == domain.StateClosed && closedByInvestments(c, s):
		// stays closed
	default:
		if st, ok := MessageTransition(msg); ok {
			next.State = st
		}
	}

	ed := s.Edit()
	ed.PutConversation(next)
	if p, ok := s.Processes[c.ProcessID]; ok && msg.Timestamp.After(p.LastActivityAt) {
		p.LastActivityAt = msg.Timestamp
		ed.PutProcess(p)
	}
	return finish(s, ed, Outcome{ProcessID: c.ProcessID, ConversationID: convoID, MessageID: msg.ID})
}

// SendAsOps appends an outbound ops message from the conversation alias.
func (e *Engine) SendAsOps(s domain.Store, convoID string, r Reply) (domain.Store, Outcome) {
	c, ok := s.Convos[convoID]
	if !ok {
		return s, rejected("conversation %s not found", convoID)
	}
	to := cleanList(r.To)
	if len(to) == 0 {
		to = []string{FirmAddress(c).Email}
	}
	msg := domain.EmailMsg{
		From:      domain.Address{Name: opsDisplayName, Email: c.AliasEmail},
		FromRole:  domain.RoleOps,
		To:        to,
		CC:        r.CC,
		BCC:       r.BCC,
		Direction: domain.DirectionOut,
		Body:      r.Body,
	}
	return e.AppendMessage(s, convoID, msg, AppendOptions{})
}

// ReplyAsFirm appends an inbound message written as the external firm.
func (e *Engine) ReplyAsFirm(s domain.Store, convoID, body string) (domain.Store, Outcome) {
	c, ok := s.Convos[convoID]
	if !ok {
		return s, rejected("conversation %s not found", convoID)
	}
	msg := domain.EmailMsg{
		From:      FirmAddress(c),
		FromRole:  domain.RoleAdmin,
		To:        []string{c.AliasEmail},
		Direction: domain.DirectionIn,
		Body:      body,
	}
	return e.AppendMessage(s, convoID, msg, AppendOptions{})
}

// SetInvestmentRefs replaces a conversation's refs and re-derives its
// state. Investment statuses are left as they are.
func (e *Engine) SetInvestmentRefs(s domain.Store, convoID string, refs []int) (domain.Store, Outcome) {
	c, ok := s.Convos[convoID]
	if !ok {
		return s, rejected("conversation %s not found", convoID)
	}
	refs = domain.DedupeRefs(refs)
	if missing, ok := firstMissingInvestment(s, refs); !ok {
		return s, rejected("investment %d not found", missing)
	}
	if slices.Equal(refs, c.InvestmentRefs) {
		return s, Outcome{ProcessID: c.ProcessID, ConversationID: convoID}
	}
	ed := s.Edit()
	next := c.Clone()
	next.InvestmentRefs = refs
	ed.PutConversation(next)
	rederive(ed, []string{convoID})
	return finish(s, ed, Outcome{ProcessID: c.ProcessID, ConversationID: convoID})
}

// EditConversationInvestments is SetInvestmentRefs followed by status
// reconciliation: newly referenced unassigned investments become
// in_progress, investments left without any referrer become unassigned,
// and every conversation touching a changed investment is re-derived.
func (e *Engine) EditConversationInvestments(s domain.Store, convoID string, refs []int) (domain.Store, Outcome) {
	before, ok := s.Convos[convoID]
	if !ok {
		return s, rejected("conversation %s not found", convoID)
	}
	next, out := e.SetInvestmentRefs(s, convoID, refs)
	if out.Rejected() {
		return s, out
	}
	after := next.Convos[convoID]
	touched := append(slices.Clone(before.InvestmentRefs), after.InvestmentRefs...)

	ed := next.Edit()
	affected := reconcileInvestments(ed, domain.DedupeRefs(touched), e.now())
	rederive(ed, affected)
	if !ed.Dirty() {
		return next, out
	}
	final, changes := ed.Done()
	out.Changes = mergeChanges(out.Changes, changes)
	return final, out
}

// FirmAddress returns the sender of the first inbound non-ops message, or
// the fallback firm mailbox.
func FirmAddress(c domain.Conversation) domain.Address {
	for _, m := range c.Messages {
		if m.Direction == domain.DirectionIn && m.FromRole != domain.RoleOps && m.From.Email != "" {
			return m.From
		}
	}
	return domain.Address{Email: fallbackFirmMail}
}

// Preview shortens a message body for list display.
func Preview(body string) string {
	r := []rune(strings.TrimSpace(body))
	if len(r) <= previewLength {
		return string(r)
	}
	return string(r[:previewLength]) + "..."
}

func trimEmail(in EmailInput) EmailInput {
	return EmailInput{
		To:      cleanList(in.To),
		CC:      cleanList(in.CC),
		BCC:     cleanList(in.BCC),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Body),
	}
}

func firstMissingInvestment(s domain.Store, ids []int) (int, bool) {
	for _, id := range ids {
		if _, ok := s.Investments[id]; !ok {
			return id, false
		}
	}
	return 0, true
}

// opsOwner picks the ops member owning the client, else the first by id.
func (e *Engine) opsOwner(s domain.Store, clientID string) (domain.OpsMember, bool) {
	if c, ok := s.Clients[clientID]; ok {
		if o, ok := s.Ops[c.OpsOwnerID]; ok {
			return o, true
		}
	}
	members := s.OpsMembers()
	if len(members) == 0 {
		return domain.OpsMember{}, false
	}
	return members[0], true
}

// mergeChanges folds later changes into earlier ones, keeping the first
// Before and the last After per entity.
func mergeChanges(first, second []domain.Change) []domain.Change {
	type key struct {
		entity domain.EntityType
		id     string
	}
	out := slices.Clone(first)
	idx := make(map[key]int, len(out))
	for i, ch := range out {
		idx[key{ch.Entity, ch.ID}] = i
	}
	for _, ch := range second {
		if i, ok := idx[key{ch.Entity, ch.ID}]; ok {
			out[i].After = ch.After
			continue
		}
		idx[key{ch.Entity, ch.ID}] = len(out)
		out = append(out, ch)
	}
	return out
}
