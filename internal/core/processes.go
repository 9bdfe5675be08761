package core

import (
	"slices"
	"strings"

	"linkbox/pkg/domain"
)

// CreateProcessInput is the new process flow payload.
type CreateProcessInput struct {
	FundName      string
	ClientName    string
	Email         EmailInput
	InvestmentIDs []int
}

// CreateProcess allocates a client, a process and its first conversation.
// Selected investments become in_progress.
func (e *Engine) CreateProcess(s domain.Store, in CreateProcessInput) (domain.Store, Outcome) {
	fund := strings.TrimSpace(in.FundName)
	clientName := strings.TrimSpace(in.ClientName)
	email := trimEmail(in.Email)
	if reason := checkRequest(processRequest{FundName: fund, ClientName: clientName, To: email.To, Body: email.Body}); reason != "" {
		return s, rejected("%s", reason)
	}
	ids := domain.DedupeRefs(in.InvestmentIDs)
	if missing, ok := firstMissingInvestment(s, ids); !ok {
		return s, rejected("investment %d not found", missing)
	}
	members := s.OpsMembers()
	if len(members) == 0 {
		return s, rejected("no ops member available")
	}
	owner := members[0]

	now := e.now()
	ed := s.Edit()
	client := domain.Client{ID: nextClientID(s), Name: clientName, OpsOwnerID: owner.ID}
	ed.PutClient(client)

	pid := nextProcessID(s)
	convo, msg := e.newConversation(s, pid, owner, email, ids, now)
	for _, id := range ids {
		inv := ed.View().Investments[id]
		inv.Status = domain.StatusInProgress
		inv.LastActivityAt = now
		ed.PutInvestment(inv)
	}
	ed.PutConversation(convo)
	// Other conversations sharing the selection may need to reopen.
	var affected []string
	for _, id := range ids {
		affected = append(affected, ed.View().ReferencingConversations(id)...)
	}
	rederive(ed, dedupeStrings(affected))

	ed.PutProcess(domain.FundProcess{
		ID:             pid,
		FundName:       fund,
		ClientID:       client.ID,
		ConvoIDs:       []string{convo.ID},
		RoundIDs:       []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	})
	return finish(s, ed, Outcome{ProcessID: pid, ClientID: client.ID, ConversationID: convo.ID, MessageID: msg.ID})
}

// MoveConversations reassigns conversations from one process to another.
// Investments follow implicitly through the moved refs. Either every named
// conversation moves or none does.
func (e *Engine) MoveConversations(s domain.Store, convoIDs []string, fromProcessID, toProcessID int) (domain.Store, Outcome) {
	ids := dedupeStrings(convoIDs)
	if len(ids) == 0 {
		return s, rejected("no conversations selected")
	}
	if fromProcessID == toProcessID {
		return s, rejected("source and target process are the same")
	}
	src, ok := s.Processes[fromProcessID]
	if !ok {
		return s, rejected("process %d not found", fromProcessID)
	}
	dst, ok := s.Processes[toProcessID]
	if !ok {
		return s, rejected("process %d not found", toProcessID)
	}
	if e.strictAffinity && src.ClientID != dst.ClientID {
		return s, rejected("process %d belongs to a different client than process %d", toProcessID, fromProcessID)
	}
	for _, id := range ids {
		c, ok := s.Convos[id]
		if !ok {
			return s, rejected("conversation %s not found", id)
		}
		if c.ProcessID != fromProcessID || !src.HasConversation(id) {
			return s, rejected("conversation %s is not part of process %d", id, fromProcessID)
		}
	}

	ed := s.Edit()
	for _, id := range ids {
		c := s.Convos[id]
		c.ProcessID = toProcessID
		ed.PutConversation(c)
	}
	src = src.Clone()
	src.ConvoIDs = slices.DeleteFunc(src.ConvoIDs, func(id string) bool { return slices.Contains(ids, id) })
	ed.PutProcess(src)

	dst = dst.Clone()
	for _, id := range ids {
		if !dst.HasConversation(id) {
			dst.ConvoIDs = append(dst.ConvoIDs, id)
		}
	}
	dst.LastActivityAt = e.now()
	ed.PutProcess(dst)
	return finish(s, ed, Outcome{ProcessID: toProcessID})
}
