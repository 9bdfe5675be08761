package domain

import (
	"maps"
	"slices"
	"strconv"
)

// Store is the aggregate root holding the whole object graph. A Store value
// is an immutable snapshot: mutations go through Edit, which clones only the
// buckets it touches and shares everything else with the original.
type Store struct {
	Ops         map[string]OpsMember    `json:"ops"`
	Clients     map[string]Client       `json:"clients"`
	Processes   map[int]FundProcess     `json:"processes"`
	Investments map[int]Investment      `json:"investments"`
	Convos      map[string]Conversation `json:"convos"`
	Rounds      map[string]Round        `json:"rounds"`

	// refs maps investment id to the sorted ids of conversations
	// referencing it. Never mutated once the snapshot is published.
	refs map[int][]string
}

// NewStore returns an empty, indexed store. Callers that fill the buckets
// by writing the maps directly must call Reindex before reading references;
// Edit keeps the index current on its own.
func NewStore() Store {
	return Store{
		Ops:         map[string]OpsMember{},
		Clients:     map[string]Client{},
		Processes:   map[int]FundProcess{},
		Investments: map[int]Investment{},
		Convos:      map[string]Conversation{},
		Rounds:      map[string]Round{},
		refs:        map[int][]string{},
	}
}

// Indexed fills nil buckets and builds the reference index if it is
// missing. Decoded snapshots must pass through Indexed before use.
func (s Store) Indexed() Store {
	if s.Ops == nil {
		s.Ops = map[string]OpsMember{}
	}
	if s.Clients == nil {
		s.Clients = map[string]Client{}
	}
	if s.Processes == nil {
		s.Processes = map[int]FundProcess{}
	}
	if s.Investments == nil {
		s.Investments = map[int]Investment{}
	}
	if s.Convos == nil {
		s.Convos = map[string]Conversation{}
	}
	if s.Rounds == nil {
		s.Rounds = map[string]Round{}
	}
	if s.refs == nil {
		s.refs = buildRefIndex(s.Convos)
	}
	return s
}

// Reindex fills nil buckets and always rebuilds the reference index from
// the conversation bucket. Use it after writing the maps directly.
func (s Store) Reindex() Store {
	s.refs = nil
	return s.Indexed()
}

func buildRefIndex(convos map[string]Conversation) map[int][]string {
	idx := make(map[int][]string)
	for _, id := range slices.Sorted(maps.Keys(convos)) {
		for _, ref := range dedupeInts(convos[id].InvestmentRefs) {
			idx[ref] = append(idx[ref], id)
		}
	}
	return idx
}

// Process looks up a process by id.
func (s Store) Process(id int) (FundProcess, bool) {
	p, ok := s.Processes[id]
	return p, ok
}

// Conversation looks up a conversation by id.
func (s Store) Conversation(id string) (Conversation, bool) {
	c, ok := s.Convos[id]
	return c, ok
}

// Investment looks up an investment by id.
func (s Store) Investment(id int) (Investment, bool) {
	inv, ok := s.Investments[id]
	return inv, ok
}

// Client looks up a client by id.
func (s Store) Client(id string) (Client, bool) {
	c, ok := s.Clients[id]
	return c, ok
}

// ReferencingConversations returns the ids of conversations whose
// investment refs contain invID, sorted ascending.
func (s Store) ReferencingConversations(invID int) []string {
	if s.refs != nil {
		return slices.Clone(s.refs[invID])
	}
	var out []string
	for id, c := range s.Convos {
		if c.References(invID) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// IsReferenced reports whether any conversation references invID.
func (s Store) IsReferenced(invID int) bool {
	if s.refs != nil {
		return len(s.refs[invID]) > 0
	}
	for _, c := range s.Convos {
		if c.References(invID) {
			return true
		}
	}
	return false
}

// ProcessIDs returns process ids in ascending order.
func (s Store) ProcessIDs() []int { return slices.Sorted(maps.Keys(s.Processes)) }

// InvestmentIDs returns investment ids in ascending order.
func (s Store) InvestmentIDs() []int { return slices.Sorted(maps.Keys(s.Investments)) }

// ConversationIDs returns conversation ids in ascending order.
func (s Store) ConversationIDs() []string { return slices.Sorted(maps.Keys(s.Convos)) }

// OpsMembers returns ops members ordered by id.
func (s Store) OpsMembers() []OpsMember {
	out := make([]OpsMember, 0, len(s.Ops))
	for _, id := range slices.Sorted(maps.Keys(s.Ops)) {
		out = append(out, s.Ops[id])
	}
	return out
}

// Clone returns a deep copy of the process.
func (p FundProcess) Clone() FundProcess {
	cp := p
	cp.ConvoIDs = slices.Clone(p.ConvoIDs)
	cp.RoundIDs = slices.Clone(p.RoundIDs)
	return cp
}

// Clone returns a deep copy of the conversation. Messages are values whose
// recipient slices are never mutated, so the message slice is copied shallowly.
func (c Conversation) Clone() Conversation {
	cp := c
	cp.Participants = slices.Clone(c.Participants)
	cp.InvestmentRefs = slices.Clone(c.InvestmentRefs)
	cp.Messages = slices.Clone(c.Messages)
	return cp
}

type changeKey struct {
	entity EntityType
	id     string
}

// Editor accumulates entity writes against a base snapshot. Each bucket is
// cloned on its first write; untouched buckets stay shared with the base.
// Values passed to Put* may share slices with the base snapshot only when
// those slices are left unmodified.
type Editor struct {
	next       Store
	copied     map[EntityType]bool
	refsCopied bool
	changes    []Change
	changeIdx  map[changeKey]int
}

// Edit starts a copy-on-write edit of s. s itself is never modified.
func (s Store) Edit() *Editor {
	return &Editor{
		next:      s.Indexed(),
		copied:    make(map[EntityType]bool),
		changeIdx: make(map[changeKey]int),
	}
}

// View returns the in-progress snapshot including writes made so far.
func (e *Editor) View() Store { return e.next }

// Changes returns the recorded changes, one per touched entity.
func (e *Editor) Changes() []Change { return slices.Clone(e.changes) }

// Dirty reports whether any entity was written.
func (e *Editor) Dirty() bool { return len(e.changes) > 0 }

// Done returns the edited snapshot and the recorded changes.
func (e *Editor) Done() (Store, []Change) { return e.next, e.Changes() }

func (e *Editor) record(entity EntityType, id string, before, after any, existed bool) {
	key := changeKey{entity: entity, id: id}
	if i, ok := e.changeIdx[key]; ok {
		e.changes[i].After = after
		return
	}
	ch := Change{Entity: entity, Action: ActionCreate, ID: id, After: after}
	if existed {
		ch.Action = ActionUpdate
		ch.Before = before
	}
	e.changeIdx[key] = len(e.changes)
	e.changes = append(e.changes, ch)
}

func (e *Editor) own(entity EntityType) bool {
	if e.copied[entity] {
		return false
	}
	e.copied[entity] = true
	return true
}

// PutOpsMember writes an ops member.
func (e *Editor) PutOpsMember(o OpsMember) {
	if e.own(EntityOpsMember) {
		e.next.Ops = maps.Clone(e.next.Ops)
	}
	before, existed := e.next.Ops[o.ID]
	e.next.Ops[o.ID] = o
	e.record(EntityOpsMember, o.ID, before, o, existed)
}

// PutClient writes a client.
func (e *Editor) PutClient(c Client) {
	if e.own(EntityClient) {
		e.next.Clients = maps.Clone(e.next.Clients)
	}
	before, existed := e.next.Clients[c.ID]
	e.next.Clients[c.ID] = c
	e.record(EntityClient, c.ID, before, c, existed)
}

// PutProcess writes a process.
func (e *Editor) PutProcess(p FundProcess) {
	if e.own(EntityProcess) {
		e.next.Processes = maps.Clone(e.next.Processes)
	}
	before, existed := e.next.Processes[p.ID]
	e.next.Processes[p.ID] = p
	e.record(EntityProcess, strconv.Itoa(p.ID), before, p, existed)
}

// PutInvestment writes an investment.
func (e *Editor) PutInvestment(inv Investment) {
	if e.own(EntityInvestment) {
		e.next.Investments = maps.Clone(e.next.Investments)
	}
	before, existed := e.next.Investments[inv.ID]
	e.next.Investments[inv.ID] = inv
	e.record(EntityInvestment, strconv.Itoa(inv.ID), before, inv, existed)
}

// PutRound writes a round.
func (e *Editor) PutRound(r Round) {
	if e.own(EntityRound) {
		e.next.Rounds = maps.Clone(e.next.Rounds)
	}
	before, existed := e.next.Rounds[r.ID]
	e.next.Rounds[r.ID] = r
	e.record(EntityRound, r.ID, before, r, existed)
}

// PutConversation writes a conversation and updates the reference index
// for any refs it gained or lost.
func (e *Editor) PutConversation(c Conversation) {
	if e.own(EntityConversation) {
		e.next.Convos = maps.Clone(e.next.Convos)
	}
	before, existed := e.next.Convos[c.ID]
	var oldRefs []int
	if existed {
		oldRefs = before.InvestmentRefs
	}
	e.reindex(c.ID, oldRefs, c.InvestmentRefs)
	e.next.Convos[c.ID] = c
	e.record(EntityConversation, c.ID, before, c, existed)
}

func (e *Editor) reindex(convoID string, oldRefs, newRefs []int) {
	removed, added := diffInts(oldRefs, newRefs)
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	if !e.refsCopied {
		e.next.refs = maps.Clone(e.next.refs)
		e.refsCopied = true
	}
	for _, id := range removed {
		ids := slices.DeleteFunc(slices.Clone(e.next.refs[id]), func(s string) bool { return s == convoID })
		if len(ids) == 0 {
			delete(e.next.refs, id)
			continue
		}
		e.next.refs[id] = ids
	}
	for _, id := range added {
		ids := slices.Clone(e.next.refs[id])
		if pos, found := slices.BinarySearch(ids, convoID); !found {
			ids = slices.Insert(ids, pos, convoID)
		}
		e.next.refs[id] = ids
	}
}

// diffInts returns the distinct values only in a (removed) and only in b
// (added).
func diffInts(a, b []int) (removed, added []int) {
	inA := make(map[int]struct{}, len(a))
	for _, v := range a {
		inA[v] = struct{}{}
	}
	inB := make(map[int]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	for _, v := range dedupeInts(a) {
		if _, ok := inB[v]; !ok {
			removed = append(removed, v)
		}
	}
	for _, v := range dedupeInts(b) {
		if _, ok := inA[v]; !ok {
			added = append(added, v)
		}
	}
	return removed, added
}

// dedupeInts drops repeated values keeping first occurrence order.
func dedupeInts(in []int) []int {
	if len(in) < 2 {
		return in
	}
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DedupeRefs returns refs without duplicates, first occurrence order kept.
// The result never aliases the input.
func DedupeRefs(refs []int) []int {
	return slices.Clone(dedupeInts(refs))
}
