// Package core implements the store mutation and derivation engine: pure
// operations turning one Store snapshot into the next, conversation state
// derivation, read-side queries, and the Service that serializes writers.
package core

import (
	"fmt"
	"time"

	"linkbox/pkg/domain"
)

// Outcome reports what an engine operation did. A rejected outcome carries
// a reason and always comes with the input snapshot unchanged.
type Outcome struct {
	Reason  string
	Changes []domain.Change

	// Identifiers allocated by the operation, when it creates entities.
	ProcessID      int
	ClientID       string
	ConversationID string
	MessageID      string
}

// Rejected reports whether the operation was abandoned.
func (o Outcome) Rejected() bool { return o.Reason != "" }

func rejected(format string, args ...any) Outcome {
	return Outcome{Reason: fmt.Sprintf(format, args...)}
}

// Engine applies mutations to Store snapshots. It holds no store state;
// every method takes the current snapshot and returns the next one.
type Engine struct {
	clock          Clock
	ids            IDSource
	strictAffinity bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// EngineClock sets the clock used for activity timestamps.
func EngineClock(c Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// EngineIDs sets the identifier source.
func EngineIDs(ids IDSource) EngineOption {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// StrictClientAffinity makes MoveConversations reject moves between
// processes of different clients.
func StrictClientAffinity(strict bool) EngineOption {
	return func(e *Engine) { e.strictAffinity = strict }
}

// NewEngine constructs an engine using the system clock and random ids
// unless overridden.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{clock: systemClock{}, ids: RandomIDs()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.clock.Now().UTC() }

// finish closes an edit, returning the input snapshot untouched when
// nothing was written.
func finish(base domain.Store, ed *domain.Editor, out Outcome) (domain.Store, Outcome) {
	if !ed.Dirty() {
		return base, out
	}
	next, changes := ed.Done()
	out.Changes = changes
	return next, out
}
