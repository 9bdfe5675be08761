package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"linkbox/internal/persistence"
	"linkbox/pkg/domain"
)

// SnapshotStore persists whole Store snapshots.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Store, error)
	Save(ctx context.Context, s domain.Store) error
	Reset(ctx context.Context) (domain.Store, error)
}

// ErrNotFound is returned by Service lookups for unknown ids.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

type serviceOptions struct {
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	rules   *domain.RulesEngine
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		rules:   NewDefaultRulesEngine(),
	}
}

// WithClock sets the clock used for audit timestamps and durations.
func WithClock(c Clock) ServiceOption {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) ServiceOption {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(r AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if r != nil {
			o.audit = r
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(r MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if r != nil {
			o.metrics = r
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRulesEngine replaces the default invariant rules.
func WithRulesEngine(r *domain.RulesEngine) ServiceOption {
	return func(o *serviceOptions) {
		if r != nil {
			o.rules = r
		}
	}
}

// Service owns the current snapshot and serializes writers. Every mutation
// computes the next snapshot with the Engine, checks it against the rules,
// publishes it, then saves it.
type Service struct {
	mu        sync.RWMutex
	current   domain.Store
	engine    *Engine
	snapshots SnapshotStore

	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	rules   *domain.RulesEngine
}

// NewService constructs a service. Call Open before use; until then the
// service holds an empty store.
func NewService(engine *Engine, snapshots SnapshotStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if engine == nil {
		engine = NewEngine()
	}
	return &Service{
		current:   domain.NewStore(),
		engine:    engine,
		snapshots: snapshots,
		clock:     cfg.clock,
		logger:    cfg.logger,
		audit:     cfg.audit,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
		rules:     cfg.rules,
	}
}

// Engine returns the engine the service mutates with.
func (s *Service) Engine() *Engine { return s.engine }

// Open loads the persisted snapshot and reconciles investment statuses and
// conversation states before publishing it. An absent or unreadable
// snapshot is replaced by the seed; any other backend failure is returned
// and the service keeps its current store.
func (s *Service) Open(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "open")
	start := s.clock.Now()
	err := s.open(ctx)
	span.End(err)
	s.metrics.Observe(ctx, "open", err == nil, s.clock.Now().Sub(start))
	return err
}

func (s *Service) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshots == nil {
		s.current = s.engine.Seed()
		return nil
	}
	loaded, err := s.snapshots.Load(ctx)
	switch {
	case err == nil:
		next, out := s.engine.Reconcile(loaded)
		s.current = next
		s.logger.Info("snapshot loaded", "processes", len(next.Processes), "conversations", len(next.Convos))
		if len(out.Changes) > 0 {
			s.logger.Warn("snapshot reconciled", "changes", len(out.Changes))
			if saveErr := s.snapshots.Save(ctx, next); saveErr != nil {
				s.logger.Error("save snapshot failed", "operation", "open", "error", saveErr.Error())
			}
		}
		return nil
	case errors.Is(err, persistence.ErrNoSnapshot), errors.Is(err, persistence.ErrCorruptSnapshot):
		s.logger.Warn("seeding store", "reason", err.Error())
	default:
		return fmt.Errorf("load snapshot: %w", err)
	}
	seeded, err := s.snapshots.Reset(ctx)
	if err != nil {
		return fmt.Errorf("seed snapshot: %w", err)
	}
	s.current = seeded.Indexed()
	return nil
}

// Reset replaces the persisted and in-memory store with the seed.
func (s *Service) Reset(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "reset")
	start := s.clock.Now()
	err := s.reset(ctx)
	span.End(err)
	s.metrics.Observe(ctx, "reset", err == nil, s.clock.Now().Sub(start))
	return err
}

func (s *Service) reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshots == nil {
		s.current = s.engine.Seed()
		return nil
	}
	seeded, err := s.snapshots.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	s.current = seeded.Indexed()
	s.logger.Info("store reset")
	return nil
}

// Snapshot returns the current store. The value is immutable and safe to
// read while writers proceed.
func (s *Service) Snapshot() domain.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Verify checks every invariant over the whole current store.
func (s *Service) Verify(ctx context.Context) (domain.Result, error) {
	return s.rules.Evaluate(ctx, s.Snapshot(), nil)
}

// Process returns the process with id.
func (s *Service) Process(id int) (domain.FundProcess, error) {
	p, ok := s.Snapshot().Process(id)
	if !ok {
		return domain.FundProcess{}, ErrNotFound{Entity: domain.EntityProcess, ID: strconv.Itoa(id)}
	}
	return p, nil
}

// Conversation returns the conversation with id.
func (s *Service) Conversation(id string) (domain.Conversation, error) {
	c, ok := s.Snapshot().Conversation(id)
	if !ok {
		return domain.Conversation{}, ErrNotFound{Entity: domain.EntityConversation, ID: id}
	}
	return c, nil
}

// Investment returns the investment with id.
func (s *Service) Investment(id int) (domain.Investment, error) {
	inv, ok := s.Snapshot().Investment(id)
	if !ok {
		return domain.Investment{}, ErrNotFound{Entity: domain.EntityInvestment, ID: strconv.Itoa(id)}
	}
	return inv, nil
}

// CreateProcess runs Engine.CreateProcess against the current store.
func (s *Service) CreateProcess(ctx context.Context, in CreateProcessInput) (Outcome, domain.Result, error) {
	return s.run(ctx, "create_process", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.CreateProcess(st, in)
	})
}

// CreateConversation runs Engine.CreateConversation.
func (s *Service) CreateConversation(ctx context.Context, processID int, in ConversationInput) (Outcome, domain.Result, error) {
	return s.run(ctx, "create_conversation", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.CreateConversation(st, processID, in)
	})
}

// AppendMessage runs Engine.AppendMessage.
func (s *Service) AppendMessage(ctx context.Context, convoID string, msg domain.EmailMsg, opts AppendOptions) (Outcome, domain.Result, error) {
	return s.run(ctx, "append_message", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.AppendMessage(st, convoID, msg, opts)
	})
}

// SendAsOps runs Engine.SendAsOps.
func (s *Service) SendAsOps(ctx context.Context, convoID string, r Reply) (Outcome, domain.Result, error) {
	return s.run(ctx, "send_as_ops", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.SendAsOps(st, convoID, r)
	})
}

// ReplyAsFirm runs Engine.ReplyAsFirm.
func (s *Service) ReplyAsFirm(ctx context.Context, convoID, body string) (Outcome, domain.Result, error) {
	return s.run(ctx, "reply_as_firm", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.ReplyAsFirm(st, convoID, body)
	})
}

// SetInvestmentRefs runs Engine.SetInvestmentRefs.
func (s *Service) SetInvestmentRefs(ctx context.Context, convoID string, refs []int) (Outcome, domain.Result, error) {
	return s.run(ctx, "set_investment_refs", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.SetInvestmentRefs(st, convoID, refs)
	})
}

// EditConversationInvestments runs Engine.EditConversationInvestments.
func (s *Service) EditConversationInvestments(ctx context.Context, convoID string, refs []int) (Outcome, domain.Result, error) {
	return s.run(ctx, "edit_conversation_investments", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.EditConversationInvestments(st, convoID, refs)
	})
}

// SetInvestmentStatus runs Engine.SetInvestmentStatus.
func (s *Service) SetInvestmentStatus(ctx context.Context, investmentID int, status domain.InvestmentStatus) (Outcome, domain.Result, error) {
	return s.run(ctx, "set_investment_status", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.SetInvestmentStatus(st, investmentID, status)
	})
}

// MoveConversations runs Engine.MoveConversations.
func (s *Service) MoveConversations(ctx context.Context, convoIDs []string, fromProcessID, toProcessID int) (Outcome, domain.Result, error) {
	return s.run(ctx, "move_conversations", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.MoveConversations(st, convoIDs, fromProcessID, toProcessID)
	})
}

// AddInvestmentsToProcess runs Engine.AddInvestmentsToProcess.
func (s *Service) AddInvestmentsToProcess(ctx context.Context, processID int, convoID string, ids []int) (Outcome, domain.Result, error) {
	return s.run(ctx, "add_investments", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.AddInvestmentsToProcess(st, processID, convoID, ids)
	})
}

// RemoveInvestmentsFromProcess runs Engine.RemoveInvestmentsFromProcess.
func (s *Service) RemoveInvestmentsFromProcess(ctx context.Context, processID int, ids []int) (Outcome, domain.Result, error) {
	return s.run(ctx, "remove_investments", func(st domain.Store) (domain.Store, Outcome) {
		return s.engine.RemoveInvestmentsFromProcess(st, processID, ids)
	})
}

// run applies mutate under the write lock. Rejections are returned in the
// Outcome with a nil error; blocking rule violations return a
// RuleViolationError and leave the store untouched.
func (s *Service) run(ctx context.Context, op string, mutate func(domain.Store) (domain.Store, Outcome)) (out Outcome, res domain.Result, err error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	defer func() {
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil && !out.Rejected(), s.clock.Now().Sub(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.current
	next, out := mutate(base)
	if out.Rejected() {
		s.logger.Debug("operation rejected", "operation", op, "reason", out.Reason)
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Status:    AuditStatusRejected,
			Reason:    out.Reason,
			Duration:  s.clock.Now().Sub(start),
			Timestamp: s.clock.Now(),
		})
		return out, res, nil
	}
	if len(out.Changes) == 0 {
		return out, res, nil
	}

	res, err = s.rules.Evaluate(ctx, next, out.Changes)
	if err != nil {
		s.logger.Error("rules evaluation failed", "operation", op, "error", err.Error())
		s.recordFailure(ctx, op, err, start)
		return out, res, err
	}
	if res.HasBlocking() {
		err = domain.RuleViolationError{Result: res}
		s.logger.Warn("operation blocked", "operation", op, "error", err.Error())
		s.recordFailure(ctx, op, err, start)
		return out, res, err
	}
	for _, v := range res.Violations {
		s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", string(v.Entity), "id", v.EntityID, "message", v.Message)
	}

	s.current = next
	if s.snapshots != nil {
		if saveErr := s.snapshots.Save(ctx, next); saveErr != nil {
			s.logger.Error("save snapshot failed", "operation", op, "error", saveErr.Error())
		}
	}

	elapsed := s.clock.Now().Sub(start)
	now := s.clock.Now()
	for _, ch := range out.Changes {
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Entity:    ch.Entity,
			Action:    ch.Action,
			EntityID:  ch.ID,
			Status:    AuditStatusSuccess,
			Duration:  elapsed,
			Timestamp: now,
		})
	}
	s.logger.Debug("operation applied", "operation", op, "changes", len(out.Changes))
	return out, res, nil
}

func (s *Service) recordFailure(ctx context.Context, op string, err error, start time.Time) {
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Status:    AuditStatusError,
		Reason:    err.Error(),
		Duration:  s.clock.Now().Sub(start),
		Timestamp: s.clock.Now(),
	})
}
