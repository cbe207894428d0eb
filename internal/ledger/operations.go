package ledger

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// EventPublisher receives committed operation changes.
type EventPublisher interface {
	PublishOperationEvent(ctx context.Context, ev core.OperationEvent) error
}

// Ledger manages operations for registered users.
type Ledger struct {
	ops       store.OperationStore
	users     UserResolver
	ids       *Allocator
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger

	// serializes allocate+insert
	mu sync.Mutex
}

type Option func(*Ledger)

// WithPublisher announces every successful write to p.
func WithPublisher(p EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(ops store.OperationStore, users UserResolver, opts ...Option) *Ledger {
	l := &Ledger{
		ops:   ops,
		users: users,
		ids:   NewAllocator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.New(log.DefaultConfig())
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)
	l.events = log.NewStructuredLogger(l.logger)
	return l
}

// validate checks the value invariants and that the owning user exists
// right now.
func (l *Ledger) validate(ctx context.Context, op core.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	_, ok, err := l.users.Resolve(ctx, op.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %d: %w", op.UserID, err)
	}
	if !ok {
		return &core.ValidationError{Field: "user", Rule: "does not exist"}
	}
	return nil
}

// Add validates the candidate and stores it under a fresh id. Any id on
// the candidate is ignored.
func (l *Ledger) Add(ctx context.Context, candidate core.Operation) (core.Operation, error) {
	if err := l.validate(ctx, candidate); err != nil {
		return core.Operation{}, err
	}

	op, err := l.insert(ctx, candidate)
	if err != nil {
		l.events.LogError(ctx, "Failed to add operation", err, log.OpCreate, log.NewFields().WithUser(candidate.UserID))
		return core.Operation{}, err
	}

	stored, ok, err := l.ops.FindOperation(ctx, op.ID)
	if err != nil {
		return core.Operation{}, fmt.Errorf("confirm operation %d: %w", op.ID, err)
	}
	if !ok {
		return core.Operation{}, fmt.Errorf("confirm operation %d: %w", op.ID, core.ErrWriteNotConfirmed)
	}

	l.events.LogOperationWrite(ctx, log.OpCreate, stored.ID, stored.UserID, stored.Type.String(), stored.Sum)
	l.publish(ctx, core.ActionCreated, stored.ID, stored.UserID)
	return stored, nil
}

func (l *Ledger) insert(ctx context.Context, candidate core.Operation) (core.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.ids.Next(ctx, MaxIDFunc(l.ops.MaxOperationID))
	if err != nil {
		return core.Operation{}, err
	}
	op := candidate
	op.ID = id
	if err := l.ops.InsertOperation(ctx, op); err != nil {
		return core.Operation{}, fmt.Errorf("store operation: %w", err)
	}
	return op, nil
}

// Get returns the operation with id. A missing operation is not an error.
func (l *Ledger) Get(ctx context.Context, id int64) (core.Operation, bool, error) {
	op, ok, err := l.ops.FindOperation(ctx, id)
	if err != nil {
		return core.Operation{}, false, fmt.Errorf("get operation %d: %w", id, err)
	}
	return op, ok, nil
}

// ListForUser returns every operation of userID in id order.
func (l *Ledger) ListForUser(ctx context.Context, userID int64) ([]core.Operation, error) {
	if userID <= 0 {
		return nil, nil
	}
	ops, err := l.ops.FindOperations(ctx, store.OperationFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list operations of user %d: %w", userID, err)
	}
	return ops, nil
}

// ListForUserInRange returns the operations of userID dated between
// midnight UTC of start and midnight UTC of end, both inclusive. Dates
// are YYYY-MM-DD.
func (l *Ledger) ListForUserInRange(ctx context.Context, userID int64, start, end string) ([]core.Operation, error) {
	from, err := core.ParseDay(start)
	if err != nil {
		return nil, err
	}
	to, err := core.ParseDay(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, core.BadRequestf("start %s is after end %s", start, end)
	}
	if userID <= 0 {
		return nil, nil
	}

	ops, err := l.ops.FindOperations(ctx, store.OperationFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list operations of user %d in range: %w", userID, err)
	}
	return ops, nil
}

// Update replaces the operation stored under id. The id of the candidate
// is ignored.
func (l *Ledger) Update(ctx context.Context, id int64, candidate core.Operation) (core.Operation, error) {
	if err := l.validate(ctx, candidate); err != nil {
		return core.Operation{}, err
	}

	op := candidate
	op.ID = id
	n, err := l.ops.UpdateOperation(ctx, op)
	if err != nil {
		l.events.LogError(ctx, "Failed to update operation", err, log.OpUpdate,
			log.NewFields().WithLedgerOperation(id, op.UserID, op.Type.String(), op.Sum))
		return core.Operation{}, fmt.Errorf("update operation %d: %w", id, err)
	}
	if n == 0 {
		return core.Operation{}, core.ErrOperationNotFound
	}

	stored, ok, err := l.ops.FindOperation(ctx, id)
	if err != nil {
		return core.Operation{}, fmt.Errorf("confirm operation %d: %w", id, err)
	}
	if !ok {
		return core.Operation{}, core.ErrWriteNotConfirmed
	}

	l.events.LogOperationWrite(ctx, log.OpUpdate, stored.ID, stored.UserID, stored.Type.String(), stored.Sum)
	l.publish(ctx, core.ActionUpdated, stored.ID, stored.UserID)
	return stored, nil
}

// Delete removes the operation with id permanently.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	prev, found, err := l.ops.FindOperation(ctx, id)
	if err != nil {
		return fmt.Errorf("delete operation %d: %w", id, err)
	}

	n, err := l.ops.DeleteOperation(ctx, id)
	if err != nil {
		l.events.LogError(ctx, "Failed to delete operation", err, log.OpDelete, log.LogFields{log.FieldOperationID: id})
		return fmt.Errorf("delete operation %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrOperationNotFound
	}

	var userID int64
	if found {
		userID = prev.UserID
	}
	l.events.LogOperationWrite(ctx, log.OpDelete, id, userID, prev.Type.String(), prev.Sum)
	l.publish(ctx, core.ActionDeleted, id, userID)
	return nil
}

// publish never fails the write; the store is the source of truth.
func (l *Ledger) publish(ctx context.Context, action core.EventAction, id, userID int64) {
	if l.publisher == nil {
		return
	}
	ev := core.OperationEvent{Action: action, OperationID: id, UserID: userID}
	if err := l.publisher.PublishOperationEvent(ctx, ev); err != nil {
		l.logger.WarnContext(ctx, "Failed to publish operation event",
			log.FieldError, err,
			log.FieldEventAction, string(action),
			log.FieldOperationID, id)
	}
}
