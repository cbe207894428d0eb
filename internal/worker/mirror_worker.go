package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// OperationSource is the read side of the operation store.
type OperationSource interface {
	FindOperation(ctx context.Context, id int64) (core.Operation, bool, error)
	FindOperations(ctx context.Context, f store.OperationFilter) ([]core.Operation, error)
}

// EventSource delivers operation events until ctx is done.
type EventSource interface {
	ConsumeOperationEvents(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker keeps a spreadsheet copy of every operation. Events drive
// incremental updates; a periodic full rewrite repairs anything missed.
type MirrorWorker struct {
	ops            OperationSource
	mirror         sheets.OperationMirror
	logger         *log.Logger
	resyncInterval time.Duration
}

func NewMirrorWorker(ops OperationSource, mirror sheets.OperationMirror, logger *log.Logger, resyncInterval time.Duration) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		ops:            ops,
		mirror:         mirror,
		logger:         logger.WithComponent(log.ComponentWorker),
		resyncInterval: resyncInterval,
	}
}

// HandleMessage applies one event. The operation is re-read so the row
// reflects the store, not the event.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.OperationMessage) error {
	w.logger.DebugContext(ctx, "Processing operation event",
		log.FieldEventAction, string(msg.Action),
		log.FieldOperationID, msg.OperationID)

	if msg.Action == core.ActionDeleted {
		if err := w.mirror.Remove(ctx, msg.OperationID); err != nil {
			return fmt.Errorf("remove row of operation %d: %w", msg.OperationID, err)
		}
		return nil
	}

	op, ok, err := w.ops.FindOperation(ctx, msg.OperationID)
	if err != nil {
		return fmt.Errorf("get operation %d: %w", msg.OperationID, err)
	}
	if !ok {
		// deleted after the event was published
		w.logger.InfoContext(ctx, "Operation gone before mirroring, removing row", log.FieldOperationID, msg.OperationID)
		if err := w.mirror.Remove(ctx, msg.OperationID); err != nil {
			return fmt.Errorf("remove row of operation %d: %w", msg.OperationID, err)
		}
		return nil
	}

	if err := w.mirror.Upsert(ctx, op); err != nil {
		return fmt.Errorf("mirror operation %d: %w", op.ID, err)
	}
	w.logger.InfoContext(ctx, "Operation mirrored",
		log.FieldOperationID, op.ID,
		log.FieldUserID, op.UserID,
		log.FieldEventAction, string(msg.Action))
	return nil
}

// Resync rewrites the mirror from the store.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	ops, err := w.ops.FindOperations(ctx, store.OperationFilter{})
	if err != nil {
		return fmt.Errorf("list operations: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, ops); err != nil {
		return fmt.Errorf("rewrite mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirror resynced", "count", len(ops), log.FieldOperation, log.OpSync)
	return nil
}

// Run resyncs once, then consumes events and resyncs periodically until
// ctx is cancelled or either loop fails. events may be nil.
func (w *MirrorWorker) Run(ctx context.Context, events EventSource) error {
	if err := w.Resync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup resync failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.ConsumeOperationEvents(ctx, w.HandleMessage)
		})
	}
	if w.resyncInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.resyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := w.Resync(ctx); err != nil {
						w.logger.ErrorContext(ctx, "Periodic resync failed", log.FieldError, err)
					}
				}
			}
		})
	}
	return g.Wait()
}
