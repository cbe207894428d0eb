package store

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Ports for the persistence adapters. Writes that target a record by id
// report how many records they touched so callers can tell a miss from
// a success.
type (
	UserStore interface {
		InsertUser(ctx context.Context, u core.User) error
		FindUser(ctx context.Context, id int64) (core.User, bool, error)
		// FindUserByCredentials matches username and password exactly.
		FindUserByCredentials(ctx context.Context, username, password string) (core.User, bool, error)
		UpdateUser(ctx context.Context, u core.User) (affected int64, err error)
		MaxUserID(ctx context.Context) (id int64, ok bool, err error)
	}

	OperationStore interface {
		InsertOperation(ctx context.Context, op core.Operation) error
		FindOperation(ctx context.Context, id int64) (core.Operation, bool, error)
		FindOperations(ctx context.Context, f OperationFilter) ([]core.Operation, error)
		UpdateOperation(ctx context.Context, op core.Operation) (affected int64, err error)
		DeleteOperation(ctx context.Context, id int64) (affected int64, err error)
		MaxOperationID(ctx context.Context) (id int64, ok bool, err error)
	}

	// Store is satisfied by every backend.
	Store interface {
		UserStore
		OperationStore
	}
)

// OperationFilter selects operations. A zero UserID matches every user;
// zero From/To leave that side of the date range open. Bounds are
// inclusive.
type OperationFilter struct {
	UserID int64
	From   time.Time
	To     time.Time
}

// Match reports whether op passes the filter.
func (f OperationFilter) Match(op core.Operation) bool {
	if f.UserID != 0 && op.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && op.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && op.Date.After(f.To) {
		return false
	}
	return true
}
