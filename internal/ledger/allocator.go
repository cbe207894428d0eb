package ledger

import (
	"context"
	"fmt"
)

// BaselineID is the first id handed out for an empty collection.
const BaselineID int64 = 1

// IDSource reports the highest id currently stored in a collection.
type IDSource interface {
	MaxID(ctx context.Context) (id int64, ok bool, err error)
}

// MaxIDFunc adapts a store method to IDSource.
type MaxIDFunc func(ctx context.Context) (int64, bool, error)

func (f MaxIDFunc) MaxID(ctx context.Context) (int64, bool, error) {
	return f(ctx)
}

// Allocator assigns max+1 ids. It holds no state of its own, so two
// concurrent callers can observe the same max; callers serialize
// allocate-then-insert per collection.
type Allocator struct {
	Baseline int64
}

func NewAllocator() *Allocator {
	return &Allocator{Baseline: BaselineID}
}

func (a *Allocator) Next(ctx context.Context, src IDSource) (int64, error) {
	hi, ok, err := src.MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	if !ok {
		return a.Baseline, nil
	}
	return hi + 1, nil
}
