package memory

import (
	"context"
	"sort"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

// Mirror is an in-process OperationMirror used when no spreadsheet is
// configured and in tests.
type Mirror struct {
	mu     sync.Mutex
	rows   map[int64]core.Operation
	writes int
}

var _ sheets.OperationMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[int64]core.Operation{}}
}

func (m *Mirror) Upsert(_ context.Context, op core.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[op.ID] = op
	m.writes++
	return nil
}

func (m *Mirror) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	m.writes++
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, ops []core.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[int64]core.Operation, len(ops))
	for _, op := range ops {
		m.rows[op.ID] = op
	}
	m.writes++
	return nil
}

// Rows returns the mirrored operations in id order.
func (m *Mirror) Rows() []core.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Operation, 0, len(m.rows))
	for _, op := range m.rows {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Writes counts mutating calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
