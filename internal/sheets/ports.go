package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for the spreadsheet mirror of the ledger.
type (
	// OperationMirror keeps one row per operation.
	OperationMirror interface {
		// Upsert writes op to the row that already holds its id, or to a new row.
		Upsert(ctx context.Context, op core.Operation) error
		// Remove clears the row of id. Removing an absent id is not an error.
		Remove(ctx context.Context, id int64) error
		// ReplaceAll rewrites the mirror from scratch.
		ReplaceAll(ctx context.Context, ops []core.Operation) error
	}
)

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "User", "Date", "Type", "Sum"}
