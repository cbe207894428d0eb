package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// operationRow renders op in Header column order.
func operationRow(op core.Operation) []any {
	return []any{op.ID, op.UserID, op.Date.UTC().Format(time.RFC3339), op.Type.String(), op.Sum}
}

// sheetValues renders the header followed by one row per operation.
func sheetValues(ops []core.Operation) [][]any {
	values := make([][]any, 0, len(ops)+1)
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, op := range ops {
		values = append(values, operationRow(op))
	}
	return values
}

// indexRows maps operation ids found in column A onto their 1-based row.
// Non-numeric cells (the header, blanks) are skipped.
func indexRows(values [][]any) map[int64]int {
	index := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, ok := parseID(row[0])
		if !ok {
			continue
		}
		index[id] = i + 1
	}
	return index
}

func parseID(v any) (int64, bool) {
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
