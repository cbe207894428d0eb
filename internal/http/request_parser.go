// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

const maxBodyBytes = 1 << 20

// pathInt64 parses the named path wildcard as a decimal integer.
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.BadRequestf("invalid %s %q", name, raw)
	}
	return v, nil
}

// decodeJSON reads one JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var ve *core.ValidationError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &ve):
			return err
		case errors.Is(err, io.EOF):
			return core.BadRequestf("request body is empty")
		case errors.As(err, &maxErr):
			return core.BadRequestf("request body larger than %d bytes", maxErr.Limit)
		default:
			return core.BadRequestf("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return core.BadRequestf("request body must contain a single JSON object")
	}
	return nil
}

// operationPayload is the wire form of a candidate operation. Every field
// is required; an id, when present, is ignored.
type operationPayload struct {
	ID     *int64   `json:"id,omitempty"`
	Sum    *float64 `json:"sum"`
	UserID *int64   `json:"userId"`
	Type   *string  `json:"type"`
	Date   *string  `json:"date"`
}

// Operation converts the payload into a candidate for the ledger.
func (p operationPayload) Operation() (core.Operation, error) {
	switch {
	case p.Sum == nil:
		return core.Operation{}, &core.ValidationError{Field: "sum", Rule: "is required"}
	case p.UserID == nil:
		return core.Operation{}, &core.ValidationError{Field: "userId", Rule: "is required"}
	case p.Type == nil:
		return core.Operation{}, &core.ValidationError{Field: "type", Rule: "is required"}
	case p.Date == nil:
		return core.Operation{}, &core.ValidationError{Field: "date", Rule: "is required"}
	}

	opType, err := core.ParseOperationType(*p.Type)
	if err != nil {
		return core.Operation{}, err
	}
	date, err := parseOperationDate(*p.Date)
	if err != nil {
		return core.Operation{}, err
	}
	return core.Operation{Sum: *p.Sum, UserID: *p.UserID, Type: opType, Date: date}, nil
}

// parseOperationDate accepts RFC 3339 timestamps or a bare YYYY-MM-DD day,
// which is read as midnight UTC.
func parseOperationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(core.DayLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, &core.ValidationError{Field: "date", Rule: "must be RFC 3339 or YYYY-MM-DD"}
}

// parseChartQuery reads measure and month for /visualization/{kind}/{userID}.
// measure defaults to budget, month to 0 (whole year).
func parseChartQuery(r *http.Request) (ledger.ChartRequest, error) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		return ledger.ChartRequest{}, err
	}
	req := ledger.ChartRequest{
		UserID:  userID,
		Kind:    ledger.ChartKind(strings.ToLower(r.PathValue("kind"))),
		Measure: ledger.MeasureBudget,
	}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("measure")); v != "" {
		req.Measure = ledger.Measure(strings.ToLower(v))
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return ledger.ChartRequest{}, core.BadRequestf("invalid month %q", v)
		}
		req.Month = m
	}
	return req, nil
}
