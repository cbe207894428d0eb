package ledger

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
)

type ChartKind string

const (
	KindBar   ChartKind = "bar"
	KindGraph ChartKind = "graph"
)

type Measure string

const (
	MeasureBudget  Measure = "budget"
	MeasureBalance Measure = "balance"
)

const (
	titleBudget  = "Monthly Expenses vs Revenues"
	titleBalance = "Monthly Balance"
	axisMonth    = "Month"
	axisValue    = "Value"
)

// ChartRequest selects a chart. Month is 1-12, or 0 for a yearly chart.
type ChartRequest struct {
	UserID  int64
	Kind    ChartKind
	Measure Measure
	Month   int
}

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is renderer-ready data: one value per label in every series.
type Chart struct {
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title"`
	XLabel string    `json:"xLabel"`
	YLabel string    `json:"yLabel"`
	Labels []string  `json:"labels"`
	Series []Series  `json:"series"`
}

// OperationLister is the read side of the Ledger used for charts.
type OperationLister interface {
	ListForUser(ctx context.Context, userID int64) ([]core.Operation, error)
	ListForUserInRange(ctx context.Context, userID int64, start, end string) ([]core.Operation, error)
}

type Visualizer struct {
	ops OperationLister
	now func() time.Time
}

type VisualizerOption func(*Visualizer)

// WithClock overrides time.Now; single-month charts use the clock's year.
func WithClock(now func() time.Time) VisualizerOption {
	return func(v *Visualizer) { v.now = now }
}

func NewVisualizer(ops OperationLister, opts ...VisualizerOption) *Visualizer {
	v := &Visualizer{ops: ops, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Chart builds the series for req:
//
//	budget  + bar   + month -> that month of the current year
//	budget  + bar           -> expenses and revenues per month
//	budget  + graph         -> same, as a line chart
//	balance + bar|graph     -> revenue minus expense per month
//
// Anything else is a bad request.
func (v *Visualizer) Chart(ctx context.Context, req ChartRequest) (Chart, error) {
	if req.Kind != KindBar && req.Kind != KindGraph {
		return Chart{}, core.BadRequestf("unknown chart kind %q", req.Kind)
	}
	if req.Measure != MeasureBudget && req.Measure != MeasureBalance {
		return Chart{}, core.BadRequestf("unknown measure %q", req.Measure)
	}
	if req.Month != 0 {
		if req.Measure != MeasureBudget || req.Kind != KindBar {
			return Chart{}, core.BadRequestf("a month can only be given for a budget bar chart")
		}
		return v.singleMonth(ctx, req)
	}

	ops, err := v.ops.ListForUser(ctx, req.UserID)
	if err != nil {
		return Chart{}, fmt.Errorf("chart data: %w", err)
	}
	expenses, revenues := core.MonthlySeries(ops)

	chart := Chart{
		Kind:   req.Kind,
		XLabel: axisMonth,
		YLabel: axisValue,
		Labels: append([]string(nil), core.MonthNames[:]...),
	}
	switch req.Measure {
	case MeasureBudget:
		chart.Title = titleBudget
		chart.Series = []Series{
			{Name: "Expenses", Values: expenses[:]},
			{Name: "Revenues", Values: revenues[:]},
		}
	case MeasureBalance:
		balances := core.Balances(expenses, revenues)
		name := "Balance"
		if req.Kind == KindBar {
			name = "Monthly Balance"
		}
		chart.Title = titleBalance
		chart.Series = []Series{{Name: name, Values: balances[:]}}
	}
	return chart, nil
}

func (v *Visualizer) singleMonth(ctx context.Context, req ChartRequest) (Chart, error) {
	start, end, err := core.MonthRange(v.now().Year(), req.Month)
	if err != nil {
		return Chart{}, err
	}
	ops, err := v.ops.ListForUserInRange(ctx, req.UserID, start, end)
	if err != nil {
		return Chart{}, fmt.Errorf("chart data: %w", err)
	}
	expense, revenue := core.SingleMonthTotal(ops, req.Month)

	return Chart{
		Kind:   KindBar,
		Title:  titleBudget,
		XLabel: axisMonth,
		YLabel: axisValue,
		Labels: []string{core.MonthNames[req.Month-1]},
		Series: []Series{
			{Name: "Expenses", Values: []float64{expense}},
			{Name: "Revenues", Values: []float64{revenue}},
		},
	}, nil
}
