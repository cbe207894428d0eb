package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(sum float64, t OperationType, y int, m time.Month, d int) Operation {
	return Operation{Sum: sum, UserID: 1, Type: t, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func TestMonthlySeriesMarch(t *testing.T) {
	ops := []Operation{
		op(100, Expense, 2024, time.March, 3),
		op(50, Expense, 2024, time.March, 20),
		op(300, Revenue, 2024, time.March, 25),
	}
	exp, rev := MonthlySeries(ops)
	assert.Equal(t, 150.0, exp[2])
	assert.Equal(t, 300.0, rev[2])

	bal := Balances(exp, rev)
	assert.Equal(t, 150.0, bal[2])
	for i, v := range bal {
		if i != 2 {
			assert.Zero(t, v, "month %d", i+1)
		}
	}
}

func TestMonthlySeriesScenarios(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		exp  float64
		rev  float64
		bal  float64
	}{
		{
			name: "expense and revenue in march",
			ops:  []Operation{op(100, Expense, 2024, time.March, 10), op(500, Revenue, 2024, time.March, 15)},
			exp:  100,
			rev:  500,
			bal:  400,
		},
		{
			name: "expenses only",
			ops:  []Operation{op(40, Expense, 2024, time.March, 1), op(60, Expense, 2024, time.March, 31)},
			exp:  100,
			bal:  -100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, rev := MonthlySeries(tt.ops)
			bal := Balances(exp, rev)
			assert.Equal(t, tt.exp, exp[2])
			assert.Equal(t, tt.rev, rev[2])
			assert.Equal(t, tt.bal, bal[2])
			for i := range bal {
				if i == 2 {
					continue
				}
				assert.Zero(t, exp[i], "expenses month %d", i+1)
				assert.Zero(t, rev[i], "revenues month %d", i+1)
				assert.Zero(t, bal[i], "balances month %d", i+1)
			}
		})
	}
}

func TestMonthlySeriesIgnoresYear(t *testing.T) {
	ops := []Operation{
		op(10, Expense, 2023, time.January, 5),
		op(15, Expense, 2024, time.January, 5),
	}
	exp, _ := MonthlySeries(ops)
	assert.Equal(t, 25.0, exp[0])
}

func TestMonthlySeriesIsAdditive(t *testing.T) {
	a := []Operation{op(10, Expense, 2024, time.May, 1), op(4, Revenue, 2024, time.June, 2)}
	b := []Operation{op(7, Expense, 2024, time.May, 9), op(1, Revenue, 2024, time.December, 31)}

	ea, ra := MonthlySeries(a)
	eb, rb := MonthlySeries(b)
	eab, rab := MonthlySeries(append(append([]Operation{}, a...), b...))
	for i := 0; i < 12; i++ {
		assert.Equal(t, ea[i]+eb[i], eab[i])
		assert.Equal(t, ra[i]+rb[i], rab[i])
	}
}

func TestSingleMonthTotal(t *testing.T) {
	ops := []Operation{
		op(100, Expense, 2024, time.March, 3),
		op(300, Revenue, 2024, time.March, 25),
		op(999, Expense, 2024, time.April, 1),
	}
	e, r := SingleMonthTotal(ops, 3)
	assert.Equal(t, 100.0, e)
	assert.Equal(t, 300.0, r)
	assert.Equal(t, 1099.0, SumByType(ops, Expense))
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange(2024, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", start)
	assert.Equal(t, "2024-02-28", end, "february is always 28 days")

	start, end, err = MonthRange(2024, 12)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", start)
	assert.Equal(t, "2024-12-31", end)

	_, _, err = MonthRange(2024, 13)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, _, err = MonthRange(2024, 0)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestMonthTables(t *testing.T) {
	assert.Equal(t, "March", MonthNames[2])
	assert.Equal(t, 28, DaysInMonth(2))
	assert.Equal(t, 30, DaysInMonth(11))
}
