package core

import "fmt"

// MonthNames holds English month names indexed from January = 0.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// daysInMonth deliberately ignores leap years: February is always 28.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the table length of month (1-12).
func DaysInMonth(month int) int {
	return daysInMonth[month-1]
}

// MonthRange returns the YYYY-MM-DD bounds used to query one month.
func MonthRange(year, month int) (start, end string, err error) {
	if month < 1 || month > 12 {
		return "", "", BadRequestf("month must be between 1 and 12, got %d", month)
	}
	start = fmt.Sprintf("%04d-%02d-01", year, month)
	end = fmt.Sprintf("%04d-%02d-%02d", year, month, DaysInMonth(month))
	return start, end, nil
}

// MonthlySeries buckets sums by calendar month. Years are not
// distinguished: every January lands in index 0.
func MonthlySeries(ops []Operation) (expenses, revenues [12]float64) {
	for _, op := range ops {
		idx := int(op.Date.Month()) - 1
		switch op.Type {
		case Expense:
			expenses[idx] += op.Sum
		case Revenue:
			revenues[idx] += op.Sum
		}
	}
	return expenses, revenues
}

// SingleMonthTotal sums operations that fall in month (1-12). Callers
// normally pass the result of a one-month range query.
func SingleMonthTotal(ops []Operation, month int) (expense, revenue float64) {
	for _, op := range ops {
		if int(op.Date.Month()) != month {
			continue
		}
		switch op.Type {
		case Expense:
			expense += op.Sum
		case Revenue:
			revenue += op.Sum
		}
	}
	return expense, revenue
}

func Balances(expenses, revenues [12]float64) [12]float64 {
	var out [12]float64
	for i := range out {
		out[i] = revenues[i] - expenses[i]
	}
	return out
}

// SumByType totals the operations of type t.
func SumByType(ops []Operation, t OperationType) float64 {
	var total float64
	for _, op := range ops {
		if op.Type == t {
			total += op.Sum
		}
	}
	return total
}
