package internal

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecurringStatus says whether a recurring payment is still being charged
type RecurringStatus string

const (
	StatusActive  RecurringStatus = "active"
	StatusStopped RecurringStatus = "stopped"
)

// DefaultTolerance is the largest relative change allowed between consecutive charges
const DefaultTolerance = 0.35

// statusGraceDays is how long after the expected day a charge may arrive late
const statusGraceDays = 5

// Recurring is a payee charged once a month at a roughly constant amount
type Recurring struct {
	Payee        string
	Category     string
	AvgAmount    decimal.Decimal // negative, like the charges
	LatestAmount decimal.Decimal
	MinAmount    decimal.Decimal // absolute
	MaxAmount    decimal.Decimal // absolute
	Transactions []Transaction   // oldest first
	FirstDate    Date
	LastDate     Date
	TypicalDay   int
	Status       RecurringStatus
}

// payee groups charges: the merchant when the API gave one, else the description
func payee(tx Transaction) string {
	if tx.Merchant != "" {
		return tx.Merchant
	}
	return tx.Description
}

// DetectRecurring finds monthly charges in txs. Amount and monthly-pattern
// checks use complete calendar months only; the month of end counts only for
// the status and the latest amount. end is the last date the data covers.
func DetectRecurring(txs []Transaction, end Date, tolerance float64, cfg *Config) []Recurring {
	months := CompleteMonths(txs, end)

	type group struct {
		name     string
		all      []Transaction
		complete []Transaction
	}
	groups := make(map[string]*group)
	for _, tx := range Expenses(txs) {
		key := strings.ToLower(payee(tx))
		g := groups[key]
		if g == nil {
			g = &group{}
			groups[key] = g
		}
		g.all = append(g.all, tx)
		if months[monthKey(tx.Date)] {
			g.complete = append(g.complete, tx)
		}
	}

	var result []Recurring
	for _, g := range groups {
		if len(g.complete) < 2 {
			continue
		}
		sortByDate(g.all)
		sortByDate(g.complete)
		// any month with two charges rules the payee out, current month included
		if !IsMonthlyPattern(g.all) || !AmountsWithinTolerance(g.complete, tolerance) {
			continue
		}

		latest := g.all[len(g.all)-1]
		minAmt, maxAmt := AmountRange(g.complete)
		typical := TypicalDay(g.complete)
		result = append(result, Recurring{
			Payee:        payee(latest),
			Category:     cfg.Categorize(latest),
			AvgAmount:    AverageAmount(g.complete),
			LatestAmount: latest.Amount,
			MinAmount:    minAmt,
			MaxAmount:    maxAmt,
			Transactions: g.all,
			FirstDate:    DateOf(g.all[0].Date),
			LastDate:     DateOf(latest.Date),
			TypicalDay:   typical,
			Status:       RecurringStatusAt(DateOf(latest.Date), typical, end),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Status != result[j].Status {
			return result[i].Status == StatusActive
		}
		ai, aj := result[i].AvgAmount.Abs(), result[j].AvgAmount.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return result[i].Payee < result[j].Payee
	})
	return result
}

// Expenses returns the transactions with negative amounts, skipping pending ones
func Expenses(txs []Transaction) []Transaction {
	var result []Transaction
	for _, tx := range txs {
		if tx.Amount.IsNegative() && !tx.Pending {
			result = append(result, tx)
		}
	}
	return result
}

// IsMonthlyPattern reports whether no calendar month holds more than one charge
func IsMonthlyPattern(txs []Transaction) bool {
	seen := make(map[string]bool)
	for _, tx := range txs {
		key := monthKey(tx.Date)
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}

// AmountsWithinTolerance compares each charge with the one before it, so that
// slow drift (currency moves, yearly price bumps) is accepted
func AmountsWithinTolerance(txs []Transaction, tolerance float64) bool {
	if len(txs) < 2 {
		return len(txs) == 1
	}
	limit := decimal.NewFromFloat(tolerance)
	for i := 1; i < len(txs); i++ {
		prev := txs[i-1].Amount.Abs()
		curr := txs[i].Amount.Abs()
		if prev.IsZero() {
			return false
		}
		if curr.Sub(prev).Abs().Div(prev).GreaterThan(limit) {
			return false
		}
	}
	return true
}

// AverageAmount returns the mean signed amount, rounded to cents
func AverageAmount(txs []Transaction) decimal.Decimal {
	if len(txs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(txs)))).Round(2)
}

// AmountRange returns the smallest and largest absolute amounts
func AmountRange(txs []Transaction) (lo, hi decimal.Decimal) {
	if len(txs) == 0 {
		return decimal.Zero, decimal.Zero
	}
	lo, hi = txs[0].Amount.Abs(), txs[0].Amount.Abs()
	for _, tx := range txs[1:] {
		a := tx.Amount.Abs()
		if a.LessThan(lo) {
			lo = a
		}
		if a.GreaterThan(hi) {
			hi = a
		}
	}
	return lo, hi
}

// TypicalDay returns the mean day of month of the charges
func TypicalDay(txs []Transaction) int {
	if len(txs) == 0 {
		return 0
	}
	sum := 0
	for _, tx := range txs {
		sum += tx.Date.Day()
	}
	return sum / len(txs)
}

// RecurringStatusAt decides whether a payee last charged on last is still
// active on end. A charge in end's month, or one last month with end not yet
// past the expected day plus a grace period, counts as active.
func RecurringStatusAt(last Date, typicalDay int, end Date) RecurringStatus {
	lt, et := last.Time(), end.Time()
	monthsDiff := (et.Year()-lt.Year())*12 + int(et.Month()-lt.Month())
	switch {
	case monthsDiff <= 0:
		return StatusActive
	case monthsDiff > 1:
		return StatusStopped
	}

	day := typicalDay
	if lastDay := time.Date(et.Year(), et.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day(); day > lastDay {
		day = lastDay
	}
	expected := NewDate(et.Year(), et.Month(), day)
	if end.After(expected.AddDays(statusGraceDays)) {
		return StatusStopped
	}
	return StatusActive
}

// CompleteMonths returns the "YYYY-MM" keys of months fully covered by data
// ending at end: every month from the earliest transaction up to end's month,
// the latter only when end is its last day.
func CompleteMonths(txs []Transaction, end Date) map[string]bool {
	months := make(map[string]bool)
	if len(txs) == 0 || end.IsZero() {
		return months
	}

	first := txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(first) {
			first = tx.Date
		}
	}

	et := end.Time()
	endMonth := time.Date(et.Year(), et.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC); m.Before(endMonth); m = m.AddDate(0, 1, 0) {
		months[m.Format("2006-01")] = true
	}
	if end.AddDays(1).Time().Month() != et.Month() {
		months[endMonth.Format("2006-01")] = true
	}
	return months
}

// MonthlyTotal sums the latest charge of every active payee as a positive amount
func MonthlyTotal(recurring []Recurring) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recurring {
		if r.Status == StatusActive {
			total = total.Add(r.LatestAmount.Abs())
		}
	}
	return total
}

// FilterRecurring keeps payees with the given status; "all" or "" keeps everything
func FilterRecurring(recurring []Recurring, status string) []Recurring {
	if status == "" || status == "all" {
		return recurring
	}
	var result []Recurring
	for _, r := range recurring {
		if string(r.Status) == status {
			result = append(result, r)
		}
	}
	return result
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func sortByDate(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}
