package internal

import (
	"testing"

	"github.com/shopspring/decimal"
)

func charge(payee, date, amount string) Transaction {
	return withDesc(tx(payee+"-"+date, date, amount), payee)
}

func TestExpenses(t *testing.T) {
	pending := charge("Shop", "2025-01-17", "-5")
	pending.Pending = true
	txs := []Transaction{
		charge("Expense", "2025-01-15", "-100"),
		charge("Income", "2025-01-16", "500"),
		pending,
		charge("Expense2", "2025-01-17", "-50"),
	}

	expenses := Expenses(txs)
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}
	if expenses[0].Description != "Expense" || expenses[1].Description != "Expense2" {
		t.Errorf("unexpected expenses: %v", expenses)
	}
}

func TestIsMonthlyPattern(t *testing.T) {
	tests := []struct {
		name     string
		txs      []Transaction
		expected bool
	}{
		{
			name: "one per month",
			txs: []Transaction{
				charge("x", "2025-01-15", "-100"),
				charge("x", "2025-02-15", "-100"),
				charge("x", "2025-03-15", "-100"),
			},
			expected: true,
		},
		{
			name: "two in one month",
			txs: []Transaction{
				charge("x", "2025-01-15", "-100"),
				charge("x", "2025-01-20", "-100"),
				charge("x", "2025-02-15", "-100"),
			},
			expected: false,
		},
		{
			name:     "single",
			txs:      []Transaction{charge("x", "2025-01-15", "-100")},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMonthlyPattern(tt.txs); got != tt.expected {
				t.Errorf("IsMonthlyPattern = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAmountsWithinTolerance(t *testing.T) {
	amounts := func(values ...string) []Transaction {
		var txs []Transaction
		for _, v := range values {
			txs = append(txs, Transaction{Amount: decimal.RequireFromString(v)})
		}
		return txs
	}

	tests := []struct {
		name      string
		txs       []Transaction
		tolerance float64
		expected  bool
	}{
		{"identical", amounts("-100", "-100", "-100"), 0.10, true},
		{"within 10%", amounts("-100", "-105", "-95"), 0.10, true},
		{"exactly 10%", amounts("-100", "-110"), 0.10, true},
		{"consecutive jump", amounts("-100", "-115"), 0.10, false},
		{"gradual drift", amounts("-100", "-105", "-110", "-115"), 0.10, true},
		{"empty", nil, 0.10, false},
		{"single", amounts("-100"), 0.10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountsWithinTolerance(tt.txs, tt.tolerance); got != tt.expected {
				t.Errorf("AmountsWithinTolerance = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAmountStatistics(t *testing.T) {
	txs := []Transaction{
		charge("x", "2025-01-10", "-150"),
		charge("x", "2025-02-12", "-100"),
		charge("x", "2025-03-14", "-200.01"),
	}

	if got := AverageAmount(txs); got.String() != "-150" {
		t.Errorf("AverageAmount = %s, want -150", got)
	}
	lo, hi := AmountRange(txs)
	if lo.String() != "100" || hi.String() != "200.01" {
		t.Errorf("AmountRange = %s..%s, want 100..200.01", lo, hi)
	}
	if got := TypicalDay(txs); got != 12 {
		t.Errorf("TypicalDay = %d, want 12", got)
	}
	if !AverageAmount(nil).IsZero() || TypicalDay(nil) != 0 {
		t.Error("empty input should give zero values")
	}
}

func TestRecurringStatusAt(t *testing.T) {
	tests := []struct {
		name       string
		last       string
		typicalDay int
		end        string
		expected   RecurringStatus
	}{
		{"charged this month", "2025-03-15", 15, "2025-03-20", StatusActive},
		{"last month, within grace", "2025-02-15", 15, "2025-03-18", StatusActive},
		{"last month, on last grace day", "2025-02-15", 15, "2025-03-20", StatusActive},
		{"last month, past grace", "2025-02-15", 15, "2025-03-25", StatusStopped},
		{"two months ago", "2025-01-15", 15, "2025-03-10", StatusStopped},
		{"typical day past month end", "2025-01-31", 31, "2025-03-05", StatusStopped},
		{"clamped to short month", "2025-01-31", 31, "2025-02-28", StatusActive},
		{"year boundary", "2024-12-20", 20, "2025-01-10", StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecurringStatusAt(day(tt.last), tt.typicalDay, day(tt.end)); got != tt.expected {
				t.Errorf("RecurringStatusAt = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestCompleteMonths(t *testing.T) {
	tests := []struct {
		name     string
		txs      []Transaction
		end      string
		expected []string
	}{
		{
			name:     "current month incomplete",
			txs:      []Transaction{charge("x", "2025-09-15", "-1"), charge("x", "2026-01-10", "-1")},
			end:      "2026-01-10",
			expected: []string{"2025-09", "2025-10", "2025-11", "2025-12"},
		},
		{
			name:     "end on last day",
			txs:      []Transaction{charge("x", "2025-01-15", "-1")},
			end:      "2025-01-31",
			expected: []string{"2025-01"},
		},
		{
			name: "empty",
			end:  "2025-01-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompleteMonths(tt.txs, day(tt.end))
			if len(got) != len(tt.expected) {
				t.Fatalf("CompleteMonths = %v, want %v", got, tt.expected)
			}
			for _, m := range tt.expected {
				if !got[m] {
					t.Errorf("missing month %s in %v", m, got)
				}
			}
		})
	}
}

func TestDetectRecurring(t *testing.T) {
	txs := []Transaction{
		charge("Netflix", "2025-01-15", "-22.99"),
		charge("Netflix", "2025-02-15", "-22.99"),
		charge("Netflix", "2025-03-15", "-22.99"),
		charge("Netflix", "2025-04-10", "-22.99"),
		// one-off
		charge("Amazon", "2025-02-20", "-500"),
		// varying amounts
		charge("Grocery", "2025-01-10", "-150"),
		charge("Grocery", "2025-02-12", "-300"),
		charge("Grocery", "2025-03-08", "-200"),
		// stopped after February
		charge("Gym", "2025-01-05", "-60"),
		charge("Gym", "2025-02-05", "-60"),
		// twice in one month
		charge("Uber", "2025-01-03", "-15"),
		charge("Uber", "2025-02-03", "-15"),
		charge("Uber", "2025-02-17", "-15"),
		// income is never recurring spend
		charge("Salary", "2025-01-25", "4000"),
		charge("Salary", "2025-02-25", "4000"),
	}

	found := DetectRecurring(txs, day("2025-04-10"), 0.10, nil)
	if len(found) != 2 {
		t.Fatalf("expected 2 recurring payments, got %d: %+v", len(found), found)
	}

	netflix := found[0]
	if netflix.Payee != "Netflix" || netflix.Status != StatusActive {
		t.Errorf("first = %s (%s), want active Netflix", netflix.Payee, netflix.Status)
	}
	if netflix.AvgAmount.String() != "-22.99" {
		t.Errorf("avg = %s", netflix.AvgAmount)
	}
	if len(netflix.Transactions) != 4 {
		t.Errorf("expected 4 charges including the current month, got %d", len(netflix.Transactions))
	}
	if netflix.FirstDate.String() != "2025-01-15" || netflix.LastDate.String() != "2025-04-10" {
		t.Errorf("dates = %s..%s", netflix.FirstDate, netflix.LastDate)
	}

	gym := found[1]
	if gym.Payee != "Gym" || gym.Status != StatusStopped {
		t.Errorf("second = %s (%s), want stopped Gym", gym.Payee, gym.Status)
	}

	if got := MonthlyTotal(found); got.String() != "22.99" {
		t.Errorf("MonthlyTotal = %s, want 22.99", got)
	}
	if got := FilterRecurring(found, "stopped"); len(got) != 1 || got[0].Payee != "Gym" {
		t.Errorf("FilterRecurring(stopped) = %+v", got)
	}
}

func TestDetectRecurringGroupsByMerchant(t *testing.T) {
	a := withMerchant(charge("SPOTIFY P0123", "2025-01-20", "-16.99"), "Spotify")
	b := withMerchant(charge("Spotify AB P0456", "2025-02-20", "-18.99"), "spotify")
	cfg := &Config{}

	found := DetectRecurring([]Transaction{a, b}, day("2025-03-05"), DefaultTolerance, cfg)
	if len(found) != 1 {
		t.Fatalf("expected 1 recurring payment, got %d", len(found))
	}
	if found[0].Payee != "spotify" {
		t.Errorf("payee = %q, want the latest merchant spelling", found[0].Payee)
	}
	if found[0].MinAmount.String() != "16.99" || found[0].MaxAmount.String() != "18.99" {
		t.Errorf("range = %s..%s", found[0].MinAmount, found[0].MaxAmount)
	}
}
