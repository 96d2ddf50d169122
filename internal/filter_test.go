package internal

import (
	"strings"
	"testing"
)

func TestFilterTransactions(t *testing.T) {
	accounts := []Account{account("acc-1", "Everyday"), account("acc-2", "Savings")}
	cfg := &Config{AccountAliases: map[string]string{"acc-2": "Rainy Day"}}

	savings := tx("4", "2025-01-04", "12.00")
	savings.AccountID = "acc-2"
	txs := []Transaction{
		withDesc(tx("1", "2025-01-01", "-4.50"), "Coffee Club"),
		withMerchant(withDesc(tx("2", "2025-01-02", "-60.00"), "POS 1234"), "Countdown"),
		withDesc(tx("3", "2025-01-03", "2500.00"), "Salary"),
		savings,
	}
	txs[0].Category = "eating out"

	tests := []struct {
		name     string
		filter   TransactionFilter
		expected string
	}{
		{"no filter", TransactionFilter{}, "1234"},
		{"account by id", TransactionFilter{Account: "acc-2"}, "4"},
		{"account by name", TransactionFilter{Account: "everyday"}, "123"},
		{"account by alias", TransactionFilter{Account: "rainy day"}, "4"},
		{"unknown account", TransactionFilter{Account: "nope"}, ""},
		{"category", TransactionFilter{Category: "Eating Out"}, "1"},
		{"search description", TransactionFilter{Search: "salary"}, "3"},
		{"search merchant", TransactionFilter{Search: "COUNTDOWN"}, "2"},
		{"money in", TransactionFilter{Direction: DirectionIn}, "34"},
		{"money out", TransactionFilter{Direction: DirectionOut}, "12"},
		{"combined", TransactionFilter{Account: "acc-1", Direction: DirectionOut, Search: "coffee"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterTransactions(txs, tt.filter, accounts, cfg))
			if got != tt.expected {
				t.Errorf("FilterTransactions = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFilterTransactionsAppliesExclusions(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, "api:\n  provider: json-file\n  file: x.json\nexclude:\n  - transfer\n"), true)
	if err != nil {
		t.Fatal(err)
	}
	txs := []Transaction{withDesc(tx("1", "2025-01-01", "-1"), "Transfer to savings"), tx("2", "2025-01-02", "-1")}
	if got := ids(FilterTransactions(txs, TransactionFilter{}, nil, cfg)); got != "2" {
		t.Errorf("got %q, want 2", got)
	}
}

func TestSortTransactions(t *testing.T) {
	txs := []Transaction{
		tx("b", "2025-01-01", "-1"),
		tx("c", "2025-01-03", "-1"),
		tx("a", "2025-01-01", "-1"),
		tx("d", "2025-01-02", "-1"),
	}
	SortTransactions(txs)
	if got := ids(txs); got != "cdab" {
		t.Errorf("order = %s, want cdab", got)
	}
}

func TestFilterAccounts(t *testing.T) {
	accounts := []Account{account("acc-1", "Everyday"), account("acc-2", "Savings")}
	if got := FilterAccounts(accounts, "", nil); len(got) != 2 {
		t.Errorf("empty query kept %d accounts", len(got))
	}
	got := FilterAccounts(accounts, "SAVINGS", nil)
	if len(got) != 1 || !strings.EqualFold(got[0].Name, "savings") {
		t.Errorf("FilterAccounts = %+v", got)
	}
}
