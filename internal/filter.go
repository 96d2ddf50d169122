package internal

import (
	"sort"
	"strings"
)

// Direction values accepted by TransactionFilter
const (
	DirectionAll = "all"
	DirectionIn  = "in"
	DirectionOut = "out"
)

// TransactionFilter narrows a transaction view. Empty fields match everything.
type TransactionFilter struct {
	Account   string // account ID, name or alias (case-insensitive)
	Category  string
	Search    string // substring of description or merchant (case-insensitive)
	Direction string
}

// FilterTransactions applies f and the config's exclusions to txs
func FilterTransactions(txs []Transaction, f TransactionFilter, accounts []Account, cfg *Config) []Transaction {
	var accountIDs map[string]bool
	if f.Account != "" {
		accountIDs = matchAccounts(f.Account, accounts, cfg)
	}
	search := strings.ToLower(f.Search)

	var result []Transaction
	for _, tx := range txs {
		if cfg.ShouldExclude(tx) {
			continue
		}
		if accountIDs != nil && !accountIDs[tx.AccountID] {
			continue
		}
		if f.Category != "" && !strings.EqualFold(cfg.Categorize(tx), f.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Description), search) &&
			!strings.Contains(strings.ToLower(tx.Merchant), search) {
			continue
		}
		switch f.Direction {
		case DirectionIn:
			if !tx.Amount.IsPositive() {
				continue
			}
		case DirectionOut:
			if !tx.Amount.IsNegative() {
				continue
			}
		}
		result = append(result, tx)
	}
	return result
}

// matchAccounts returns the IDs of accounts whose ID, name or alias equals query.
// The query itself is always included so an unknown ID still filters.
func matchAccounts(query string, accounts []Account, cfg *Config) map[string]bool {
	ids := map[string]bool{query: true}
	for _, acc := range accounts {
		if strings.EqualFold(acc.ID, query) ||
			strings.EqualFold(acc.Name, query) ||
			strings.EqualFold(cfg.AccountName(acc), query) {
			ids[acc.ID] = true
		}
	}
	return ids
}

// SortTransactions orders newest first, then by ID for a stable view
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// FilterAccounts keeps accounts matching query by ID, name or alias; an empty query keeps all
func FilterAccounts(accounts []Account, query string, cfg *Config) []Account {
	if query == "" {
		return accounts
	}
	ids := matchAccounts(query, accounts, cfg)
	var result []Account
	for _, acc := range accounts {
		if ids[acc.ID] {
			result = append(result, acc)
		}
	}
	return result
}
