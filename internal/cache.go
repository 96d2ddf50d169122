package internal

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// FetchOptions controls whether a lookup may use or update the local cache
type FetchOptions struct {
	ForceRefresh bool // skip the cache lookup but still update the cache
	CacheEnabled bool // when false the cache is neither read nor written
}

// TransactionsFetcher fetches transactions dated within [start, end] from the API
type TransactionsFetcher func(ctx context.Context, start, end Date) ([]Transaction, error)

// AccountsFetcher fetches all accounts from the API
type AccountsFetcher func(ctx context.Context) ([]Account, error)

// TransactionsResult is what GetTransactions returns. CachedAt is the time
// the cache was last updated when FromCache is set, and zero otherwise.
type TransactionsResult struct {
	Transactions []Transaction
	FromCache    bool
	CachedAt     time.Time
}

// AccountsResult is what GetAccounts returns
type AccountsResult struct {
	Accounts  []Account
	FromCache bool
	CachedAt  time.Time
}

// Cache sits between commands and the API. It answers from the local stores
// when they are fresh enough and otherwise fetches through the retrier and
// records the result.
type Cache struct {
	transactions *TransactionStore
	accounts     *AccountStore
	retrier      *Retrier
	diag         *Diagnostics
	logger       *log.Logger
}

// NewCache builds a cache whose files live in dir
func NewCache(dir string, policy RetryPolicy, logger *log.Logger) *Cache {
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.With("component", "cache")
	diag := &Diagnostics{}
	return &Cache{
		transactions: NewTransactionStore(dir, diag, logger),
		accounts:     NewAccountStore(dir, diag, logger),
		retrier:      NewRetrier(policy, logger),
		diag:         diag,
		logger:       logger,
	}
}

// GetTransactions returns the transactions dated within interval, from the
// cache when possible. Fetch errors are returned untouched and leave the
// cache as it was. Cache write errors are not returned; see Diagnostics.
func (c *Cache) GetTransactions(ctx context.Context, interval DateInterval, opts FetchOptions, fetch TransactionsFetcher) (TransactionsResult, error) {
	if opts.CacheEnabled && !opts.ForceRefresh && c.transactions.IsValid(interval) {
		cachedAt, _ := c.transactions.LastUpdate()
		c.logger.Debug("transactions served from cache", "range", interval, "updated", cachedAt)
		return TransactionsResult{
			Transactions: c.transactions.Read(interval),
			FromCache:    true,
			CachedAt:     cachedAt,
		}, nil
	}

	c.logger.Debug("fetching transactions", "range", interval, "force", opts.ForceRefresh)
	txs, err := Retry(ctx, c.retrier, func(ctx context.Context) ([]Transaction, error) {
		return fetch(ctx, interval.Start, interval.End)
	})
	if err != nil {
		return TransactionsResult{}, err
	}

	if opts.CacheEnabled {
		// failure is already in the diagnostics
		_, _ = c.transactions.Merge(txs, interval)
	}
	return TransactionsResult{Transactions: txs}, nil
}

// GetAccounts returns all accounts, from the cache when the snapshot is fresh
func (c *Cache) GetAccounts(ctx context.Context, opts FetchOptions, fetch AccountsFetcher) (AccountsResult, error) {
	if opts.CacheEnabled && !opts.ForceRefresh && c.accounts.IsValid() {
		cachedAt, _ := c.accounts.LastUpdate()
		c.logger.Debug("accounts served from cache", "updated", cachedAt)
		return AccountsResult{
			Accounts:  c.accounts.Accounts(),
			FromCache: true,
			CachedAt:  cachedAt,
		}, nil
	}

	c.logger.Debug("fetching accounts", "force", opts.ForceRefresh)
	accounts, err := Retry(ctx, c.retrier, func(ctx context.Context) ([]Account, error) {
		return fetch(ctx)
	})
	if err != nil {
		return AccountsResult{}, err
	}

	if opts.CacheEnabled {
		_ = c.accounts.Replace(accounts)
	}
	return AccountsResult{Accounts: accounts}, nil
}

// Diagnostics exposes non-fatal cache problems seen during this run
func (c *Cache) Diagnostics() *Diagnostics {
	return c.diag
}

// CacheStatus describes what is currently cached
type CacheStatus struct {
	TransactionsPath    string
	TransactionCount    int
	TransactionsUpdated time.Time
	TransactionsFresh   bool
	CachedRanges        CoverageSet

	AccountsPath    string
	AccountCount    int
	AccountsUpdated time.Time
	AccountsValid   bool

	Retry RetryPolicy
}

// Status reports the state of both stores
func (c *Cache) Status() CacheStatus {
	status := CacheStatus{
		TransactionsPath: c.transactions.Path(),
		TransactionCount: c.transactions.Len(),
		CachedRanges:     c.transactions.Ranges(),
		AccountsPath:     c.accounts.Path(),
		AccountCount:     len(c.accounts.Accounts()),
		AccountsValid:    c.accounts.IsValid(),
		Retry:            c.retrier.Policy(),
	}
	if t, ok := c.transactions.LastUpdate(); ok {
		status.TransactionsUpdated = t
		status.TransactionsFresh = withinTTL(t, c.transactions.now(), c.transactions.ttl)
	}
	if t, ok := c.accounts.LastUpdate(); ok {
		status.AccountsUpdated = t
	}
	return status
}

// Clear deletes both cache files
func (c *Cache) Clear() error {
	return errors.Join(c.transactions.Clear(), c.accounts.Clear())
}
