package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// TransactionTTL is how long fetched transactions are trusted
const TransactionTTL = time.Hour

// transactionState is the persisted form of the transaction cache
type transactionState struct {
	LastUpdate   *time.Time    `json:"lastUpdate"`
	Transactions []Transaction `json:"transactions"`
	CachedRanges CoverageSet   `json:"cachedRanges"`
}

// TransactionStore accumulates fetched transactions across runs together with
// the date ranges they cover. The file is read on first use only; after that
// the in-memory state is authoritative for the rest of the process.
type TransactionStore struct {
	file   jsonFile[transactionState]
	diag   *Diagnostics
	logger *log.Logger
	now    func() time.Time
	ttl    time.Duration

	loaded bool
	state  transactionState
	keys   map[string]struct{}
}

func NewTransactionStore(dir string, diag *Diagnostics, logger *log.Logger) *TransactionStore {
	if logger == nil {
		logger = discardLogger()
	}
	return &TransactionStore{
		file:   jsonFile[transactionState]{path: filepath.Join(dir, transactionsFile)},
		diag:   diag,
		logger: logger,
		now:    time.Now,
		ttl:    TransactionTTL,
	}
}

// Path returns the cache file location
func (s *TransactionStore) Path() string {
	return s.file.path
}

func (s *TransactionStore) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	state, err := s.file.load()
	if err != nil {
		s.logger.Warn("ignoring unreadable transaction cache", "path", s.file.path, "error", err)
		s.diag.recordLoad(err)
		state = transactionState{}
	}
	s.state = state
	s.keys = make(map[string]struct{}, len(state.Transactions))
	for _, tx := range state.Transactions {
		s.keys[ContentKey(tx)] = struct{}{}
	}
}

// LastUpdate returns when the store was last merged into, if ever
func (s *TransactionStore) LastUpdate() (time.Time, bool) {
	s.ensureLoaded()
	if s.state.LastUpdate == nil {
		return time.Time{}, false
	}
	return *s.state.LastUpdate, true
}

// IsValid reports whether the store can answer for interval: it was updated
// within the TTL and one cached range contains the whole interval.
func (s *TransactionStore) IsValid(interval DateInterval) bool {
	last, ok := s.LastUpdate()
	if !ok || !withinTTL(last, s.now(), s.ttl) {
		return false
	}
	return IsCovered(interval, s.state.CachedRanges)
}

// Read returns the stored transactions dated within interval. It does not
// check validity.
func (s *TransactionStore) Read(interval DateInterval) []Transaction {
	s.ensureLoaded()
	var result []Transaction
	for _, tx := range s.state.Transactions {
		if interval.Contains(DateOf(tx.Date)) {
			result = append(result, tx)
		}
	}
	return result
}

// Merge adds records not already stored, extends the cached ranges with
// interval when it is bounded, and writes the store to disk. It returns how
// many records were new. A write failure is recorded in the diagnostics and
// returned; the in-memory state keeps the merge either way.
func (s *TransactionStore) Merge(records []Transaction, interval DateInterval) (int, error) {
	s.ensureLoaded()

	added := 0
	for _, tx := range records {
		key := ContentKey(tx)
		if _, exists := s.keys[key]; exists {
			continue
		}
		s.keys[key] = struct{}{}
		s.state.Transactions = append(s.state.Transactions, tx)
		added++
	}

	if interval.Bounded() {
		s.state.CachedRanges = MergeInterval(s.state.CachedRanges, interval)
	}
	now := s.now()
	s.state.LastUpdate = &now

	s.logger.Debug("merged transactions", "fetched", len(records), "added", added, "range", interval)
	return added, s.persist()
}

func (s *TransactionStore) persist() error {
	if err := s.file.save(s.state); err != nil {
		s.logger.Warn("could not write transaction cache", "error", err)
		s.diag.recordWrite(err)
		return err
	}
	return nil
}

// Len returns the number of stored transactions
func (s *TransactionStore) Len() int {
	s.ensureLoaded()
	return len(s.state.Transactions)
}

// Ranges returns a copy of the cached date ranges
func (s *TransactionStore) Ranges() CoverageSet {
	s.ensureLoaded()
	return append(CoverageSet(nil), s.state.CachedRanges...)
}

// Clear empties the store and deletes its file
func (s *TransactionStore) Clear() error {
	s.loaded = true
	s.state = transactionState{}
	s.keys = map[string]struct{}{}
	return s.file.remove()
}

// ContentKey identifies a transaction by the fields that make it distinct:
// id, account, amount, date, description and update time. Other metadata is
// left out so that it can change without creating a duplicate, while a
// pending transaction that gets updated becomes a new record.
func ContentKey(tx Transaction) string {
	fields := []string{
		tx.ID,
		tx.AccountID,
		tx.Amount.String(),
		tx.Date.UTC().Format(time.RFC3339Nano),
		tx.Description,
		tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}
