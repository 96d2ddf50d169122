package internal

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// AccountTTL is how long an account snapshot is trusted
const AccountTTL = 4 * time.Hour

type accountState struct {
	LastUpdate *time.Time `json:"lastUpdate"`
	Accounts   []Account  `json:"accounts"`
}

// AccountStore holds the latest account snapshot. Every fetch replaces it.
type AccountStore struct {
	file   jsonFile[accountState]
	diag   *Diagnostics
	logger *log.Logger
	now    func() time.Time
	ttl    time.Duration

	loaded bool
	state  accountState
}

func NewAccountStore(dir string, diag *Diagnostics, logger *log.Logger) *AccountStore {
	if logger == nil {
		logger = discardLogger()
	}
	return &AccountStore{
		file:   jsonFile[accountState]{path: filepath.Join(dir, accountsFile)},
		diag:   diag,
		logger: logger,
		now:    time.Now,
		ttl:    AccountTTL,
	}
}

func (s *AccountStore) Path() string {
	return s.file.path
}

func (s *AccountStore) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	state, err := s.file.load()
	if err != nil {
		s.logger.Warn("ignoring unreadable account cache", "path", s.file.path, "error", err)
		s.diag.recordLoad(err)
		state = accountState{}
	}
	s.state = state
}

func (s *AccountStore) LastUpdate() (time.Time, bool) {
	s.ensureLoaded()
	if s.state.LastUpdate == nil {
		return time.Time{}, false
	}
	return *s.state.LastUpdate, true
}

// IsValid reports whether the snapshot is younger than the TTL and non-empty.
// An empty snapshot is treated as a failed fetch rather than a user with no accounts.
func (s *AccountStore) IsValid() bool {
	last, ok := s.LastUpdate()
	if !ok || !withinTTL(last, s.now(), s.ttl) {
		return false
	}
	return len(s.state.Accounts) > 0
}

// Accounts returns the stored snapshot
func (s *AccountStore) Accounts() []Account {
	s.ensureLoaded()
	return s.state.Accounts
}

// Replace overwrites the snapshot and writes it to disk. A write failure is
// recorded in the diagnostics and returned; the in-memory snapshot is kept.
func (s *AccountStore) Replace(accounts []Account) error {
	s.ensureLoaded()
	now := s.now()
	s.state = accountState{LastUpdate: &now, Accounts: accounts}

	if err := s.file.save(s.state); err != nil {
		s.logger.Warn("could not write account cache", "error", err)
		s.diag.recordWrite(err)
		return err
	}
	return nil
}

// Clear empties the store and deletes its file
func (s *AccountStore) Clear() error {
	s.loaded = true
	s.state = accountState{}
	return s.file.remove()
}
