package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func account(id, name string) Account {
	return Account{
		ID:       id,
		Name:     name,
		Type:     "checking",
		Currency: "NZD",
		Balance:  Balances{Current: decimal.RequireFromString("100.00")},
	}
}

func newTestAccountStore(t *testing.T, dir string) (*AccountStore, *Diagnostics, *clock) {
	t.Helper()
	diag := &Diagnostics{}
	c := &clock{t: time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)}
	s := NewAccountStore(dir, diag, nil)
	s.now = c.now
	return s, diag, c
}

func TestAccountStoreValidity(t *testing.T) {
	tests := []struct {
		name     string
		accounts []Account
		age      time.Duration
		expected bool
	}{
		{"fresh", []Account{account("a", "Everyday")}, time.Minute, true},
		{"just under ttl", []Account{account("a", "Everyday")}, AccountTTL - time.Second, true},
		{"at ttl", []Account{account("a", "Everyday")}, AccountTTL, false},
		{"fresh but empty", nil, time.Minute, false},
		{"stamped in the future", []Account{account("a", "Everyday")}, -time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, c := newTestAccountStore(t, t.TempDir())
			if s.IsValid() {
				t.Fatal("new store should not be valid")
			}
			if err := s.Replace(tt.accounts); err != nil {
				t.Fatal(err)
			}
			c.t = c.t.Add(tt.age)
			if got := s.IsValid(); got != tt.expected {
				t.Errorf("IsValid = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAccountStoreReplaceOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, _, _ := newTestAccountStore(t, dir)
	if err := s.Replace([]Account{account("a", "Everyday"), account("b", "Savings")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace([]Account{account("c", "Credit")}); err != nil {
		t.Fatal(err)
	}

	reloaded, _, _ := newTestAccountStore(t, dir)
	got := reloaded.Accounts()
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Accounts = %+v, want only c", got)
	}
	if !got[0].Balance.Current.Equal(decimal.RequireFromString("100")) {
		t.Errorf("balance = %s", got[0].Balance.Current)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestAccountStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, accountsFile), []byte(`{"accounts": 5}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s, diag, _ := newTestAccountStore(t, dir)
	if len(s.Accounts()) != 0 || s.IsValid() {
		t.Error("corrupt file should load as empty")
	}
	if !diag.HadLoadError() {
		t.Error("load error not recorded")
	}
}

func TestAccountStoreWriteFailure(t *testing.T) {
	s, diag, _ := newTestAccountStore(t, blockedDir(t))
	if err := s.Replace([]Account{account("a", "Everyday")}); err == nil {
		t.Fatal("expected write error")
	}
	if len(s.Accounts()) != 1 {
		t.Error("in-memory snapshot should be kept")
	}
	if diag.LastWriteError() == "" {
		t.Error("write error not recorded")
	}
}
