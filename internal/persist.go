package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName       = "moneyline"
	transactionsFile = "transactions-cache.json"
	accountsFile     = "accounts-cache.json"
)

// DefaultDataDir returns the per-user directory holding config and cache files
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appDirName)
}

// jsonFile is the durable layer under a store: one JSON document on disk,
// readable and writable only by the owner.
type jsonFile[T any] struct {
	path string
}

// load reads the document. A missing file yields the zero T and no error.
func (f jsonFile[T]) load() (T, error) {
	var v T
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return v, fmt.Errorf("reading %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return v, nil
}

// save replaces the whole document via a temp file and rename
func (f jsonFile[T]) save(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// CreateTemp opens with 0600
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}

func (f jsonFile[T]) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", f.path, err)
	}
	return nil
}

// Diagnostics keeps cache problems that must not fail a command but are
// worth a warning: unreadable cache files and failed writes.
type Diagnostics struct {
	lastWriteErr string
	lastLoadErr  string
	hadLoadErr   bool
}

func (d *Diagnostics) recordWrite(err error) {
	d.lastWriteErr = err.Error()
}

func (d *Diagnostics) recordLoad(err error) {
	d.lastLoadErr = err.Error()
	d.hadLoadErr = true
}

// LastWriteError returns the message of the most recent failed cache write, or ""
func (d *Diagnostics) LastWriteError() string {
	return d.lastWriteErr
}

// LastLoadError returns the message of the most recent unreadable cache file, or ""
func (d *Diagnostics) LastLoadError() string {
	return d.lastLoadErr
}

// HadLoadError reports whether a cache file was unreadable during this run
func (d *Diagnostics) HadLoadError() bool {
	return d.hadLoadErr
}

// Warnings lists the messages worth showing the user, oldest concern first
func (d *Diagnostics) Warnings() []string {
	var warnings []string
	if d.hadLoadErr {
		warnings = append(warnings, "cache file was unreadable and has been ignored: "+d.lastLoadErr)
	}
	if d.lastWriteErr != "" {
		warnings = append(warnings, "could not update cache: "+d.lastWriteErr)
	}
	return warnings
}

// withinTTL reports whether a store written at last is still fresh at now.
// A timestamp in the future (clock skew, hand-edited file) is never fresh.
func withinTTL(last, now time.Time, ttl time.Duration) bool {
	return !now.Before(last) && now.Sub(last) < ttl
}
