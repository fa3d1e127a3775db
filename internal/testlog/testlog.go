// Package testlog persists which fixture records were created for a site, so
// a later test process does not create them again.
package testlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileName is the log file kept at the root of a site directory.
const FileName = ".test_log"

// Log maps a doctype to the names created for it. Once a doctype is present
// its set is considered complete; only Reset clears it.
//
// A Log assumes exclusive ownership of the file for the life of the process.
type Log struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string][]string
}

func Open(sitePath string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		path:   filepath.Join(sitePath, FileName),
		logger: logger,
	}
}

func (l *Log) Path() string {
	return l.path
}

// Load reads the file on first use and returns the cached mapping after that.
// A missing file is an empty log. The returned map must not be modified.
func (l *Log) Load() (map[string][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *Log) load() (map[string][]string, error) {
	if l.entries != nil {
		return l.entries, nil
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.entries = make(map[string][]string)
		return l.entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read test log: %w", err)
	}

	entries := make(map[string][]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse test log %s: %w", l.path, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("test log %s is not a JSON object", l.path)
	}
	l.entries = entries
	return l.entries, nil
}

func (l *Log) Has(doctype string) (bool, error) {
	entries, err := l.Load()
	if err != nil {
		return false, err
	}
	_, ok := entries[doctype]
	return ok, nil
}

// Names returns a copy of the names logged for doctype.
func (l *Log) Names(doctype string) ([]string, error) {
	entries, err := l.Load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(entries[doctype]), nil
}

// Add records names for doctype and rewrites the file. It does nothing when
// doctype is already logged.
func (l *Log) Add(doctype string, names []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	if _, ok := entries[doctype]; ok {
		return nil
	}

	if names == nil {
		names = []string{}
	}
	entries[doctype] = slices.Clone(names)
	if err := l.write(entries); err != nil {
		delete(entries, doctype)
		return err
	}

	l.logger.Debug("test record creation persisted", "file", l.path, "doctype", doctype)
	return nil
}

// Reset empties the log on disk and in memory.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	empty := make(map[string][]string)
	if err := l.write(empty); err != nil {
		return err
	}
	l.entries = empty
	return nil
}

// write replaces the file through a temp file in the same directory so a
// reader never sees a partial log.
func (l *Log) write(entries map[string][]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal test log: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create site directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write test log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write test log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace test log: %w", err)
	}
	return nil
}

// Reset clears the log of the site at sitePath. It is meant to run when a
// site is (re)installed.
func Reset(sitePath string) error {
	return Open(sitePath, nil).Reset()
}
