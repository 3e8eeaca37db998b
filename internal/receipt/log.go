package receipt

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Log is a day-segmented JSONL receipt log rooted at a directory.
type Log struct {
	dir string
	mu  sync.Mutex

	// now is the clock; overridable for tests.
	now func() time.Time
}

// NewLog creates a Log writing under dir.
func NewLog(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// DefaultDir returns the default audit directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "command-guardian-audit")
	}
	return filepath.Join(home, ".command-guardian", "audit")
}

// Dir returns the audit directory this log writes to.
func (l *Log) Dir() string { return l.dir }

// Append writes one receipt to the current day-file and returns it.
// The write is flushed to disk before returning: a receipt that has
// not reached stable storage does not count as written, and the runner
// treats that as fatal.
func (l *Log) Append(e Entry) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	path := filepath.Join(l.dir, now.Format("2006-01-02")+".jsonl")

	prev, err := lastHash(path)
	if err != nil {
		return nil, err
	}

	r := Receipt{
		Timestamp: now.Format(time.RFC3339Nano),
		Intent:    string(e.Intent),
		Command:   e.Command,
		Decision:  string(e.Decision),
		Reason:    e.Reason,
		PrevHash:  prev,
	}
	if e.TokenID != "" {
		r.TokenID = &e.TokenID
	}
	if e.ExpiresAt != "" {
		r.ExpiresAt = &e.ExpiresAt
	}

	hash, err := ComputeHash(r)
	if err != nil {
		return nil, fmt.Errorf("receipt: hash: %w", err)
	}
	r.Hash = hash

	line, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("receipt: marshal: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return nil, fmt.Errorf("receipt: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("receipt: open segment: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("receipt: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("receipt: sync: %w", err)
	}
	return &r, nil
}

// ReadSegment parses every receipt in one segment file. A malformed
// line is a hard error, never silently skipped.
func (l *Log) ReadSegment(path string) ([]Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("receipt: open segment: %w", err)
	}
	defer f.Close()

	var out []Receipt
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r Receipt
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("receipt: %s line %d: %w", filepath.Base(path), lineNum, err)
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("receipt: scan segment: %w", err)
	}
	return out, nil
}

// Segments returns every segment file path, ascending by date.
func (l *Log) Segments() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("receipt: list segments: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Tail returns the n most recent receipts across all segments, most
// recent last. Segments are read newest-first and reading stops once n
// receipts are collected.
func (l *Log) Tail(n int) ([]Receipt, error) {
	paths, err := l.Segments()
	if err != nil {
		return nil, err
	}

	var all []Receipt
	for i := len(paths) - 1; i >= 0; i-- {
		recs, err := l.ReadSegment(paths[i])
		if err != nil {
			return nil, err
		}
		all = append(recs, all...)
		if len(all) >= n {
			break
		}
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// lastHash returns the hash of the last receipt in path, or
// GenesisHash if the file is missing or empty.
func lastHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GenesisHash, nil
		}
		return "", fmt.Errorf("receipt: open segment: %w", err)
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("receipt: scan segment: %w", err)
	}
	if last == "" {
		return GenesisHash, nil
	}

	var r Receipt
	if err := json.Unmarshal([]byte(last), &r); err != nil {
		return "", fmt.Errorf("receipt: last record unreadable: %w", err)
	}
	if r.Hash == "" {
		return GenesisHash, nil
	}
	return r.Hash, nil
}
