// Package watch re-verifies the receipt chain whenever the audit
// directory changes on disk. The verifier itself is an offline tool;
// the monitor turns it into a standing tamper alarm for long-lived
// sessions.
package watch

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/RazorglintLabs/command-guardian/internal/receipt"
)

// debounceDefault coalesces bursts of file events (an append touches
// the file more than once) into a single verification pass.
const debounceDefault = 200 * time.Millisecond

// Monitor watches a receipt log's directory and reports verification
// results after each change.
type Monitor struct {
	log      *receipt.Log
	report   func(receipt.VerifyResult)
	debounce time.Duration
}

// NewMonitor creates a Monitor. report is called once at startup and
// after every (debounced) modification of a segment file.
func NewMonitor(log *receipt.Log, report func(receipt.VerifyResult)) *Monitor {
	return &Monitor{log: log, report: report, debounce: debounceDefault}
}

// Run blocks until ctx is cancelled, verifying the chain on changes.
// The audit directory must exist before Run is called.
func (m *Monitor) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(m.log.Dir()); err != nil {
		return err
	}

	if err := m.verify(); err != nil {
		return err
	}

	// Single debounce timer, reset on every relevant event.
	timer := time.NewTimer(m.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".jsonl") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(m.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err

		case <-timer.C:
			if err := m.verify(); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) verify() error {
	result, err := m.log.Verify()
	if err != nil {
		return err
	}
	m.report(result)
	return nil
}
