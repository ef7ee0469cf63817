// Package editor timer support for the mentor quiescence delay.
package editor

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into one callback after a quiet
// period. Each Trigger resets the pending timer, so the callback fires only
// once the edits have settled.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates an idle debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Trigger schedules fn to run after the delay, cancelling any pending run.
func (d *Debouncer) Trigger(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() {
		slog.Debug("Debouncer: quiescence reached, executing callback", "delay", delay)
		fn()
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
