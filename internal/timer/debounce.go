package timer

import (
	"sync"
	"time"
)

// Debouncer delays fn until wait has passed since the last Trigger. Each
// Trigger cancels the pending call and schedules a new one.
type Debouncer struct {
	wait time.Duration
	fn   func()

	mu      sync.Mutex
	pending *time.Timer
	seq     uint64
	stopped bool
}

func NewDebouncer(wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{wait: wait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.pending != nil {
		d.pending.Stop()
	}

	// A timer that already fired may be blocked on mu; seq lets it notice
	// that it was superseded.
	d.seq++
	seq := d.seq
	d.pending = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		if d.stopped || seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Stop cancels any pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
