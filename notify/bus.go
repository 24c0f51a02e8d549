// Package notify is the process-wide notification bus: an ephemeral toast
// queue with per-toast dismissal timers, and a capped in-memory activity
// log. Both channels are fed together by the severity helpers so the toast
// a user saw always has a matching log entry.
package notify

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Kind is a notification severity.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const (
	// DefaultToastDuration is how long a toast stays up unless dismissed.
	DefaultToastDuration = 3 * time.Second
	// closingDelay covers the exit transition between a manual dismissal
	// and the toast's removal from the queue.
	closingDelay = 300 * time.Millisecond
	// logCapacity bounds the activity log; the oldest entry is evicted
	// silently once it is full.
	logCapacity = 100
)

// Toast is an ephemeral on-screen notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Closing   bool      `json:"closing"`
}

// Entry is one activity log line.
type Entry struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Kind      Kind   `json:"kind"`
	Timestamp string `json:"timestamp"`
}

// Bus is safe for concurrent use. Create one per process and share it.
type Bus struct {
	mu      sync.Mutex
	toasts  []Toast
	entries []Entry
	timers  map[string]*time.Timer
	now     func() time.Time
	seq     uint64
	closed  bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock overrides the bus clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notify enqueues a toast and schedules its auto-dismissal. A zero duration
// uses DefaultToastDuration.
func (b *Bus) Notify(message string, kind Kind, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultToastDuration
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	toast := Toast{
		ID:        b.newIDLocked(),
		Message:   message,
		Kind:      kind,
		CreatedAt: b.now(),
	}
	b.toasts = append(b.toasts, toast)
	b.timers[toast.ID] = time.AfterFunc(duration, func() {
		b.remove(toast.ID)
	})
}

// Dismiss marks a toast as closing and removes it after the exit delay, so
// the removal is observable as a transition rather than a disappearance.
func (b *Bus) Dismiss(id string) {
	b.mu.Lock()
	found := false
	for i := range b.toasts {
		if b.toasts[i].ID == id && !b.toasts[i].Closing {
			b.toasts[i].Closing = true
			found = true
			break
		}
	}
	if found {
		if t, ok := b.timers[id]; ok {
			t.Stop()
		}
		b.timers[id] = time.AfterFunc(closingDelay, func() {
			b.remove(id)
		})
	}
	b.mu.Unlock()
}

// Log appends an entry to the activity log, evicting the oldest entry past
// capacity. Entry ids combine the timestamp with a random tiebreaker since
// two entries can share a millisecond.
func (b *Bus) Log(message string, kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := Entry{
		ID:        b.newIDLocked(),
		Message:   message,
		Kind:      kind,
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
	b.entries = append(b.entries, entry)
	if len(b.entries) > logCapacity {
		b.entries = b.entries[len(b.entries)-logCapacity:]
	}
}

// Info posts an info toast and log entry.
func (b *Bus) Info(message string) { b.post(message, KindInfo) }

// Success posts a success toast and log entry.
func (b *Bus) Success(message string) { b.post(message, KindSuccess) }

// Warning posts a warning toast and log entry.
func (b *Bus) Warning(message string) { b.post(message, KindWarning) }

// Error posts an error toast and log entry.
func (b *Bus) Error(message string) { b.post(message, KindError) }

func (b *Bus) post(message string, kind Kind) {
	b.Notify(message, kind, 0)
	b.Log(message, kind)
}

// Toasts returns a copy of the current toast queue.
func (b *Bus) Toasts() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Toast(nil), b.toasts...)
}

// Entries returns a copy of the activity log, oldest first.
func (b *Bus) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Clear drops all pending toasts and stops their timers. The activity log
// is kept.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = make(map[string]*time.Timer)
	b.toasts = nil
}

// Close tears the bus down; further notifications are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = make(map[string]*time.Timer)
	b.toasts = nil
	b.closed = true
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.toasts {
		if b.toasts[i].ID == id {
			b.toasts = append(b.toasts[:i], b.toasts[i+1:]...)
			break
		}
	}
	delete(b.timers, id)
}

func (b *Bus) newIDLocked() string {
	b.seq++
	return fmt.Sprintf("%d-%d-%04d", b.now().UnixMilli(), b.seq, rand.Intn(10000))
}
