package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"heraldbot/internal/transport"
)

// Config holds run-level tuning. Zero fields fall back to defaults in
// normalized().
type Config struct {
	// Concurrency bounds in-flight deliveries (worker pool size).
	Concurrency int
	// RatePerSec caps sustained delivery throughput.
	RatePerSec int
	// RetryMax is the total attempt budget for a recipient whose deliveries
	// keep getting deferred by the server.
	RetryMax int
	// ReportEvery is the progress reporter tick interval.
	ReportEvery time.Duration
	// ReportThreshold is the minimum delivered-count delta between progress
	// notifications.
	ReportThreshold int
}

func (c Config) normalized() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 25
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 25
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5
	}
	if c.ReportEvery <= 0 {
		c.ReportEvery = 2 * time.Second
	}
	if c.ReportThreshold <= 0 {
		c.ReportThreshold = 100
	}
	return c
}

// ErrEmptyMessage is returned when a message has neither a copy reference nor
// a payload.
var ErrEmptyMessage = errors.New("broadcast: message needs a reference or a payload")

// Message describes what a run delivers. Ref points at an existing message to
// copy verbatim; Payload is the reconstructable fallback (or the only path
// when no reference exists). At least one must be set.
type Message struct {
	Ref     *transport.MessageRef
	Payload *transport.Payload
}

func (m Message) Validate() error {
	if m.Ref == nil && m.Payload == nil {
		return ErrEmptyMessage
	}
	return nil
}

// OutcomeKind is the terminal classification of a delivery attempt.
type OutcomeKind int

const (
	// Delivered means the message reached the recipient.
	Delivered OutcomeKind = iota
	// Unreachable means the recipient is permanently gone (blocked the bot,
	// deactivated, chat not found). Never retried.
	Unreachable
	// Deferred means the server mandated a delay before the next attempt.
	Deferred
	// Failed covers every other transport or application error. Not retried.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Unreachable:
		return "unreachable"
	case Deferred:
		return "deferred"
	default:
		return "failed"
	}
}

// Outcome is the classified result of one delivery attempt. RetryAfter is
// set only for Deferred.
type Outcome struct {
	Kind       OutcomeKind
	RetryAfter time.Duration
}

// Progress is the shared per-run state mutated by workers and read by the
// reporter. Counters only ever increase; success+failed never exceeds total
// and equals it exactly when the queue drains.
type Progress struct {
	mu           sync.Mutex
	total        int
	success      int
	failed       int
	attempts     int
	lastReported int
}

func newProgress(total int) *Progress {
	return &Progress{total: total}
}

func (p *Progress) addSuccess() {
	p.mu.Lock()
	p.success++
	p.mu.Unlock()
}

func (p *Progress) addFailed() {
	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
}

func (p *Progress) addAttempt() {
	p.mu.Lock()
	p.attempts++
	p.mu.Unlock()
}

// Snapshot returns a consistent copy of the counters. Readers may observe a
// stale but monotonic view.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Total:    p.total,
		Success:  p.success,
		Failed:   p.failed,
		Attempts: p.attempts,
	}
}

// shouldReport decides whether the reporter owes the sink a notification and,
// if so, advances the high-water mark in the same critical section so
// concurrent ticks never double-report the same delta.
func (p *Progress) shouldReport(threshold int) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.success + p.failed
	if current-p.lastReported < threshold && current < p.total {
		return Snapshot{}, false
	}
	if current == p.lastReported {
		return Snapshot{}, false
	}
	p.lastReported = current
	return Snapshot{Total: p.total, Success: p.success, Failed: p.failed, Attempts: p.attempts}, true
}

// Snapshot is a point-in-time copy of run progress.
type Snapshot struct {
	Total    int
	Success  int
	Failed   int
	Attempts int
}

// Done is the number of recipients with a terminal outcome.
func (s Snapshot) Done() int { return s.Success + s.Failed }

// Store is the persistence surface the engine needs. The full storage layer
// implements it.
type Store interface {
	SetUserBlocked(ctx context.Context, id int64, blocked bool) error
	CreateBroadcast(ctx context.Context, total int) (int64, error)
	FinishBroadcast(ctx context.Context, id int64, success, failed int, status string) error
}

// Sink receives operator-facing progress and completion messages. Notify
// failures never affect run state.
type Sink interface {
	Notify(ctx context.Context, text string) error
}

// Run terminal statuses persisted via Store.FinishBroadcast.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)
