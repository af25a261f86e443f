package broadcast

import (
	"context"
	"runtime/debug"
	"time"

	"heraldbot/pkg/logx"
)

// worker pulls recipients until it dequeues a stop sentinel. Each recipient
// is owned by exactly one worker; a single recipient's failure is fully
// isolated and never terminates the worker or the run.
func (s *Service) worker(ctx context.Context, r *run, idx int) {
	for {
		it := r.queue.pop()
		if it.stop {
			r.queue.ack()
			return
		}
		if ctx.Err() != nil {
			// Run cancelled: keep draining so the coordinator unblocks, but
			// stop delivering.
			r.progress.addFailed()
			r.queue.ack()
			continue
		}
		s.handleOne(ctx, r, it.id, idx)
	}
}

// handleOne isolates one recipient. The entry is acknowledged no matter how
// delivery ends; a panic counts the recipient failed and the worker lives on,
// so the queue drain can never stall on a single bad delivery.
func (s *Service) handleOne(ctx context.Context, r *run, recipient int64, idx int) {
	defer r.queue.ack()
	defer func() {
		if rec := recover(); rec != nil {
			r.progress.addFailed()
			s.log.Error("panic during delivery",
				logx.Int("worker", idx),
				logx.Int64("recipient", recipient),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	s.processOne(ctx, r, recipient)
}

// processOne runs the bounded per-recipient state machine: deliver, classify,
// and on deferral sleep the server-mandated delay and try again, up to
// RetryMax total attempts.
func (s *Service) processOne(ctx context.Context, r *run, recipient int64) {
	for attempt := 1; ; attempt++ {
		// Shared throughput gate across all workers. Waiting here (before the
		// attempt, not after) lets the pool supply burst capacity while the
		// bucket caps the sustained rate.
		if err := r.limiter.Wait(ctx); err != nil {
			r.progress.addFailed()
			return
		}
		r.progress.addAttempt()

		out := s.deliver(ctx, recipient, r.msg)
		switch out.Kind {
		case Delivered:
			r.progress.addSuccess()
			return

		case Unreachable:
			if err := s.store.SetUserBlocked(ctx, recipient, true); err != nil {
				s.log.Error("failed to mark recipient blocked",
					logx.Int64("recipient", recipient), logx.Err(err))
			}
			r.progress.addFailed()
			s.log.Info("recipient unreachable; marked blocked",
				logx.Int64("recipient", recipient))
			return

		case Failed:
			r.progress.addFailed()
			s.log.Warn("delivery failed", logx.Int64("recipient", recipient))
			return

		case Deferred:
			if attempt >= r.cfg.RetryMax {
				r.progress.addFailed()
				s.log.Warn("delivery gave up after deferrals",
					logx.Int64("recipient", recipient),
					logx.Int("attempts", attempt))
				return
			}
			s.log.Warn("delivery deferred",
				logx.Int64("recipient", recipient),
				logx.Int("attempt", attempt),
				logx.Int("max", r.cfg.RetryMax),
				logx.Duration("delay", out.RetryAfter))
			if !sleepCtx(ctx, out.RetryAfter) {
				r.progress.addFailed()
				return
			}
		}
	}
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
