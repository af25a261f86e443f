package broadcast

import (
	"context"
	"fmt"
	"time"

	"heraldbot/pkg/logx"
)

// reportLoop periodically pushes aggregate progress to the sink. It reads a
// locked snapshot and never blocks workers; notify failures are logged and
// swallowed. Cancellation after the queue drains is the normal exit.
func (s *Service) reportLoop(ctx context.Context, r *run) {
	ticker := time.NewTicker(r.cfg.ReportEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, ok := r.progress.shouldReport(r.cfg.ReportThreshold)
		if !ok {
			continue
		}
		text := fmt.Sprintf("📢 Broadcast progress: %d/%d (✓ %d ✗ %d)",
			snap.Done(), snap.Total, snap.Success, snap.Failed)
		if err := s.sink.Notify(ctx, text); err != nil {
			s.log.Warn("could not send broadcast progress",
				logx.Int64("broadcast", r.id), logx.Err(err))
			continue
		}
		s.log.Info("broadcast progress reported",
			logx.Int64("broadcast", r.id),
			logx.Int("done", snap.Done()),
			logx.Int("total", snap.Total))
	}
}
