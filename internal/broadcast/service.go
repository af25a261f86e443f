package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"heraldbot/internal/transport"
	"heraldbot/pkg/logx"
)

// Service coordinates broadcast runs. It is safe for concurrent use; config
// may be swapped between runs via Apply (a running broadcast keeps the config
// it started with).
type Service struct {
	mu  sync.Mutex
	cfg Config

	client transport.Client
	store  Store
	sink   Sink
	log    logx.Logger

	runWG sync.WaitGroup
}

func New(cfg Config, client transport.Client, store Store, sink Sink, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg.normalized(),
		client: client,
		store:  store,
		sink:   sink,
		log:    log,
	}
}

// Apply swaps the config used by subsequent runs.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.normalized()
	s.mu.Unlock()
}

// run bundles the per-run state shared between workers and the reporter.
type run struct {
	id       int64
	msg      Message
	cfg      Config
	queue    *workQueue
	limiter  *rate.Limiter
	progress *Progress
}

// Start validates the request, records the run, and schedules it on a
// background goroutine. It returns immediately; callers observe completion
// via the persisted outcome or the completion notification. An empty
// recipient set is a logged no-op: no run record, no notification.
func (s *Service) Start(ctx context.Context, recipients []int64, msg Message) (int64, error) {
	if err := msg.Validate(); err != nil {
		return 0, err
	}
	total := len(recipients)
	if total == 0 {
		s.log.Warn("broadcast requested with no recipients; skipping")
		return 0, nil
	}

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	id, err := s.store.CreateBroadcast(ctx, total)
	if err != nil {
		return 0, fmt.Errorf("create broadcast record: %w", err)
	}

	s.log.Info("broadcast started",
		logx.Int64("broadcast", id),
		logx.Int("total", total),
		logx.Bool("use_copy", msg.Ref != nil),
		logx.Int("concurrency", cfg.Concurrency),
		logx.Int("rate_per_sec", cfg.RatePerSec))

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		s.execute(ctx, id, recipients, msg, cfg)
	}()
	return id, nil
}

// Wait blocks until every scheduled run has reached its terminal outcome.
// Used on shutdown and in tests.
func (s *Service) Wait() { s.runWG.Wait() }

// execute drives one run to completion: seed the queue, launch the pool and
// the reporter, await drain, then finalize. The run has no fatal error path;
// it always persists a terminal outcome.
func (s *Service) execute(ctx context.Context, id int64, recipients []int64, msg Message, cfg Config) {
	start := time.Now()
	total := len(recipients)
	workers := min(cfg.Concurrency, total)

	r := &run{
		id:       id,
		msg:      msg,
		cfg:      cfg,
		queue:    newWorkQueue(recipients, workers),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		progress: newProgress(total),
	}

	repCtx, stopReporter := context.WithCancel(ctx)
	var repWG sync.WaitGroup
	repWG.Add(1)
	go func() {
		defer repWG.Done()
		s.reportLoop(repCtx, r)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func(idx int) {
			defer workerWG.Done()
			s.worker(ctx, r, idx)
		}(i)
	}

	r.queue.drain()
	workerWG.Wait()
	stopReporter()
	repWG.Wait()

	snap := r.progress.Snapshot()
	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}

	// The run context may already be cancelled; finalize on a fresh one so
	// the outcome is persisted regardless.
	fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.FinishBroadcast(fctx, id, snap.Success, snap.Failed, status); err != nil {
		s.log.Error("failed to persist broadcast outcome",
			logx.Int64("broadcast", id), logx.Err(err))
	}
	s.log.Info("broadcast finished",
		logx.Int64("broadcast", id),
		logx.String("status", status),
		logx.Int("success", snap.Success),
		logx.Int("failed", snap.Failed),
		logx.Int("attempts", snap.Attempts),
		logx.Duration("took", time.Since(start)))

	text := fmt.Sprintf("📢 Broadcast finished.\nTotal: %d\nSuccess: %d\nFailed: %d",
		snap.Total, snap.Success, snap.Failed)
	if err := s.sink.Notify(fctx, text); err != nil {
		s.log.Warn("could not send broadcast completion message",
			logx.Int64("broadcast", id), logx.Err(err))
	}
}
