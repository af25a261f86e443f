package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"heraldbot/internal/broadcast"
	"heraldbot/internal/config"
	"heraldbot/internal/router"
	"heraldbot/internal/storage"
	"heraldbot/internal/transport/telegram"
	"heraldbot/pkg/logx"
)

// App owns the bot's components and their lifecycle.
type App struct {
	cfg *config.Config
	mgr *config.Manager
	log logx.Logger

	logFile *os.File
	store   storage.Store
	client  *telegram.Client
	bcast   *broadcast.Service
	router  *router.Router
	cron    *cron.Cron

	wg sync.WaitGroup
}

// New loads the config and builds every component. Nothing is started yet.
func New(configPath string) (*App, error) {
	cfg, err := config.NewManager(configPath, logx.Nop()).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logFile, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	// Rebuild the manager with the real logger so watch-time reloads are
	// visible in the logs.
	a := &App{cfg: cfg, log: log, logFile: logFile}
	a.mgr = config.NewManager(configPath, log.With(logx.String("component", "config")))
	if _, err := a.mgr.Load(); err != nil {
		a.close()
		return nil, fmt.Errorf("load config: %w", err)
	}

	d := cfg.Durations()

	a.store, err = storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: d.StorageBusyTimeout,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a.client, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: d.PollTimeout,
	}, log.With(logx.String("component", "telegram")))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init telegram: %w", err)
	}

	sink := adminSink{client: a.client, chatID: cfg.Telegram.AdminGroupID}
	a.bcast = broadcast.New(broadcastConfig(cfg), a.client, a.store, sink,
		log.With(logx.String("component", "broadcast")))

	a.router = router.New(a.client.Bot(), a.store, a.bcast,
		cfg.Telegram.AdminGroupID, cfg.Telegram.AdminUserIDs,
		log.With(logx.String("component", "router")))

	return a, nil
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// down in reverse order. In-flight broadcasts are awaited so their outcomes
// are persisted.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.router.Register(ctx)

	if err := a.startCron(); err != nil {
		return err
	}

	updates := a.mgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.applyUpdates(ctx, updates)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.mgr.Watch(ctx); err != nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.client.Start()
	}()

	a.log.Info("bot started",
		logx.Int64("admin_group", a.cfg.Telegram.AdminGroupID),
		logx.String("storage", a.cfg.Storage.Driver))

	<-ctx.Done()
	a.log.Info("shutting down")

	a.client.Stop()
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	a.bcast.Wait()
	a.wg.Wait()
	return nil
}

func (a *App) startCron() error {
	schedule := a.cfg.Maintenance.CleanupSchedule
	if schedule == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := a.store.DeleteBlockedUsers(ctx)
		if err != nil {
			a.log.Error("scheduled cleanup failed", logx.Err(err))
			return
		}
		a.log.Info("scheduled cleanup done", logx.Int64("removed", n))
	})
	if err != nil {
		return fmt.Errorf("maintenance.cleanup_schedule: %w", err)
	}
	c.Start()
	a.cron = c
	a.log.Info("cleanup scheduled", logx.String("cron", schedule))
	return nil
}

// applyUpdates pushes committed config reloads into the components that can
// retune live. Only broadcast settings are hot; everything else needs a
// restart.
func (a *App) applyUpdates(ctx context.Context, updates <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.bcast.Apply(broadcastConfig(cfg))
			a.log.Info("broadcast settings reloaded",
				logx.Int("batch_size", cfg.Broadcast.BatchSize),
				logx.Int("rate_per_sec", cfg.Broadcast.RatePerSec))
		}
	}
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close storage", logx.Err(err))
		}
		a.store = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

func broadcastConfig(cfg *config.Config) broadcast.Config {
	return broadcast.Config{
		Concurrency:     cfg.Broadcast.BatchSize,
		RatePerSec:      cfg.Broadcast.RatePerSec,
		RetryMax:        cfg.Broadcast.RetryMax,
		ReportEvery:     cfg.Durations().ReportEvery,
		ReportThreshold: cfg.Broadcast.ReportThreshold,
	}
}

// adminSink delivers operator notifications to the admin group chat.
type adminSink struct {
	client *telegram.Client
	chatID int64
}

func (s adminSink) Notify(ctx context.Context, text string) error {
	return s.client.SendText(ctx, s.chatID, text)
}

// buildLogger assembles the sinks from the logging section. The returned file
// handle, if any, must outlive the logger.
func buildLogger(cfg config.LoggingConfig) (logx.Logger, *os.File, error) {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, logx.NewConsoleWriter(os.Stdout))
	}
	var f *os.File
	if cfg.File.Enabled {
		path := cfg.File.Path
		if path == "" {
			path = "heraldbot.log"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return logx.Logger{}, nil, err
			}
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return logx.Logger{}, nil, err
		}
		writers = append(writers, f)
	}
	return logx.New(cfg.Level, writers...), f, nil
}
