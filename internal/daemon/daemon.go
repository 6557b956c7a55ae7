package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"

	"discdrive/internal/api"
	"discdrive/internal/config"
	"discdrive/internal/disc"
	"discdrive/internal/history"
	"discdrive/internal/logging"
	"discdrive/internal/metrics"
	"discdrive/internal/monitor"
	"discdrive/internal/preflight"
)

// ErrAlreadyRunning is returned by Start when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another discdrive daemon instance is already running")

// Daemon owns the drive for the lifetime of the process.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	src        disc.Source
	store      *history.Store
	collectors *metrics.Collectors
	registry   *prometheus.Registry
	monitor    *monitor.Monitor
	api        *apiServer

	lock       *flock.Flock
	deviceLock *flock.Flock

	// recordID is the history row of the disc currently in the drive.
	recordMu sync.Mutex
	recordID string

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon around src. The daemon takes ownership of src and
// store and closes both in Close.
func New(cfg *config.Config, src disc.Source, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || src == nil || store == nil {
		return nil, errors.New("daemon requires config, source, and history store")
	}
	base := logger
	logger = logging.NewComponentLogger(logger, "daemon")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		promcollectors.NewGoCollector(),
		promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}),
	)
	collectors := metrics.New()
	if err := collectors.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		src:        metrics.Instrument(src, collectors),
		store:      store,
		collectors: collectors,
		registry:   registry,
		lock:       flock.New(cfg.DaemonLockPath()),
		deviceLock: flock.New(cfg.DeviceLockPath()),
	}
	d.monitor = monitor.New(cfg, d.src, base, d.handleEvent)
	d.api = newAPIServer(cfg.Metrics.Bind, d, logger)
	return d, nil
}

// Start acquires the daemon and device locks, then launches the monitor and
// the HTTP listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	ok, err = d.deviceLock.TryLock()
	if err != nil || !ok {
		_ = d.lock.Unlock()
		if err == nil {
			err = fmt.Errorf("device %s is locked by another process", d.cfg.Drive.Device)
		}
		return fmt.Errorf("acquire device lock: %w", err)
	}

	if n, err := d.store.CloseOpen(ctx, d.cfg.Drive.Device, time.Now()); err != nil {
		logging.WarnWithContext(d.logger, "could not close stale history rows", "history_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may show a previous disc as still present"),
		)
	} else if n > 0 {
		d.logger.Info("closed stale history rows", logging.Int64("count", n))
	}

	for _, result := range preflight.Failed(preflight.RunAll(d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "the monitor keeps polling until the problem clears"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.releaseLocks()
		return err
	}
	if err := d.monitor.Start(runCtx); err != nil {
		cancel()
		d.api.stop()
		d.releaseLocks()
		return fmt.Errorf("start monitor: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)

	d.logger.Info("discdrive daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String(logging.FieldDevice, d.cfg.Drive.Device),
		logging.String("lock", d.cfg.DaemonLockPath()),
	)
	return nil
}

// Stop halts the monitor and listener and releases the locks. The drive
// handle stays open until Close.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.monitor.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.releaseLocks()
	d.running.Store(false)
	d.logger.Info("discdrive daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) releaseLocks() {
	if err := d.deviceLock.Unlock(); err != nil {
		d.logger.Warn("failed to release device lock", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close stops the daemon, closes the drive and the history store.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.monitor.Do(func(src disc.Source) error { return src.Close() }); err != nil {
		errs = append(errs, fmt.Errorf("close drive: %w", err))
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	return errors.Join(errs...)
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool { return d.running.Load() }

// Addr returns the HTTP listen address, or "" when the listener is off.
func (d *Daemon) Addr() string { return d.api.addr() }

// Status describes the drive as the monitor last saw it.
func (d *Daemon) Status() api.DriveStatus {
	var status api.DriveStatus
	if ev, ok := d.monitor.Current(); ok {
		status = api.FromEvent(ev)
	} else {
		status = api.FromGeometry(d.cfg.Drive.Device, disc.Geometry{}, nil)
	}
	status.Daemon = &api.Daemon{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		HistoryPath: d.store.Path(),
		LockPath:    d.cfg.DaemonLockPath(),
	}
	return status
}

func (d *Daemon) handleEvent(ctx context.Context, ev monitor.Event) {
	d.collectors.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	d.recordMu.Lock()
	defer d.recordMu.Unlock()

	switch ev.Kind {
	case monitor.Inserted:
		rec, err := d.store.RecordInsert(ctx, history.Detection{
			Device:      ev.Device,
			Geometry:    ev.Geometry,
			Tracks:      len(ev.Tracks),
			Fingerprint: ev.Fingerprint,
			At:          ev.At,
		})
		if err != nil {
			logging.WarnWithContext(d.logger, "history insert failed", "history_insert_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "disc missing from history"),
			)
			d.recordID = ""
			return
		}
		d.recordID = rec.ID
	case monitor.Removed:
		if d.recordID == "" {
			return
		}
		if err := d.store.RecordRemoval(ctx, d.recordID, ev.At); err != nil {
			logging.WarnWithContext(d.logger, "history removal failed", "history_removal_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows the disc as still present"),
			)
		}
		d.recordID = ""
	}
}
