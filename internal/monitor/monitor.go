package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"discdrive/internal/config"
	"discdrive/internal/disc"
	"discdrive/internal/disc/fingerprint"
	"discdrive/internal/logging"
)

// Handler receives transitions. It runs on the monitor goroutine without the
// source lock held, so it may call Monitor.Do.
type Handler func(ctx context.Context, ev Event)

// FingerprintFunc computes the identity of the disc cached by src.
type FingerprintFunc func(ctx context.Context, src disc.Source) (string, error)

// Monitor polls a Source for disc presence.
type Monitor struct {
	src         disc.Source
	device      string
	logger      *slog.Logger
	interval    time.Duration
	limiter     *rate.Limiter
	handler     Handler
	fingerprint FingerprintFunc
	netlink     bool
	now         func() time.Time

	// srcMu serializes every call into src.
	srcMu sync.Mutex

	// Poll state, only touched under srcMu.
	needOpen bool
	present  bool
	current  Event

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
	events  *netlinkListener
}

// New builds a monitor for src using the [monitor] and [drive] settings.
func New(cfg *config.Config, src disc.Source, logger *slog.Logger, handler Handler) *Monitor {
	interval := time.Duration(cfg.Monitor.PollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	perMinute := cfg.Monitor.ReopenPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	burst := max(cfg.Monitor.ReopenBurst, 1)

	return &Monitor{
		src:         src,
		device:      cfg.Drive.Device,
		logger:      logging.NewComponentLogger(logger, "monitor").With(logging.String(logging.FieldDevice, cfg.Drive.Device)),
		interval:    interval,
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
		handler:     handler,
		fingerprint: defaultFingerprint,
		netlink:     cfg.Monitor.Netlink,
		now:         time.Now,
		needOpen:    true,
		trigger:     make(chan struct{}, 1),
	}
}

func defaultFingerprint(ctx context.Context, src disc.Source) (string, error) {
	return fingerprint.ComputeTimeout(ctx, src, 30*time.Second)
}

// Start begins polling. It returns an error if the monitor already runs.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("disc monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	if m.netlink {
		m.events = newNetlinkListener(m.device, m.logger, m.Trigger)
		m.events.Start(runCtx)
	}

	m.wg.Add(1)
	go m.loop(runCtx)

	m.logger.Info("disc monitor started",
		logging.String(logging.FieldEventType, "monitor_started"),
		logging.Duration("poll_interval", m.interval),
		logging.Bool("netlink", m.events.Running()),
	)
	return nil
}

// Stop halts polling and waits for the loop to exit. The source stays open.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	events := m.events
	m.running = false
	m.cancel = nil
	m.events = nil
	m.mu.Unlock()

	events.Stop()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("disc monitor stopped", logging.String(logging.FieldEventType, "monitor_stopped"))
}

// Running reports whether the poll loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Trigger requests an immediate poll. It never blocks; a pending request
// absorbs further ones.
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Do runs fn with exclusive access to the source.
func (m *Monitor) Do(fn func(src disc.Source) error) error {
	m.srcMu.Lock()
	defer m.srcMu.Unlock()
	return fn(m.src)
}

// Current returns the last inserted event while a disc is present.
func (m *Monitor) Current() (Event, bool) {
	m.srcMu.Lock()
	defer m.srcMu.Unlock()
	return m.current, m.present
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	m.Poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.trigger:
		}
		m.Poll(ctx)
	}
}

// Poll runs one presence check and dispatches any resulting events.
func (m *Monitor) Poll(ctx context.Context) {
	for _, ev := range m.check(ctx) {
		if m.handler != nil {
			m.handler(ctx, ev)
		}
	}
}

func (m *Monitor) check(ctx context.Context) []Event {
	m.srcMu.Lock()
	defer m.srcMu.Unlock()

	if m.needOpen {
		if !m.allowReprobe() {
			return nil
		}
		err := m.src.Reopen()
		if err != nil && !errors.Is(err, disc.ErrNoMedia) {
			return m.transition(ctx, false)
		}
		m.needOpen = false
		return m.transition(ctx, err == nil)
	}

	// With no cached geometry, DiscReady reprobes when the drive reports a
	// disc, so such polls spend a token.
	if m.src.Geometry().Empty() && !m.allowReprobe() {
		return nil
	}
	ready := m.src.DiscReady()
	if !ready && !m.src.IsOpen() {
		// A reprobe inside DiscReady can fail to open the device and leave
		// the source closed; DiscReady never reopens a closed source.
		m.needOpen = true
	}
	return m.transition(ctx, ready)
}

func (m *Monitor) allowReprobe() bool {
	if m.limiter.Allow() {
		return true
	}
	m.logger.Debug("reprobe deferred by rate limit")
	return false
}

// transition compares the new verdict with the last one. A geometry change
// while present is reported as removal followed by insertion.
func (m *Monitor) transition(ctx context.Context, ready bool) []Event {
	var events []Event
	geometry := m.src.Geometry()

	if m.present && (!ready || geometry != m.current.Geometry) {
		removed := m.current
		removed.Kind = Removed
		removed.At = m.now()
		events = append(events, removed)
		m.present = false
		m.current = Event{}
	}
	if ready && !m.present {
		ev := Event{
			Kind:     Inserted,
			Device:   m.device,
			Geometry: geometry,
			Tracks:   m.src.ReadTOC(),
			At:       m.now(),
		}
		if m.fingerprint != nil {
			fp, err := m.fingerprint(ctx, m.src)
			if err != nil {
				logging.WarnWithContext(m.logger, "disc fingerprint failed", "fingerprint_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "history entry stored without fingerprint"),
				)
			}
			ev.Fingerprint = fp
		}
		m.present = true
		m.current = ev
		events = append(events, ev)
	}
	for _, ev := range events {
		m.logger.Info("disc "+ev.Kind.String(),
			logging.String(logging.FieldEventType, "disc_"+ev.Kind.String()),
			logging.String("media_type", ev.Geometry.Media.String()),
			logging.Uint64("sector_count", uint64(ev.Geometry.SectorCount)),
		)
	}
	return events
}
