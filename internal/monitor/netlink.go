package monitor

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"discdrive/internal/logging"
)

// netlinkListener turns udev media-change uevents for one device into poll
// triggers.
type netlinkListener struct {
	device    string
	logger    *slog.Logger
	onEvent   func()
	connector func() (ueventSource, error)

	mu      sync.Mutex
	conn    ueventSource
	quit    chan struct{}
	running bool
}

// ueventSource is the part of netlink.UEventConn the listener uses.
type ueventSource interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

func newNetlinkListener(device string, logger *slog.Logger, onEvent func()) *netlinkListener {
	return &netlinkListener{
		device:    device,
		logger:    logger,
		onEvent:   onEvent,
		connector: connectUdev,
	}
}

func connectUdev() (ueventSource, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

// Start connects to the udev netlink socket. Connection failures are logged
// and leave polling as the only detection path.
func (l *netlinkListener) Start(ctx context.Context) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	conn, err := l.connector()
	if err != nil {
		logging.WarnWithContext(l.logger, "netlink connect failed; relying on polling", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the process needs access to NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "disc changes are noticed on the next poll only"),
		)
		return
	}
	l.conn = conn
	l.quit = make(chan struct{})
	l.running = true

	go l.loop(ctx, conn, l.quit)
}

// Stop closes the socket and ends the event loop.
func (l *netlinkListener) Stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	close(l.quit)
	l.quit = nil
	_ = l.conn.Close()
	l.conn = nil
	l.running = false
}

// Running reports whether the socket is connected.
func (l *netlinkListener) Running() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *netlinkListener) loop(ctx context.Context, conn ueventSource, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, mediaChangeMatcher())
	defer close(monitorQuit)

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case uevent := <-queue:
			l.handle(uevent)
		case err := <-errs:
			logging.WarnWithContext(l.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a media change may only be noticed on the next poll"),
			)
		}
	}
}

// mediaChangeMatcher accepts add/change uevents from optical block devices.
// ID_CDROM_MEDIA is not required so ejections also match.
func mediaChangeMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"ID_CDROM":  "1",
		},
	})
	return rules
}

func (l *netlinkListener) handle(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" || devname != l.device {
		return
	}
	l.logger.Debug("media change uevent",
		logging.String(logging.FieldEventType, "netlink_media_change"),
		logging.String("action", string(uevent.Action)),
	)
	if l.onEvent != nil {
		l.onEvent()
	}
}

// deviceName returns the /dev path named by a uevent, falling back to the
// last DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !path.IsAbs(devname) {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	return "/dev/" + path.Base(devpath)
}
