package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"discdrive/internal/logging"
)

type fakeConn struct {
	events []netlink.UEvent
	closed chan struct{}
}

func (f *fakeConn) Monitor(queue chan netlink.UEvent, _ chan error, _ netlink.Matcher) chan struct{} {
	quit := make(chan struct{})
	go func() {
		for _, ev := range f.events {
			select {
			case queue <- ev:
			case <-quit:
				return
			}
		}
	}()
	return quit
}

func (f *fakeConn) Close() error {
	close(f.closed)
	return nil
}

func TestDeviceName(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"absolute devname", map[string]string{"DEVNAME": "/dev/sr0"}, "/dev/sr0"},
		{"bare devname", map[string]string{"DEVNAME": "sr1"}, "/dev/sr1"},
		{"devpath fallback", map[string]string{"DEVPATH": "/devices/pci0000:00/ata2/block/sr0"}, "/dev/sr0"},
		{"nothing", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceName(netlink.UEvent{Env: tt.env}); got != tt.want {
				t.Fatalf("deviceName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetlinkListenerTriggersForDevice(t *testing.T) {
	triggered := make(chan struct{}, 4)
	l := newNetlinkListener("/dev/sr0", logging.NewNop(), func() { triggered <- struct{}{} })
	conn := &fakeConn{
		closed: make(chan struct{}),
		events: []netlink.UEvent{
			{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": "/dev/sr1"}},
			{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": "/dev/sr0"}},
		},
	}
	l.connector = func() (ueventSource, error) { return conn, nil }

	l.Start(context.Background())
	if !l.Running() {
		t.Fatal("listener should be running")
	}
	select {
	case <-triggered:
	case <-time.After(2 * time.Second):
		t.Fatal("expected trigger for configured device")
	}
	select {
	case <-triggered:
		t.Fatal("event for another device must not trigger")
	case <-time.After(50 * time.Millisecond):
	}

	l.Stop()
	select {
	case <-conn.closed:
	default:
		t.Fatal("Stop should close the connection")
	}
	if l.Running() {
		t.Fatal("listener should be stopped")
	}
}

func TestNetlinkListenerConnectFailure(t *testing.T) {
	l := newNetlinkListener("/dev/sr0", logging.NewNop(), nil)
	l.connector = func() (ueventSource, error) { return nil, errors.New("operation not permitted") }
	l.Start(context.Background())
	if l.Running() {
		t.Fatal("listener must not run without a socket")
	}
	l.Stop()

	var nilListener *netlinkListener
	nilListener.Start(context.Background())
	nilListener.Stop()
	if nilListener.Running() {
		t.Fatal("nil listener reports not running")
	}
}
