package disc

import (
	"errors"
	"fmt"
	"log/slog"

	"discdrive/internal/logging"
)

// IOCtlSource is a Source backed by a physical drive accessed through the
// host's block device and CD-ROM/DVD control requests.
type IOCtlSource struct {
	path          string
	open          Opener
	logger        *slog.Logger
	spindleSpeed  int
	speedSelected bool
	onReopen      func(error)

	dev      Device
	geometry Geometry
	toc      []TocEntry
}

var _ Source = (*IOCtlSource)(nil)

// Option customizes an IOCtlSource.
type Option func(*IOCtlSource)

// WithLogger routes diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *IOCtlSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSpindleSpeed enables the spindle speed request for CD media. Zero, the
// default, leaves the drive speed untouched.
func WithSpindleSpeed(speed int) Option {
	return func(s *IOCtlSource) {
		if speed > 0 {
			s.spindleSpeed = speed
		}
	}
}

// WithOpener replaces the OS device opener.
func WithOpener(open Opener) Option {
	return func(s *IOCtlSource) {
		if open != nil {
			s.open = open
		}
	}
}

// NewIOCtlSource returns a closed source for the drive at path. Call Reopen
// to open it and detect the medium, and Close to release it.
func NewIOCtlSource(path string, opts ...Option) *IOCtlSource {
	s := &IOCtlSource{
		path:   NormalizeDevicePath(path),
		open:   openDevice,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.String("device", s.path))
	return s
}

// Path returns the device path the source opens.
func (s *IOCtlSource) Path() string {
	return s.path
}

// IsOpen reports whether the source currently holds a device handle.
func (s *IOCtlSource) IsOpen() bool {
	return s.dev != nil
}

// ObserveReopen replaces the Reopen observer. It implements ReopenObserver.
func (s *IOCtlSource) ObserveReopen(fn func(error)) {
	s.onReopen = fn
}

// Reopen closes any open handle, opens the device again and probes the
// medium, DVD first. A *OpenError leaves the source closed; a *ProbeError
// leaves it open with empty geometry.
func (s *IOCtlSource) Reopen() error {
	err := s.reopen()
	if s.onReopen != nil {
		s.onReopen(err)
	}
	return err
}

func (s *IOCtlSource) reopen() error {
	s.closeDevice()
	s.geometry = Geometry{}
	s.toc = nil

	dev, err := s.open(s.path)
	if err != nil {
		openErr := &OpenError{Path: s.path, Err: err}
		logging.ErrorWithContext(s.logger, "open optical drive failed", "drive_open_failed",
			logging.Error(openErr),
			logging.String(logging.FieldErrorHint, "check the device path and read permission on it"),
		)
		return openErr
	}
	s.dev = dev

	// The TOC requests also answer on DVDs, so the DVD structure query has to
	// classify the medium first.
	dvdErr := s.readDVDInfo()
	if dvdErr == nil {
		s.setSpindleSpeed(false)
		s.logDetected()
		return nil
	}
	cdErr := s.readCDInfo()
	if cdErr == nil {
		s.setSpindleSpeed(false)
		s.logDetected()
		return nil
	}

	s.geometry = Geometry{}
	s.toc = nil
	s.logger.Debug("no recognizable media",
		logging.String("dvd_probe", errString(dvdErr)),
		logging.String("cd_probe", errString(cdErr)),
	)
	return &ProbeError{Path: s.path, DVD: dvdErr, CD: cdErr}
}

// Close requests the drive default spindle speed, ignoring errors, and
// releases the handle. Closing a closed source is a no-op.
func (s *IOCtlSource) Close() error {
	if s.dev == nil {
		return nil
	}
	s.setSpindleSpeed(true)
	err := s.dev.Close()
	s.dev = nil
	return err
}

// closeDevice releases the handle ahead of a reopen. A selected CD speed is
// restored first; the flag survives a failed restore so Close retries it.
func (s *IOCtlSource) closeDevice() {
	if s.dev == nil {
		return
	}
	s.setSpindleSpeed(true)
	if err := s.dev.Close(); err != nil {
		s.logger.Debug("close previous handle", logging.Error(err))
	}
	s.dev = nil
}

// setSpindleSpeed applies the configured CD speed after detection, or
// restores the drive default when restore is set. Without a configured speed
// it does nothing. Failures are logged and otherwise ignored.
func (s *IOCtlSource) setSpindleSpeed(restore bool) {
	if s.spindleSpeed == 0 || s.dev == nil {
		return
	}
	speed := s.spindleSpeed
	if restore {
		if !s.speedSelected {
			return
		}
		speed = 0
	} else if s.geometry.Media != MediaCD {
		return
	}
	if err := s.dev.SelectSpeed(speed); err != nil {
		s.logger.Debug("spindle speed request ignored",
			logging.Int("speed", speed),
			logging.Error(err),
		)
		return
	}
	s.speedSelected = !restore
}

func (s *IOCtlSource) logDetected() {
	s.logger.Info("media detected",
		logging.String(logging.FieldEventType, "media_detected"),
		logging.String("media_type", s.geometry.Media.String()),
		logging.Uint64("sector_count", uint64(s.geometry.SectorCount)),
		logging.Uint64("layer_break", uint64(s.geometry.LayerBreak)),
		logging.Int("tracks", len(s.toc)),
	)
}

func (s *IOCtlSource) Geometry() Geometry { return s.geometry }

func (s *IOCtlSource) SectorCount() uint32 { return s.geometry.SectorCount }

func (s *IOCtlSource) LayerBreak() uint32 { return s.geometry.LayerBreak }

func (s *IOCtlSource) MediaType() MediaType { return s.geometry.Media }

// ReadTOC returns a copy of the tracks found by the last CD probe.
func (s *IOCtlSource) ReadTOC() []TocEntry {
	if len(s.toc) == 0 {
		return nil
	}
	out := make([]TocEntry, len(s.toc))
	copy(out, s.toc)
	return out
}

// ReadTrackSubQ queries the current subchannel Q position.
func (s *IOCtlSource) ReadTrackSubQ() (SubQ, error) {
	if s.dev == nil {
		return SubQ{}, fmt.Errorf("%w: %w", ErrSubchannel, ErrClosed)
	}
	subQ, err := s.dev.ReadSubchannel()
	if err != nil {
		logging.ErrorWithContext(s.logger, "subchannel read error", "subchannel_read_failed",
			logging.Error(err),
		)
		return SubQ{}, fmt.Errorf("%w: %w", ErrSubchannel, err)
	}
	return subQ, nil
}

// DiscReady polls the current slot of the drive. A disc that appears while no
// geometry is cached triggers a reprobe; any other status than disc OK
// clears the geometry. The verdict follows the geometry, not the raw status.
func (s *IOCtlSource) DiscReady() bool {
	if s.dev == nil {
		return false
	}

	status, err := s.dev.DriveStatus()
	if err == nil && status == DriveStatusDiscOK {
		if s.geometry.SectorCount == 0 {
			if err := s.Reopen(); err != nil && !errors.Is(err, ErrNoMedia) {
				s.logger.Debug("reopen after disc insertion failed", logging.Error(err))
			}
		}
	} else {
		if !s.geometry.Empty() {
			s.logger.Info("media removed",
				logging.String(logging.FieldEventType, "media_removed"),
				logging.String("drive_status", status.String()),
			)
		}
		s.geometry = Geometry{}
		s.toc = nil
	}

	return s.geometry.SectorCount != 0
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
