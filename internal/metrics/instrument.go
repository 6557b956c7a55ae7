package metrics

import (
	"errors"

	"discdrive/internal/disc"
)

const (
	resultOK         = "ok"
	resultError      = "error"
	resultNoMedia    = "no_media"
	resultOpenFailed = "open_failed"
)

// Instrumented decorates a disc.Source with counters and gauges. Calls pass
// straight through; results are only observed.
type Instrumented struct {
	disc.Source
	c        *Collectors
	observed bool
}

// Instrument wraps src so its activity is recorded in c.
func Instrument(src disc.Source, c *Collectors) *Instrumented {
	inst := &Instrumented{Source: src, c: c}
	if obs, ok := src.(disc.ReopenObserver); ok {
		obs.ObserveReopen(inst.recordReopen)
		inst.observed = true
	}
	return inst
}

// Unwrap returns the decorated source.
func (s *Instrumented) Unwrap() disc.Source { return s.Source }

func (s *Instrumented) Reopen() error {
	err := s.Source.Reopen()
	if !s.observed {
		s.recordReopen(err)
	}
	s.observeGeometry()
	return err
}

// recordReopen counts one reopen by result.
func (s *Instrumented) recordReopen(err error) {
	switch {
	case err == nil:
		s.c.ReopensTotal.WithLabelValues(resultOK).Inc()
	case errors.Is(err, disc.ErrNoMedia):
		s.c.ReopensTotal.WithLabelValues(resultNoMedia).Inc()
	default:
		s.c.ReopensTotal.WithLabelValues(resultOpenFailed).Inc()
	}
}

func (s *Instrumented) Close() error {
	err := s.Source.Close()
	s.observeGeometry()
	return err
}

func (s *Instrumented) ReadSectors2048(sector, count uint32, buf []byte) error {
	err := s.Source.ReadSectors2048(sector, count, buf)
	s.observeRead("cooked", count, err)
	return err
}

func (s *Instrumented) ReadSectors2352(sector, count uint32, buf []byte) error {
	err := s.Source.ReadSectors2352(sector, count, buf)
	s.observeRead("raw", count, err)
	return err
}

func (s *Instrumented) DiscReady() bool {
	ready := s.Source.DiscReady()
	s.observeGeometry()
	return ready
}

func (s *Instrumented) observeRead(mode string, count uint32, err error) {
	if err != nil {
		s.c.ReadsTotal.WithLabelValues(mode, resultError).Inc()
		return
	}
	s.c.ReadsTotal.WithLabelValues(mode, resultOK).Inc()
	s.c.SectorsReadTotal.WithLabelValues(mode).Add(float64(count))
}

func (s *Instrumented) observeGeometry() {
	count := s.Source.SectorCount()
	s.c.SectorCount.Set(float64(count))
	if count != 0 {
		s.c.DiscPresent.Set(1)
	} else {
		s.c.DiscPresent.Set(0)
	}
}
