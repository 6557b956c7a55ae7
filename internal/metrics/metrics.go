// Package metrics exposes Prometheus collectors for drive activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "discdrive"

// Collectors groups the drive metrics. Each daemon owns one set so tests can
// register against private registries.
type Collectors struct {
	ReadsTotal       *prometheus.CounterVec
	SectorsReadTotal *prometheus.CounterVec
	ReopensTotal     *prometheus.CounterVec
	DiscPresent      prometheus.Gauge
	SectorCount      prometheus.Gauge
	EventsTotal      *prometheus.CounterVec
}

// New builds an unregistered collector set.
func New() *Collectors {
	return &Collectors{
		ReadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Sector read requests by mode (cooked, raw) and result.",
		}, []string{"mode", "result"}),

		SectorsReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sectors_read_total",
			Help:      "Sectors successfully read by mode.",
		}, []string{"mode"}),

		ReopensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reopens_total",
			Help:      "Device reopen attempts by result (ok, no_media, open_failed).",
		}, []string{"result"}),

		DiscPresent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disc_present",
			Help:      "1 while a usable disc is detected, else 0.",
		}),

		SectorCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sector_count",
			Help:      "Addressable sectors of the current disc.",
		}),

		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_events_total",
			Help:      "Disc insert and removal transitions seen by the monitor.",
		}, []string{"kind"}),
	}
}

// Register adds every collector to reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.ReadsTotal,
		c.SectorsReadTotal,
		c.ReopensTotal,
		c.DiscPresent,
		c.SectorCount,
		c.EventsTotal,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
