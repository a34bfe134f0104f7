// Package metrics exposes aggregator activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const namespace = "shoppulse"

// Collector records aggregator activity. It implements aggregator.Observer.
type Collector struct {
	ticks      prometheus.Counter
	snapshots  *prometheus.CounterVec
	broadcasts prometheus.Counter
	dropped    *prometheus.CounterVec

	subscribers prometheus.Gauge
	feedSize    prometheus.Gauge
}

var _ aggregator.Observer = (*Collector)(nil)

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of timer ticks that produced a snapshot",
		}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total number of snapshots produced, by reason",
		}, []string{"reason"}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of snapshots delivered to subscribers",
		}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Total number of snapshots dropped for slow clients, by transport",
		}, []string{"transport"}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Current number of aggregator subscribers",
		}),
		feedSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_size",
			Help:      "Number of activities in the most recent snapshot",
		}),
	}
}

// OnSnapshot counts a produced snapshot and its deliveries.
func (c *Collector) OnSnapshot(snap feed.Snapshot, reason aggregator.Reason, delivered int) {
	if reason == aggregator.ReasonTick {
		c.ticks.Inc()
	}
	c.snapshots.WithLabelValues(string(reason)).Inc()
	c.broadcasts.Add(float64(delivered))
	c.feedSize.Set(float64(len(snap.RecentActivities)))
}

// OnSubscribers tracks the subscriber count. The feed is cleared when the last
// subscriber leaves.
func (c *Collector) OnSubscribers(n int) {
	c.subscribers.Set(float64(n))
	if n == 0 {
		c.feedSize.Set(0)
	}
}

// Dropped counts a snapshot a transport could not deliver.
func (c *Collector) Dropped(transport string) {
	c.dropped.WithLabelValues(transport).Inc()
}
