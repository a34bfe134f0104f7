package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/feed"
)

func snapshotOf(n int) feed.Snapshot {
	snap := feed.Snapshot{}
	for i := n; i > 0; i-- {
		snap.RecentActivities = append(snap.RecentActivities, feed.NewActivity(int64(i), feed.KindTaskCompleted, "Lisa Anderson"))
	}
	return snap
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.OnSubscribers(1)
	c.OnSnapshot(snapshotOf(1), aggregator.ReasonConnect, 1)
	c.OnSubscribers(2)
	c.OnSnapshot(snapshotOf(2), aggregator.ReasonConnect, 1)
	c.OnSnapshot(snapshotOf(3), aggregator.ReasonTick, 2)
	c.OnSnapshot(snapshotOf(4), aggregator.ReasonTick, 2)
	c.Dropped("ws")

	assert.InDelta(t, 2, testutil.ToFloat64(c.ticks), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.snapshots.WithLabelValues("connect")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.snapshots.WithLabelValues("tick")), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(c.broadcasts), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.subscribers), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(c.feedSize), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.dropped.WithLabelValues("ws")), 0)

	c.OnSubscribers(0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.subscribers), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.feedSize), 0)
}

func TestCollector_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.OnSnapshot(snapshotOf(1), aggregator.ReasonTick, 1)
	c.Dropped("sse")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Subset(t, names, []string{
		"shoppulse_ticks_total",
		"shoppulse_snapshots_total",
		"shoppulse_broadcasts_total",
		"shoppulse_dropped_frames_total",
		"shoppulse_subscribers",
		"shoppulse_feed_size",
	})
}

func TestCollector_WiredToAggregator(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	gen := feed.NewGenerator(zeroRand{}, nil, nil, nil)
	agg := aggregator.New(gen, aggregator.WithObserver(c))
	t.Cleanup(agg.Close)

	s1 := agg.Connect(nil)
	s2 := agg.Connect(nil)
	assert.InDelta(t, 2, testutil.ToFloat64(c.subscribers), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.feedSize), 0)

	s1.Close()
	s2.Close()
	assert.InDelta(t, 0, testutil.ToFloat64(c.subscribers), 0)
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }
