package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand returns values from a fixed sequence, wrapping around and reducing modulo n.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func TestGenerator_Activity(t *testing.T) {
	rnd := &seqRand{vals: []int{1, 2}}
	gen := NewGenerator(rnd, nil, []string{"Ann", "Bob", "Cid"}, nil)

	a := gen.Activity(42)

	assert.Equal(t, int64(42), a.ID)
	assert.Equal(t, KindPaymentReceived, a.Kind)
	assert.Equal(t, "Cid", a.Customer)
	assert.Equal(t, KindPaymentReceived.Message(), a.Message)
	assert.Equal(t, "Just now", a.OccurredLabel)
	assert.Equal(t, "dollar-sign", a.Icon)
	assert.Equal(t, "green", a.Color)
}

func TestGenerator_Snapshot(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	gen := NewGenerator(&seqRand{vals: []int{3, 7, 11}}, fixedClock(now), nil, []string{"Ann", "Bob"})

	a := NewActivity(1, KindTaskCreated, "Ann")
	snap := gen.Snapshot(a)

	assert.Equal(t, now, snap.LastUpdated)
	assert.Equal(t, []Activity{a}, snap.RecentActivities)
	require.Len(t, snap.TaskStatuses, len(statusPalette))
	require.Len(t, snap.TechnicianWorkload, 2)
	assert.Equal(t, "Ann", snap.TechnicianWorkload[0].Name)
	assert.Equal(t, "Pending", snap.TaskStatuses[0].Status)

	assert.GreaterOrEqual(t, snap.KPI.ActiveTasks, 20)
	assert.LessOrEqual(t, snap.KPI.ActiveTasks, 60)
	assert.GreaterOrEqual(t, snap.KPI.RevenueToday, 500.0)
	for i, st := range snap.TaskStatuses {
		assert.LessOrEqual(t, st.Count, statusPalette[i].max)
	}
}

func TestGenerator_DefaultsApplied(t *testing.T) {
	gen := NewGenerator(&seqRand{}, nil, nil, nil)

	snap := gen.Snapshot()

	assert.Len(t, snap.TechnicianWorkload, len(DefaultTechnicians))
	assert.Empty(t, snap.RecentActivities)
	assert.False(t, snap.LastUpdated.IsZero())
	assert.Contains(t, DefaultCustomers, gen.Activity(1).Customer)
}

func TestSnapshot_Clone(t *testing.T) {
	gen := NewGenerator(&seqRand{vals: []int{1}}, nil, nil, nil)
	orig := gen.Snapshot(NewActivity(1, KindTaskCreated, "Ann"))

	c := orig.Clone()
	c.RecentActivities[0].Customer = "changed"
	c.TaskStatuses[0].Count = -1
	c.TechnicianWorkload[0].Name = "changed"

	assert.Equal(t, "Ann", orig.RecentActivities[0].Customer)
	assert.NotEqual(t, -1, orig.TaskStatuses[0].Count)
	assert.NotEqual(t, "changed", orig.TechnicianWorkload[0].Name)

	newest, ok := orig.Newest()
	require.True(t, ok)
	assert.Equal(t, int64(1), newest.ID)

	_, ok = Snapshot{}.Newest()
	assert.False(t, ok)
}
