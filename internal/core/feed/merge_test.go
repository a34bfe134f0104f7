package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activities(ids ...int64) []Activity {
	out := make([]Activity, len(ids))
	for i, id := range ids {
		out[i] = NewActivity(id, KindTaskCreated, "Customer")
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		newer    []int64
		previous []int64
		limit    int
		want     []int64
	}{
		{
			name:  "cold start",
			newer: []int64{1},
			limit: 5,
			want:  []int64{1},
		},
		{
			name:     "prepends newer",
			newer:    []int64{3},
			previous: []int64{2, 1},
			limit:    5,
			want:     []int64{3, 2, 1},
		},
		{
			name:     "drops oldest when full",
			newer:    []int64{6},
			previous: []int64{5, 4, 3, 2, 1},
			limit:    5,
			want:     []int64{6, 5, 4, 3, 2},
		},
		{
			name:     "newer wins on id collision",
			newer:    []int64{2},
			previous: []int64{3, 2, 1},
			limit:    5,
			want:     []int64{2, 3, 1},
		},
		{
			name:     "duplicates inside previous are removed",
			newer:    []int64{4},
			previous: []int64{3, 3, 2, 2, 1},
			limit:    5,
			want:     []int64{4, 3, 2, 1},
		},
		{
			name:     "zero limit",
			newer:    []int64{1},
			previous: []int64{2},
			limit:    0,
			want:     []int64{},
		},
		{
			name:  "empty inputs",
			limit: 5,
			want:  []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(activities(tt.newer...), activities(tt.previous...), tt.limit)
			assert.Equal(t, tt.want, IDs(got))
		})
	}
}

func TestMerge_RecencyBias(t *testing.T) {
	prev := activities(10, 9, 8, 7, 6)
	e := NewActivity(11, KindPaymentReceived, "Sarah Johnson")

	got := Merge([]Activity{e}, prev, MaxRecent)

	want := append([]Activity{e}, prev[:4]...)
	assert.Equal(t, want, got)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	newer := activities(3)
	prev := activities(2, 1)

	got := Merge(newer, prev, 5)
	require.Len(t, got, 3)

	got[0].Customer = "changed"
	got[1].Customer = "changed"

	assert.Equal(t, "Customer", newer[0].Customer)
	assert.Equal(t, "Customer", prev[0].Customer)
}

func TestMerge_InvariantsOverManyTicks(t *testing.T) {
	var feed []Activity
	for id := int64(1); id <= 50; id++ {
		// replay the previous head as well to exercise dedupe
		newer := []Activity{NewActivity(id, KindTaskCompleted, "x")}
		if len(feed) > 0 {
			newer = append(newer, feed[0])
		}
		feed = Merge(newer, feed, MaxRecent)

		assert.LessOrEqual(t, len(feed), MaxRecent)
		seen := map[int64]bool{}
		for _, a := range feed {
			assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
			seen[a.ID] = true
		}
		assert.Equal(t, id, feed[0].ID)
	}
}

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			assert.True(t, k.Valid())
			assert.NotEmpty(t, k.Message())
			assert.NotEqual(t, "circle", k.Icon())
			assert.NotEqual(t, "gray", k.Color())
		})
	}

	unknown := Kind("refund_issued")
	assert.False(t, unknown.Valid())
	assert.Contains(t, unknown.Message(), "refund_issued")
}
