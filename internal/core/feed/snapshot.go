package feed

import (
	"slices"
	"time"
)

// KPI holds the headline figures shown at the top of every dashboard.
type KPI struct {
	ActiveTasks        int     `json:"activeTasks"`
	CompletedToday     int     `json:"completedToday"`
	PendingPayments    int     `json:"pendingPayments"`
	RevenueToday       float64 `json:"revenueToday"`
	AverageRepairHours float64 `json:"averageRepairHours"`
}

// TaskStatus is one slice of the task status breakdown.
type TaskStatus struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// TechnicianWorkload is the current load of a single technician.
type TechnicianWorkload struct {
	Name           string `json:"name"`
	ActiveTasks    int    `json:"activeTasks"`
	CompletedToday int    `json:"completedToday"`
}

// Snapshot is the complete payload delivered to subscribers on every update.
type Snapshot struct {
	KPI                KPI                  `json:"kpiData"`
	TaskStatuses       []TaskStatus         `json:"taskStatuses"`
	TechnicianWorkload []TechnicianWorkload `json:"technicianWorkload"`
	RecentActivities   []Activity           `json:"recentActivities"`
	LastUpdated        time.Time            `json:"lastUpdated"`
}

// Clone returns a deep copy of the snapshot so receivers cannot mutate shared state.
func (s Snapshot) Clone() Snapshot {
	s.TaskStatuses = slices.Clone(s.TaskStatuses)
	s.TechnicianWorkload = slices.Clone(s.TechnicianWorkload)
	s.RecentActivities = slices.Clone(s.RecentActivities)
	return s
}

// Newest returns the first activity in the feed.
func (s Snapshot) Newest() (Activity, bool) {
	if len(s.RecentActivities) == 0 {
		return Activity{}, false
	}
	return s.RecentActivities[0], true
}
