package feed

import "time"

// Rand is the random source used to synthesize dashboard data.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is a Clock backed by time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// DefaultCustomers is used when no customer names are configured.
var DefaultCustomers = []string{
	"John Smith",
	"Sarah Johnson",
	"Mike Davis",
	"Emily Brown",
	"David Wilson",
	"Lisa Anderson",
}

// DefaultTechnicians is used when no technician names are configured.
var DefaultTechnicians = []string{
	"Alex Turner",
	"Maria Garcia",
	"James Lee",
	"Priya Patel",
}

// statusPalette lists the task statuses in display order with their color hints.
var statusPalette = []struct {
	name  string
	color string
	max   int
}{
	{"Pending", "#f59e0b", 15},
	{"In Progress", "#3b82f6", 20},
	{"Awaiting Parts", "#f97316", 8},
	{"Completed", "#10b981", 25},
	{"Delivered", "#8b5cf6", 30},
}

// Generator synthesizes dashboard snapshots in place of a real event source.
type Generator struct {
	rnd         Rand
	clock       Clock
	customers   []string
	technicians []string
}

// NewGenerator creates a generator. Empty name lists fall back to the defaults.
func NewGenerator(rnd Rand, clock Clock, customers, technicians []string) *Generator {
	if len(customers) == 0 {
		customers = DefaultCustomers
	}
	if len(technicians) == 0 {
		technicians = DefaultTechnicians
	}
	if clock == nil {
		clock = SystemClock
	}

	return &Generator{
		rnd:         rnd,
		clock:       clock,
		customers:   customers,
		technicians: technicians,
	}
}

// Activity creates a random activity carrying the given ID.
func (g *Generator) Activity(id int64) Activity {
	kind := Kinds[g.rnd.IntN(len(Kinds))]
	customer := g.customers[g.rnd.IntN(len(g.customers))]
	return NewActivity(id, kind, customer)
}

// Snapshot builds a full snapshot whose feed contains only the given activities.
// Callers merge the feed with previously retained activities.
func (g *Generator) Snapshot(activities ...Activity) Snapshot {
	snap := Snapshot{
		KPI: KPI{
			ActiveTasks:        g.between(20, 60),
			CompletedToday:     g.between(5, 25),
			PendingPayments:    g.between(0, 12),
			RevenueToday:       float64(g.between(50_000, 500_000)) / 100,
			AverageRepairHours: float64(g.between(10, 80)) / 10,
		},
		TaskStatuses:       make([]TaskStatus, 0, len(statusPalette)),
		TechnicianWorkload: make([]TechnicianWorkload, 0, len(g.technicians)),
		RecentActivities:   append(make([]Activity, 0, len(activities)), activities...),
		LastUpdated:        g.clock.Now(),
	}

	for _, st := range statusPalette {
		snap.TaskStatuses = append(snap.TaskStatuses, TaskStatus{
			Status: st.name,
			Count:  g.between(0, st.max),
			Color:  st.color,
		})
	}

	for _, name := range g.technicians {
		snap.TechnicianWorkload = append(snap.TechnicianWorkload, TechnicianWorkload{
			Name:           name,
			ActiveTasks:    g.between(0, 10),
			CompletedToday: g.between(0, 8),
		})
	}

	return snap
}

// between returns a random integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.IntN(hi-lo+1)
}
