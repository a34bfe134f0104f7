// Package feed defines the live dashboard data model and the recent-activity merge policy.
package feed

import "fmt"

// MaxRecent is the default number of activities retained in the live feed.
const MaxRecent = 5

// Kind represents the type of a notable shop event.
type Kind string

const (
	KindTaskCreated     Kind = "task_created"
	KindPaymentReceived Kind = "payment_received"
	KindTaskCompleted   Kind = "task_completed"
	KindPartsNeeded     Kind = "parts_needed"
)

// Kinds lists every activity kind in display order.
var Kinds = []Kind{KindTaskCreated, KindPaymentReceived, KindTaskCompleted, KindPartsNeeded}

// Valid reports whether k is a known activity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTaskCreated, KindPaymentReceived, KindTaskCompleted, KindPartsNeeded:
		return true
	default:
		return false
	}
}

// Message returns the short description shown for the kind.
func (k Kind) Message() string {
	switch k {
	case KindTaskCreated:
		return "New repair task created"
	case KindPaymentReceived:
		return "Payment received"
	case KindTaskCompleted:
		return "Repair completed"
	case KindPartsNeeded:
		return "Parts requested for repair"
	default:
		return fmt.Sprintf("Unknown activity (%s)", string(k))
	}
}

// Icon returns the presentation icon hint for the kind.
func (k Kind) Icon() string {
	switch k {
	case KindTaskCreated:
		return "plus-circle"
	case KindPaymentReceived:
		return "dollar-sign"
	case KindTaskCompleted:
		return "check-circle"
	case KindPartsNeeded:
		return "alert-circle"
	default:
		return "circle"
	}
}

// Color returns the presentation color hint for the kind.
func (k Kind) Color() string {
	switch k {
	case KindTaskCreated:
		return "blue"
	case KindPaymentReceived:
		return "green"
	case KindTaskCompleted:
		return "emerald"
	case KindPartsNeeded:
		return "orange"
	default:
		return "gray"
	}
}

// Hex returns the kind's color as "#rrggbb" for terminal rendering.
func (k Kind) Hex() string {
	switch k {
	case KindTaskCreated:
		return "#3b82f6"
	case KindPaymentReceived:
		return "#22c55e"
	case KindTaskCompleted:
		return "#10b981"
	case KindPartsNeeded:
		return "#f97316"
	default:
		return "#6b7280"
	}
}

// Activity is one notable occurrence shown in the recent activity feed.
type Activity struct {
	ID            int64  `json:"id"`
	Kind          Kind   `json:"type"`
	Message       string `json:"message"`
	Customer      string `json:"customer"`
	OccurredLabel string `json:"time"`
	Icon          string `json:"icon,omitempty"`
	Color         string `json:"color,omitempty"`
}

// NewActivity builds an activity with the message and presentation hints derived from kind.
func NewActivity(id int64, kind Kind, customer string) Activity {
	return Activity{
		ID:            id,
		Kind:          kind,
		Message:       kind.Message(),
		Customer:      customer,
		OccurredLabel: "Just now",
		Icon:          kind.Icon(),
		Color:         kind.Color(),
	}
}
