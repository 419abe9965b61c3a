package model

// Status is the lifecycle state of a persisted reminder.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Toggle flips completed ⇄ scheduled, the only transition the list pane offers.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusScheduled
	}
	return StatusCompleted
}

// Reminder mirrors a record owned by the backend. Timestamps stay as the ISO
// strings the server assigned; the client never recomputes them.
type Reminder struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DatetimeISO string  `json:"datetime_iso"`
	Timezone    string  `json:"timezone"`
	Status      Status  `json:"status"`
	Recurrence  *string `json:"recurrence"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ParsedReminder is an unconfirmed candidate produced by the backend's
// interpretation of a free-text message. DatetimeISO is nil when parsing
// could not pin down a concrete instant.
type ParsedReminder struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	DatetimeISO     *string `json:"datetime_iso"`
	Timezone        string  `json:"timezone"`
	IsAmbiguous     bool    `json:"is_ambiguous"`
	AmbiguityReason *string `json:"ambiguity_reason"`
}

// ReminderCreate is the creation payload sent after the user confirms a
// candidate.
type ReminderCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DatetimeISO string  `json:"datetime_iso"`
	Timezone    string  `json:"timezone"`
	Recurrence  *string `json:"recurrence"`
}
