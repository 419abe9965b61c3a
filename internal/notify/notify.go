// Package notify maps confirmed reminders onto local device notifications:
// exactly one scheduled notification per reminder, keyed by the reminder id
// carried in the notification payload. Everything here is best-effort; a
// reminder that exists server-side must never be blocked or failed by the
// notification subsystem.
package notify

import (
	"time"

	"rappel-client/internal/model"
	"rappel-client/pkg/logger"
)

// Notification is one scheduled local notification. ReminderID is the
// payload used to find it again on cancellation.
type Notification struct {
	Identifier string
	Title      string
	Body       string
	TriggerAt  time.Time
	ReminderID string
}

// Platform is the device notification subsystem.
type Platform interface {
	// RequestPermission asks the user once; false means notifications stay
	// off for the session.
	RequestPermission() (bool, error)
	// Schedule registers a notification and returns its identifier.
	Schedule(n Notification) (string, error)
	// Scheduled lists the currently pending notifications.
	Scheduled() ([]Notification, error)
	// Cancel removes a pending notification by identifier.
	Cancel(identifier string) error
}

// Bridge gates scheduling behind the permission state acquired at startup.
type Bridge struct {
	platform Platform
	enabled  bool
	granted  bool
	now      func() time.Time
}

func NewBridge(platform Platform, enabled bool) *Bridge {
	return &Bridge{
		platform: platform,
		enabled:  enabled,
		now:      time.Now,
	}
}

// Setup acquires notification permission once per session. A denial is
// warned about a single time, after which every Schedule call is a silent
// no-op.
func (b *Bridge) Setup() {
	if !b.enabled {
		logger.Infof("notifications disabled by configuration")
		return
	}

	granted, err := b.platform.RequestPermission()
	if err != nil {
		logger.Warnf("notification permission request failed: %v", err)
		return
	}
	b.granted = granted
	if !granted {
		logger.Warnf("notifications refusées: les rappels ne déclencheront pas d'alerte locale")
	}
}

// Granted reports whether scheduling is active for this session.
func (b *Bridge) Granted() bool {
	return b.granted
}

// ScheduleFor registers the single local notification for a confirmed
// reminder. Past-dated instants are never scheduled. Platform failures are
// logged and swallowed.
func (b *Bridge) ScheduleFor(r model.Reminder) {
	if !b.granted {
		return
	}

	trigger, err := time.Parse(time.RFC3339, r.DatetimeISO)
	if err != nil {
		logger.Warnf("reminder %s has unparseable datetime %q: %v", r.ID, r.DatetimeISO, err)
		return
	}
	if !trigger.After(b.now()) {
		logger.Debugf("reminder %s is past-dated (%s), not scheduling", r.ID, r.DatetimeISO)
		return
	}

	id, err := b.platform.Schedule(Notification{
		Title:      "🔔 Rappel",
		Body:       r.Title,
		TriggerAt:  trigger,
		ReminderID: r.ID,
	})
	if err != nil {
		logger.Errorf("failed to schedule notification for reminder %s: %v", r.ID, err)
		return
	}
	logger.Infof("notification %s scheduled for %s (reminder %s)", id, trigger, r.ID)
}

// CancelFor cancels the pending notification whose payload matches the
// reminder id, if there is one. At most one notification is cancelled; no
// match is silently ignored.
func (b *Bridge) CancelFor(reminderID string) {
	if !b.granted {
		return
	}

	pending, err := b.platform.Scheduled()
	if err != nil {
		logger.Errorf("failed to list scheduled notifications: %v", err)
		return
	}
	for _, n := range pending {
		if n.ReminderID == reminderID {
			if err := b.platform.Cancel(n.Identifier); err != nil {
				logger.Errorf("failed to cancel notification %s: %v", n.Identifier, err)
			}
			return
		}
	}
}
