package notify

import (
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"rappel-client/pkg/logger"
)

// DesktopPlatform delivers notifications through the desktop notification
// daemon. Triggers are held as in-process timers: the client has no system
// scheduler to hand them to, so pending notifications only survive as long
// as the process does.
type DesktopPlatform struct {
	mu      sync.Mutex
	pending map[string]*pendingNotification
	stopped bool
}

type pendingNotification struct {
	notification Notification
	timer        *time.Timer
}

func NewDesktopPlatform() *DesktopPlatform {
	return &DesktopPlatform{
		pending: make(map[string]*pendingNotification),
	}
}

// RequestPermission is a formality on the desktop: there is no permission
// prompt, delivery either works or fails per notification.
func (d *DesktopPlatform) RequestPermission() (bool, error) {
	return true, nil
}

func (d *DesktopPlatform) Schedule(n Notification) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n.Identifier = uuid.New().String()
	p := &pendingNotification{notification: n}
	p.timer = time.AfterFunc(time.Until(n.TriggerAt), func() {
		d.fire(n)
	})
	d.pending[n.Identifier] = p

	return n.Identifier, nil
}

func (d *DesktopPlatform) Scheduled() ([]Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Notification, 0, len(d.pending))
	for _, p := range d.pending {
		out = append(out, p.notification)
	}
	return out, nil
}

func (d *DesktopPlatform) Cancel(identifier string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[identifier]
	if !ok {
		return nil
	}
	p.timer.Stop()
	delete(d.pending, identifier)
	return nil
}

// Stop cancels every pending timer; called on shutdown.
func (d *DesktopPlatform) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
	d.stopped = true
}

func (d *DesktopPlatform) fire(n Notification) {
	d.mu.Lock()
	delete(d.pending, n.Identifier)
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return
	}

	if err := beeep.Notify(n.Title, n.Body, ""); err != nil {
		logger.Errorf("notification delivery failed: %v", err)
	}
}
