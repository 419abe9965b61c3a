// Package chat owns the conversation: the transcript shown to the user, the
// role/content history replayed to the backend on every turn, and the single
// pending reminder candidate awaiting confirmation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rappel-client/internal/model"
	"rappel-client/pkg/logger"
)

var (
	// ErrBusy is returned while a previous turn is still in flight.
	ErrBusy = errors.New("une requête est déjà en cours")
	// ErrEmptyMessage rejects blank input before any network call.
	ErrEmptyMessage = errors.New("veuillez entrer un message")
	// ErrNoPending means Confirm/Cancel was called with no candidate held.
	ErrNoPending = errors.New("aucun rappel en attente de confirmation")
	// ErrMissingDatetime rejects confirmation of a candidate without a
	// concrete instant; nothing is sent to the backend.
	ErrMissingDatetime = errors.New("informations du rappel incomplètes")
)

// State of the conversation, per turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateConfirmationPending
)

// APIClient is the backend surface the controller drives.
type APIClient interface {
	ParseMessage(ctx context.Context, message string) (*model.ParsedReminder, error)
	Chat(ctx context.Context, message string, history []model.ConversationTurn) (*model.ChatResponse, error)
	CreateReminder(ctx context.Context, draft model.ReminderCreate) (*model.Reminder, error)
}

// ReminderSink receives the confirmed record; in the app this is the store.
type ReminderSink interface {
	Add(r model.Reminder)
}

// Scheduler schedules the local notification for a confirmed reminder.
// Best-effort: it has no error to report back.
type Scheduler interface {
	ScheduleFor(r model.Reminder)
}

type Controller struct {
	api       APIClient
	reminders ReminderSink
	scheduler Scheduler

	// assistant selects the conversational /chat flow over plain parsing.
	assistant bool
	timezone  string

	mu       sync.Mutex
	messages []model.ChatMessage
	history  []model.ConversationTurn
	pending  *model.ParsedReminder
	awaiting bool

	now func() time.Time
}

type Options struct {
	// Assistant selects the /chat endpoint; false uses /parse-message.
	Assistant bool
	// Timezone fills a confirmed draft whose candidate has no zone.
	Timezone string
}

func NewController(api APIClient, reminders ReminderSink, scheduler Scheduler, opts Options) *Controller {
	tz := opts.Timezone
	if tz == "" {
		tz = "Europe/Paris"
	}
	return &Controller{
		api:       api,
		reminders: reminders,
		scheduler: scheduler,
		assistant: opts.Assistant,
		timezone:  tz,
		now:       time.Now,
	}
}

// Send runs one conversation turn: the user bubble is appended before the
// network call is issued, the assistant (or error) bubble strictly after it
// resolves. While a turn is in flight further sends fail with ErrBusy.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.awaiting = true
	c.appendMessage(model.ChatMessage{Role: model.RoleUser, Text: text})

	// The request history already carries the turn it is about to answer;
	// it is only committed back on success.
	reqHistory := make([]model.ConversationTurn, len(c.history), len(c.history)+2)
	copy(reqHistory, c.history)
	reqHistory = append(reqHistory, model.ConversationTurn{Role: model.RoleUser, Content: text})
	c.mu.Unlock()

	if c.assistant {
		return c.sendChat(ctx, text, reqHistory)
	}
	return c.sendParse(ctx, text, reqHistory)
}

func (c *Controller) sendChat(ctx context.Context, text string, reqHistory []model.ConversationTurn) error {
	resp, err := c.api.Chat(ctx, text, reqHistory)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaiting = false

	if err != nil {
		c.appendFailure(err)
		return err
	}

	c.appendMessage(model.ChatMessage{
		Role:        model.RoleAssistant,
		Text:        resp.Response,
		Suggestions: resp.Suggestions,
	})
	c.history = append(reqHistory, model.ConversationTurn{Role: model.RoleAssistant, Content: resp.Response})

	// Only the first candidate is held; extra entries are a backend product
	// decision the client does not second-guess.
	if len(resp.ParsedReminders) > 0 {
		candidate := resp.ParsedReminders[0]
		c.pending = &candidate
	}
	return nil
}

func (c *Controller) sendParse(ctx context.Context, text string, reqHistory []model.ConversationTurn) error {
	parsed, err := c.api.ParseMessage(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaiting = false

	if err != nil {
		c.appendFailure(err)
		return err
	}

	confirm := formatDetected(parsed)
	c.appendMessage(model.ChatMessage{Role: model.RoleAssistant, Text: confirm})
	c.history = append(reqHistory, model.ConversationTurn{Role: model.RoleAssistant, Content: confirm})
	c.pending = parsed
	return nil
}

// Confirm creates the pending candidate server-side, mirrors it into the
// store, schedules its notification and acknowledges in the transcript. A
// candidate without a concrete instant is a local validation failure: no
// request is issued, however often Confirm is retried.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPending
	}
	if c.pending.DatetimeISO == nil {
		c.mu.Unlock()
		return ErrMissingDatetime
	}

	tz := c.pending.Timezone
	if tz == "" {
		tz = c.timezone
	}
	draft := model.ReminderCreate{
		Title:       c.pending.Title,
		Description: c.pending.Description,
		DatetimeISO: *c.pending.DatetimeISO,
		Timezone:    tz,
		Recurrence:  nil,
	}
	c.awaiting = true
	c.mu.Unlock()

	created, err := c.api.CreateReminder(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaiting = false

	if err != nil {
		c.appendMessage(model.ChatMessage{
			Role:    model.RoleAssistant,
			Text:    fmt.Sprintf("❌ Échec de création: %s", err),
			IsError: true,
		})
		return err
	}

	c.reminders.Add(*created)
	// Scheduling must never block a creation that already succeeded.
	c.scheduler.ScheduleFor(*created)

	c.appendMessage(model.ChatMessage{
		Role: model.RoleAssistant,
		Text: fmt.Sprintf("✓ Rappel créé: %q", created.Title),
	})
	c.pending = nil

	logger.Infof("reminder %s created", created.ID)
	return nil
}

// Cancel discards the pending candidate without any network call.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return ErrNoPending
	}
	c.pending = nil
	c.appendMessage(model.ChatMessage{Role: model.RoleAssistant, Text: "✕ Création de rappel annulée"})
	return nil
}

// UseSuggestion submits a quick-reply chip as if the user had typed it.
func (c *Controller) UseSuggestion(ctx context.Context, suggestion string) error {
	return c.Send(ctx, suggestion)
}

// Messages returns a snapshot of the transcript, oldest first.
func (c *Controller) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// History returns a snapshot of the role/content turns committed so far.
func (c *Controller) History() []model.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ConversationTurn, len(c.history))
	copy(out, c.history)
	return out
}

// Pending returns a copy of the candidate awaiting confirmation, nil if none.
func (c *Controller) Pending() *model.ParsedReminder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	candidate := *c.pending
	return &candidate
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.awaiting:
		return StateAwaitingResponse
	case c.pending != nil:
		return StateConfirmationPending
	default:
		return StateIdle
	}
}

// appendMessage stamps id and timestamp; callers hold the lock.
func (c *Controller) appendMessage(msg model.ChatMessage) {
	msg.ID = fmt.Sprintf("%d", c.now().UnixNano())
	msg.Timestamp = c.now()
	c.messages = append(c.messages, msg)
}

// appendFailure echoes a turn failure into the transcript; the history is
// left untouched so the failed turn is never replayed to the backend.
func (c *Controller) appendFailure(err error) {
	c.appendMessage(model.ChatMessage{
		Role:    model.RoleAssistant,
		Text:    fmt.Sprintf("❌ Erreur: %s", err),
		IsError: true,
	})
	logger.Errorf("conversation turn failed: %v", err)
}

func formatDetected(parsed *model.ParsedReminder) string {
	date := "date non spécifiée"
	if parsed.Date != nil {
		date = *parsed.Date
	}
	heure := "heure non spécifiée"
	if parsed.Time != nil {
		heure = *parsed.Time
	}
	text := fmt.Sprintf("Rappel détecté:\n• %s\n• %s à %s", parsed.Title, date, heure)
	if parsed.IsAmbiguous {
		text += "\n⚠ Vérification nécessaire"
	}
	return text
}
