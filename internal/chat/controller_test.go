package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rappel-client/internal/model"
)

type fakeBackend struct {
	chatResp  *model.ChatResponse
	chatErr   error
	parseResp *model.ParsedReminder
	parseErr  error
	createErr error

	chatCalls   int
	parseCalls  int
	createCalls int
	lastHistory []model.ConversationTurn
	lastDraft   model.ReminderCreate
	createdID   string
}

func (f *fakeBackend) ParseMessage(_ context.Context, _ string) (*model.ParsedReminder, error) {
	f.parseCalls++
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.parseResp, nil
}

func (f *fakeBackend) Chat(_ context.Context, _ string, history []model.ConversationTurn) (*model.ChatResponse, error) {
	f.chatCalls++
	f.lastHistory = history
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.chatResp, nil
}

func (f *fakeBackend) CreateReminder(_ context.Context, draft model.ReminderCreate) (*model.Reminder, error) {
	f.createCalls++
	f.lastDraft = draft
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := f.createdID
	if id == "" {
		id = "srv-1"
	}
	now := "2026-08-28T10:00:00Z"
	return &model.Reminder{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		DatetimeISO: draft.DatetimeISO,
		Timezone:    draft.Timezone,
		Status:      model.StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type fakeSink struct {
	added []model.Reminder
}

func (f *fakeSink) Add(r model.Reminder) { f.added = append(f.added, r) }

type fakeScheduler struct {
	scheduled []model.Reminder
}

func (f *fakeScheduler) ScheduleFor(r model.Reminder) { f.scheduled = append(f.scheduled, r) }

func strPtr(s string) *string { return &s }

func newTestController(backend *fakeBackend, assistant bool) (*Controller, *fakeSink, *fakeScheduler) {
	sink := &fakeSink{}
	sched := &fakeScheduler{}
	c := NewController(backend, sink, sched, Options{Assistant: assistant, Timezone: "Europe/Paris"})
	return c, sink, sched
}

func TestSend_TranscriptOrderAndHistory(t *testing.T) {
	backend := &fakeBackend{chatResp: &model.ChatResponse{
		Response:    "Bien noté !",
		Suggestions: []string{"demain 9h", "ce soir"},
	}}
	c, _, _ := newTestController(backend, true)

	require.NoError(t, c.Send(context.Background(), "rappelle-moi un truc"))

	messages := c.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, "rappelle-moi un truc", messages[0].Text)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Bien noté !", messages[1].Text)
	assert.Equal(t, []string{"demain 9h", "ce soir"}, messages[1].Suggestions)

	// The request must already carry the user turn it answers.
	require.Len(t, backend.lastHistory, 1)
	assert.Equal(t, model.RoleUser, backend.lastHistory[0].Role)

	history := c.History()
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Equal(t, StateIdle, c.State())
}

func TestSend_EmptyMessageRejectedLocally(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newTestController(backend, true)

	assert.ErrorIs(t, c.Send(context.Background(), "   "), ErrEmptyMessage)
	assert.Zero(t, backend.chatCalls)
	assert.Empty(t, c.Messages())
}

func TestSend_FailureKeepsHistoryClean(t *testing.T) {
	backend := &fakeBackend{chatErr: errors.New("connexion refusée")}
	c, _, _ := newTestController(backend, true)

	err := c.Send(context.Background(), "bonjour")

	require.Error(t, err)
	messages := c.Messages()
	require.Len(t, messages, 2, "user bubble then error bubble")
	assert.True(t, messages[1].IsError)
	assert.Contains(t, messages[1].Text, "❌ Erreur")
	assert.Empty(t, c.History(), "failed turn never committed to history")
	assert.Equal(t, StateIdle, c.State())
}

func TestSend_BusyGuard(t *testing.T) {
	c, _, _ := newTestController(&fakeBackend{chatResp: &model.ChatResponse{Response: "ok"}}, true)

	c.mu.Lock()
	c.awaiting = true
	c.mu.Unlock()

	assert.ErrorIs(t, c.Send(context.Background(), "encore"), ErrBusy)
}

func TestSend_FirstCandidateBecomesPending(t *testing.T) {
	iso := "2026-09-02T15:00:00+02:00"
	backend := &fakeBackend{chatResp: &model.ChatResponse{
		Response: "Deux tâches détectées",
		Type:     "multiple_tasks",
		ParsedReminders: []model.ParsedReminder{
			{Title: "premier", DatetimeISO: &iso, Timezone: "Europe/Paris"},
			{Title: "second", DatetimeISO: &iso, Timezone: "Europe/Paris"},
		},
	}}
	c, _, _ := newTestController(backend, true)

	require.NoError(t, c.Send(context.Background(), "fais deux choses"))

	pending := c.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "premier", pending.Title, "only the first candidate is held")
	assert.Equal(t, StateConfirmationPending, c.State())
}

func TestSend_ParseFlowBuildsDetectionBubble(t *testing.T) {
	iso := "2026-09-02T15:00:00+02:00"
	backend := &fakeBackend{parseResp: &model.ParsedReminder{
		Title:       "appeler Paul",
		Date:        strPtr("2026-09-02"),
		Time:        strPtr("15:00"),
		DatetimeISO: &iso,
		Timezone:    "Europe/Paris",
	}}
	c, _, _ := newTestController(backend, false)

	require.NoError(t, c.Send(context.Background(), "demain 15h appeler Paul"))

	assert.Equal(t, 1, backend.parseCalls)
	assert.Zero(t, backend.chatCalls)
	messages := c.Messages()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].Text, "Rappel détecté")
	assert.Contains(t, messages[1].Text, "appeler Paul")
	require.NotNil(t, c.Pending())
}

func TestConfirm_MissingDatetimeNeverHitsNetwork(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newTestController(backend, true)
	c.mu.Lock()
	c.pending = &model.ParsedReminder{Title: "flou", IsAmbiguous: true}
	c.mu.Unlock()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.Confirm(context.Background()), ErrMissingDatetime)
	}
	assert.Zero(t, backend.createCalls, "guard is idempotent: zero create requests")
	assert.NotNil(t, c.Pending(), "candidate kept for the user to fix or cancel")
}

func TestConfirm_NoPending(t *testing.T) {
	c, _, _ := newTestController(&fakeBackend{}, true)
	assert.ErrorIs(t, c.Confirm(context.Background()), ErrNoPending)
}

func TestConfirm_CreatesStoresSchedulesAndAcks(t *testing.T) {
	iso := "2026-09-02T15:00:00+02:00"
	backend := &fakeBackend{createdID: "r-42"}
	c, sink, sched := newTestController(backend, true)
	c.mu.Lock()
	c.pending = &model.ParsedReminder{
		Title:       "appeler Paul",
		DatetimeISO: &iso,
		Timezone:    "Europe/Paris",
	}
	c.mu.Unlock()

	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, 1, backend.createCalls)
	assert.Nil(t, backend.lastDraft.Recurrence)
	require.Len(t, sink.added, 1)
	assert.Equal(t, "r-42", sink.added[0].ID)
	assert.Equal(t, model.StatusScheduled, sink.added[0].Status)
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, "r-42", sched.scheduled[0].ID)

	messages := c.Messages()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[len(messages)-1].Text, "✓ Rappel créé")
	assert.Nil(t, c.Pending())
	assert.Equal(t, StateIdle, c.State())
}

func TestConfirm_CreateFailureKeepsPending(t *testing.T) {
	iso := "2026-09-02T15:00:00+02:00"
	backend := &fakeBackend{createErr: errors.New("500")}
	c, sink, sched := newTestController(backend, true)
	c.mu.Lock()
	c.pending = &model.ParsedReminder{Title: "x", DatetimeISO: &iso, Timezone: "Europe/Paris"}
	c.mu.Unlock()

	require.Error(t, c.Confirm(context.Background()))

	assert.Empty(t, sink.added)
	assert.Empty(t, sched.scheduled)
	assert.NotNil(t, c.Pending())
	messages := c.Messages()
	assert.Contains(t, messages[len(messages)-1].Text, "Échec de création")
}

func TestCancel_ClearsPendingWithoutNetwork(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newTestController(backend, true)
	iso := "2026-09-02T15:00:00+02:00"
	c.mu.Lock()
	c.pending = &model.ParsedReminder{Title: "x", DatetimeISO: &iso}
	c.mu.Unlock()

	require.NoError(t, c.Cancel())

	assert.Nil(t, c.Pending())
	assert.Zero(t, backend.createCalls)
	messages := c.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "annulée")
}

func TestUseSuggestion_SendsVerbatim(t *testing.T) {
	backend := &fakeBackend{chatResp: &model.ChatResponse{Response: "ok"}}
	c, _, _ := newTestController(backend, true)

	require.NoError(t, c.UseSuggestion(context.Background(), "demain 9h"))

	messages := c.Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "demain 9h", messages[0].Text)
	assert.Equal(t, model.RoleUser, messages[0].Role)
}

// Full happy path of the product scenario: free text in, confirmed reminder
// and scheduled notification out.
func TestScenario_DemainQuinzeHeuresAppelerPaul(t *testing.T) {
	tomorrow := time.Now().AddDate(0, 0, 1)
	instant := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 15, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	iso := instant.Format(time.RFC3339)

	backend := &fakeBackend{
		createdID: "r-paul",
		chatResp: &model.ChatResponse{
			Response: "Je te rappelle d'appeler Paul demain à 15h.",
			Type:     "confirmation",
			ParsedReminders: []model.ParsedReminder{{
				Title:       "appeler Paul",
				DatetimeISO: &iso,
				Timezone:    "Europe/Paris",
				IsAmbiguous: false,
			}},
		},
	}
	c, sink, sched := newTestController(backend, true)

	require.NoError(t, c.Send(context.Background(), "demain 15h appeler Paul"))

	messages := c.Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "demain 15h appeler Paul", messages[0].Text)

	pending := c.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "appeler Paul", pending.Title)
	assert.False(t, pending.IsAmbiguous)

	require.NoError(t, c.Confirm(context.Background()))

	require.Len(t, sink.added, 1)
	assert.Equal(t, model.StatusScheduled, sink.added[0].Status)
	assert.Equal(t, iso, sink.added[0].DatetimeISO)
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, iso, sched.scheduled[0].DatetimeISO)
}
