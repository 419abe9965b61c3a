// Package store holds the client-side mirror of the user's reminder
// collection. The collection is a strict subset of server state: Fetch
// replaces it wholesale, the mutation operations patch it only after the
// backend acknowledged the change (Add being the exception: it is local-only
// and expects the already-created server record).
package store

import (
	"context"
	"sync"

	"rappel-client/internal/model"
)

// APIClient is the subset of the backend client the store reconciles against.
type APIClient interface {
	GetReminders(ctx context.Context, status model.Status) ([]model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
	UpdateReminderStatus(ctx context.Context, id string, status model.Status) (*model.Reminder, error)
}

type Store struct {
	api APIClient

	mu        sync.RWMutex
	reminders []model.Reminder
	loading   bool
	lastErr   error
}

func New(api APIClient) *Store {
	return &Store{api: api}
}

// Fetch replaces the whole collection with the server's unfiltered list. It
// never fails the caller: the loading flag covers the round trip and the
// error, if any, is recorded for the UI to observe.
func (s *Store) Fetch(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	reminders, err := s.api.GetReminders(ctx, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return
	}
	s.reminders = reminders
}

// Add prepends a freshly created record. Local-only: the caller already holds
// the server's response from CreateReminder. No duplicate-id check; the
// server assigns unique ids.
func (s *Store) Add(r model.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append([]model.Reminder{r}, s.reminders...)
}

// Remove deletes on the server first and drops the local entry only on
// success (confirm-then-apply). On failure the collection is untouched and
// the error is both recorded and returned.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.api.DeleteReminder(ctx, id); err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.reminders = kept
	return nil
}

// UpdateStatus patches on the server first and, on success, replaces the
// matching entry with the returned record so server-derived fields
// (updated_at in particular) stay consistent. Confirm-then-apply, like
// Remove. Concurrent updates on the same id race; the last response wins.
func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	updated, err := s.api.UpdateReminderStatus(ctx, id, status)
	if err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			s.reminders[i] = *updated
			break
		}
	}
	return nil
}

// Reminders returns a snapshot copy of the collection, newest first.
func (s *Store) Reminders() []model.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err reports the most recent operation failure, nil after a success.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
