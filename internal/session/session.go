// Package session keeps per-visitor quick-entry state. State lives in an LRU
// cache keyed by session id and expires with inactivity.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"bizledger/internal/cache"
	"bizledger/internal/core"
)

var ErrUnknownTemplate = errors.New("unknown template")

// State is the quick-entry state of one session.
type State struct {
	ID        string              `json:"id"`
	Template  *core.QuickTemplate `json:"template,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Form carries the template-fillable fields of a transaction entry form.
type Form struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Note     string `json:"note"`
}

// Apply fills the blank fields of f from the active template.
func (s State) Apply(f Form) Form {
	if s.Template != nil {
		s.Template.Fill(&f.Type, &f.Category, &f.Note)
	}
	return f
}

type Store struct {
	states *cache.LRUCache[State]
	now    func() time.Time
}

func NewStore(maxSessions int, ttl time.Duration) *Store {
	return &Store{
		states: cache.NewLRUCache[State](maxSessions, ttl, cache.WithSlidingExpiry()),
		now:    time.Now,
	}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// Cleaner exposes the backing cache for periodic sweeping.
func (s *Store) Cleaner() cache.Cleaner {
	return s.states
}

// Get returns the state for id; an unknown id yields an empty state.
func (s *Store) Get(id string) State {
	if st, ok := s.states.Get(id); ok {
		return st
	}
	return State{ID: id}
}

// SelectTemplate makes the named template active for the session.
func (s *Store) SelectTemplate(id, name string) (State, error) {
	tpl, ok := core.FindTemplate(name)
	if !ok {
		return s.Get(id), ErrUnknownTemplate
	}
	return s.states.Update(id, func(cur State, _ bool) State {
		cur.ID = id
		cur.Template = &tpl
		cur.UpdatedAt = s.now()
		return cur
	}), nil
}

// Reset clears the active template.
func (s *Store) Reset(id string) State {
	s.states.Delete(id)
	return State{ID: id}
}

// Apply fills f from the session's active template, if any.
func (s *Store) Apply(id string, f Form) Form {
	return s.Get(id).Apply(f)
}

func (s *Store) Size() int {
	return s.states.Size()
}
