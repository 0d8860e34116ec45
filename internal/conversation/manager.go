package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns per-user chat memory. Every read-modify-write of a user's
// document runs under that user's lock, so concurrent requests of one user
// never lose each other's turns. Different users never block each other.
// Writers in other processes are caught by the document version and the
// write is retried on the fresh document.
type Manager struct {
	repo  Repository
	locks *userLocks
	now   func() time.Time
}

const maxSaveAttempts = 5

func NewManager(repo Repository) *Manager {
	return &Manager{
		repo:  repo,
		locks: newUserLocks(),
		now:   time.Now,
	}
}

// GetOrCreate returns the stored conversation or persists an empty one.
func (m *Manager) GetOrCreate(ctx context.Context, userID uuid.UUID) (*State, error) {
	unlock := m.locks.lock(userID)
	defer unlock()
	return m.getOrCreateLocked(ctx, userID)
}

func (m *Manager) getOrCreateLocked(ctx context.Context, userID uuid.UUID) (*State, error) {
	s, err := m.repo.GetByUser(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	s = &State{UserID: userID, Messages: []Turn{}, LastUpdated: m.now()}
	if err := m.repo.Create(ctx, s); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Another instance won the race.
			return m.repo.GetByUser(ctx, userID)
		}
		return nil, err
	}
	return s, nil
}

// Append adds one turn to s and persists it in a single write. s is
// refreshed from the store first and updated in place afterwards.
func (m *Manager) Append(ctx context.Context, s *State, role Role, content string) error {
	return m.appendTurns(ctx, s, []Turn{{Role: role, Content: content}}, nil)
}

// AppendExchange persists the user turn and the assistant reply of one
// interaction as a single write, so no other turn can land between them.
// also runs in the same transaction; if it fails nothing is stored.
func (m *Manager) AppendExchange(ctx context.Context, userID uuid.UUID, userText, reply string, also ...TxFunc) (*State, error) {
	s := &State{UserID: userID}
	turns := []Turn{
		{Role: RoleUser, Content: userText},
		{Role: RoleAssistant, Content: reply},
	}
	err := m.appendTurns(ctx, s, turns, also)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) appendTurns(ctx context.Context, s *State, turns []Turn, also []TxFunc) error {
	for _, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("invalid role %q", t.Role)
		}
	}

	unlock := m.locks.lock(s.UserID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := m.getOrCreateLocked(ctx, s.UserID)
		if err != nil {
			return err
		}

		now := m.now()
		next := State{
			UserID:      current.UserID,
			Messages:    make([]Turn, 0, len(current.Messages)+len(turns)),
			LastUpdated: now,
			Version:     current.Version,
		}
		next.Messages = append(next.Messages, current.Messages...)
		for _, t := range turns {
			t.Timestamp = now
			next.Messages = append(next.Messages, t)
		}

		err = m.repo.Save(ctx, &next, also...)
		if errors.Is(err, ErrConflict) && attempt < maxSaveAttempts {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		*s = next
		return nil
	}
}

// Clear drops every turn of the user. A missing conversation is not an error.
func (m *Manager) Clear(ctx context.Context, userID uuid.UUID) error {
	unlock := m.locks.lock(userID)
	defer unlock()

	if err := m.repo.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// History returns a copy of the full retained history.
func (m *Manager) History(s *State) []Turn {
	if s == nil {
		return []Turn{}
	}
	out := make([]Turn, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Lookup returns the user's history without creating a conversation.
func (m *Manager) Lookup(ctx context.Context, userID uuid.UUID) ([]Turn, error) {
	s, err := m.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return m.History(s), nil
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*userLock)}
}

func (l *userLocks) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
