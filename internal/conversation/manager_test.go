package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type memRepo struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]State
	creates int
	saveErr error
	// foreign is the number of saves that another process beats to the
	// document, each adding one turn of its own.
	foreign int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[uuid.UUID]State)}
}

func clone(s State) *State {
	out := s
	out.Messages = append([]Turn(nil), s.Messages...)
	return &out
}

func (r *memRepo) GetByUser(_ context.Context, userID uuid.UUID) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (r *memRepo) Create(_ context.Context, s *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[s.UserID]; ok {
		return ErrAlreadyExists
	}
	r.creates++
	r.docs[s.UserID] = *clone(*s)
	return nil
}

func (r *memRepo) Save(ctx context.Context, s *State, also ...TxFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.docs[s.UserID]
	if ok && r.foreign > 0 {
		r.foreign--
		stored.Messages = append(stored.Messages, Turn{Role: RoleUser, Content: "from another instance"})
		stored.Version++
		r.docs[s.UserID] = stored
	}
	if !ok || stored.Version != s.Version {
		return ErrConflict
	}
	for _, fn := range also {
		if err := fn(ctx, nil); err != nil {
			return err
		}
	}
	s.Version++
	r.docs[s.UserID] = *clone(*s)
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, userID)
	return nil
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()
	userID := uuid.New()

	first, err := m.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if first.UserID != userID || len(first.Messages) != 0 {
		t.Fatalf("unexpected state: %+v", first)
	}
	if _, err := m.GetOrCreate(ctx, userID); err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected one create, got %d", repo.creates)
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()
	userID := uuid.New()

	s, err := m.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := m.Append(ctx, s, RoleUser, "hello"); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if err := m.Append(ctx, s, RoleAssistant, "hi"); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	got := m.History(s)
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Role != RoleUser || got[0].Content != "hello" {
		t.Fatalf("unexpected first turn: %+v", got[0])
	}
	if got[1].Role != RoleAssistant || got[1].Content != "hi" {
		t.Fatalf("unexpected second turn: %+v", got[1])
	}
	if s.LastUpdated.IsZero() || got[1].Timestamp.Before(got[0].Timestamp) {
		t.Fatalf("timestamps not maintained: %+v", got)
	}

	// Copy semantics
	got[0].Content = "mutated"
	if m.History(s)[0].Content != "hello" {
		t.Fatalf("history exposed internal slice")
	}

	stored, err := m.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected persisted turns, got %d", len(stored))
	}
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	m := NewManager(newMemRepo())
	s := &State{UserID: uuid.New()}
	if err := m.Append(context.Background(), s, Role("system"), "x"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestAppendSaveFailureLeavesStateUntouched(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()
	s, _ := m.GetOrCreate(ctx, uuid.New())

	repo.saveErr = errors.New("disk full")
	if err := m.Append(ctx, s, RoleUser, "hello"); err == nil {
		t.Fatalf("expected save error")
	}
	if len(s.Messages) != 0 {
		t.Fatalf("state mutated on failed save: %+v", s.Messages)
	}
}

func TestClearIsNoOpWithoutConversation(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()
	userID := uuid.New()

	if err := m.Clear(ctx, userID); err != nil {
		t.Fatalf("clear on missing conversation: %v", err)
	}
	got, err := m.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestClearOnlyAffectsOwner(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()
	userA, userB := uuid.New(), uuid.New()

	if _, err := m.AppendExchange(ctx, userA, "a", "b"); err != nil {
		t.Fatalf("append A: %v", err)
	}
	if _, err := m.AppendExchange(ctx, userB, "c", "d"); err != nil {
		t.Fatalf("append B: %v", err)
	}
	if err := m.Clear(ctx, userA); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := m.Lookup(ctx, userA); len(got) != 0 {
		t.Fatalf("clear did not drop user A turns")
	}
	if got, _ := m.Lookup(ctx, userB); len(got) != 2 {
		t.Fatalf("clear should not affect other users")
	}
}

func TestConcurrentExchangesAreNotLostOrInterleaved(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()
	userID := uuid.New()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i)
			if _, err := m.AppendExchange(ctx, userID, q, "a"+q[1:]); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := m.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2*n {
		t.Fatalf("expected %d turns, got %d", 2*n, len(got))
	}
	for i := 0; i < len(got); i += 2 {
		user, reply := got[i], got[i+1]
		if user.Role != RoleUser || reply.Role != RoleAssistant {
			t.Fatalf("pair %d has roles %s/%s", i/2, user.Role, reply.Role)
		}
		if strings.TrimPrefix(user.Content, "q") != strings.TrimPrefix(reply.Content, "a") {
			t.Fatalf("pair %d interleaved: %q / %q", i/2, user.Content, reply.Content)
		}
	}
	if len(m.locks.locks) != 0 {
		t.Fatalf("expected user locks to be released, got %d", len(m.locks.locks))
	}
}

func TestAppendExchangeRetriesAfterForeignWrite(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := m.GetOrCreate(ctx, userID); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	repo.foreign = 2

	s, err := m.AppendExchange(ctx, userID, "q", "a")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := m.Lookup(ctx, userID)
	if len(got) != 4 {
		t.Fatalf("expected foreign turns to survive, got %+v", got)
	}
	if got[2].Content != "q" || got[3].Content != "a" {
		t.Fatalf("exchange should follow the foreign turns, got %+v", got)
	}
	if s.Version != repo.docs[userID].Version {
		t.Fatalf("returned version %d, stored %d", s.Version, repo.docs[userID].Version)
	}
}

func TestAppendExchangeGivesUpOnPersistentConflict(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := m.GetOrCreate(ctx, userID); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	repo.foreign = maxSaveAttempts

	if _, err := m.AppendExchange(ctx, userID, "q", "a"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	for _, turn := range repo.docs[userID].Messages {
		if turn.Content == "q" || turn.Content == "a" {
			t.Fatalf("exchange must not be stored, got %+v", repo.docs[userID].Messages)
		}
	}
}

func TestAppendExchangeRunsExtraWritesAtomically(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()
	userID := uuid.New()

	calls := 0
	failing := func(context.Context, *sql.Tx) error {
		calls++
		return errors.New("insert failed")
	}
	if _, err := m.AppendExchange(ctx, userID, "q", "a", failing); err == nil {
		t.Fatalf("expected the extra write error")
	}
	if calls != 1 {
		t.Fatalf("expected one extra write call, got %d", calls)
	}
	if got, _ := m.Lookup(ctx, userID); len(got) != 0 {
		t.Fatalf("exchange stored despite failed extra write: %+v", got)
	}

	ok := func(context.Context, *sql.Tx) error { return nil }
	if _, err := m.AppendExchange(ctx, userID, "q", "a", ok); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got, _ := m.Lookup(ctx, userID); len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
}
