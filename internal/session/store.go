package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/versecast/internal/translation"
	"github.com/MrWong99/versecast/pkg/scripture"
)

var (
	// ErrUnknownSession is returned for a client ID with no active session.
	ErrUnknownSession = errors.New("session: unknown session")

	// ErrClosed is returned when a session was removed while a turn was
	// waiting for it or in flight.
	ErrClosed = errors.New("session: closed")
)

// State is the per-client resolution state. The zero Current is only
// meaningful when HasCurrent is true.
type State struct {
	Current     scripture.Reference
	HasCurrent  bool
	Translation string
}

// Tracking reports whether a verse has been resolved for the session.
func (s State) Tracking() bool { return s.HasCurrent }

// Session holds one client's [State]. Turns are serialised through
// [Session.Acquire]; reads through [Session.Snapshot] never block on an
// in-flight turn.
//
// All methods are safe for concurrent use.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	// turn is a one-slot semaphore; holding it grants exclusive right to
	// run a resolution and commit its result.
	turn chan struct{}

	mu     sync.RWMutex
	state  State
	closed bool
}

// ID returns the client ID the session is keyed by.
func (s *Session) ID() string { return s.id }

// Context is cancelled when the session is removed. Work done on behalf of
// the session should derive from it.
func (s *Session) Context() context.Context { return s.ctx }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Closed reports whether the session has been removed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Acquire blocks until the caller holds the session's turn, ctx is done or
// the session is removed. The returned release function must be called
// exactly once.
func (s *Session) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case s.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrClosed
	}
	if s.Closed() {
		<-s.turn
		return nil, ErrClosed
	}
	var once sync.Once
	return func() { once.Do(func() { <-s.turn }) }, nil
}

// Commit replaces the state. It fails with [ErrClosed] once the session has
// been removed so that a turn finishing after disconnect writes nothing.
func (s *Session) Commit(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state = st
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithDefaultTranslation sets the translation new sessions start with.
// Default: [translation.Default].
func WithDefaultTranslation(code string) StoreOption {
	return func(st *Store) { st.SetDefaultTranslation(code) }
}

// WithOnChange registers a callback invoked with +1 on create and -1 on
// remove. It runs outside the store lock.
func WithOnChange(fn func(delta int)) StoreOption {
	return func(st *Store) { st.onChange = fn }
}

// Store maps client IDs to sessions. The map lock is held only for lookups
// and inserts, never across a turn, so different clients never block each
// other.
//
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	defaultTranslation atomic.Pointer[string]
	onChange           func(delta int)
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{sessions: make(map[string]*Session)}
	st.SetDefaultTranslation(translation.Default)
	for _, o := range opts {
		o(st)
	}
	return st
}

// SetDefaultTranslation changes the translation for sessions created from
// now on. Existing sessions keep theirs.
func (st *Store) SetDefaultTranslation(code string) {
	st.defaultTranslation.Store(&code)
}

// DefaultTranslation returns the translation new sessions start with.
func (st *Store) DefaultTranslation() string {
	return *st.defaultTranslation.Load()
}

// Create returns the session for id, creating it with an empty verse and the
// default translation if it does not exist yet. The returned bool is true
// when a new session was created.
func (st *Store) Create(id string) (*Session, bool) {
	st.mu.Lock()
	if s, ok := st.sessions[id]; ok {
		st.mu.Unlock()
		return s, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		turn:   make(chan struct{}, 1),
		state:  State{Translation: st.DefaultTranslation()},
	}
	st.sessions[id] = s
	st.mu.Unlock()

	if st.onChange != nil {
		st.onChange(1)
	}
	return s, true
}

// Get returns the session for id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Lookup is like [Store.Get] but reports a missing session as
// [ErrUnknownSession].
func (st *Store) Lookup(id string) (*Session, error) {
	if s, ok := st.Get(id); ok {
		return s, nil
	}
	return nil, ErrUnknownSession
}

// Remove deletes the session for id, cancels its context and marks it
// closed. It reports whether a session existed.
func (st *Store) Remove(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	if st.onChange != nil {
		st.onChange(-1)
	}
	return true
}

// Len returns the number of active sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// CloseAll removes every session.
func (st *Store) CloseAll() {
	st.mu.Lock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.Unlock()

	for _, id := range ids {
		st.Remove(id)
	}
}
