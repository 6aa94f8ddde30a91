// Package mock provides a test double for bible.Store.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// FindCall records a single invocation of FindVerse.
type FindCall struct {
	Ref         scripture.Reference
	Translation string
}

// Store is a mock implementation of bible.Store. Verses maps
// "<ref>|<translation>" to text; a missing key yields bible.ErrNotFound.
type Store struct {
	mu sync.Mutex

	Verses       map[string]string
	Translations []string

	FindErr error
	ListErr error
	PingErr error

	// BlockFind makes FindVerse wait for its context to end.
	BlockFind bool

	FindCalls []FindCall
	PingCalls int
}

// Key builds the Verses map key for ref and translation.
func Key(ref string, translation string) string {
	return ref + "|" + translation
}

// FindVerse implements bible.Store.
func (s *Store) FindVerse(ctx context.Context, ref scripture.Reference, translation string) (string, error) {
	s.mu.Lock()
	s.FindCalls = append(s.FindCalls, FindCall{Ref: ref, Translation: translation})
	block := s.BlockFind
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return "", s.FindErr
	}
	text, ok := s.Verses[Key(ref.String(), translation)]
	if !ok {
		return "", bible.ErrNotFound
	}
	return text, nil
}

// ListTranslations implements bible.Store.
func (s *Store) ListTranslations(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]string, len(s.Translations))
	copy(out, s.Translations)
	return out, nil
}

// Ping implements bible.Store.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PingCalls++
	return s.PingErr
}

// Finds returns a copy of the recorded FindVerse calls.
func (s *Store) Finds() []FindCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FindCall, len(s.FindCalls))
	copy(out, s.FindCalls)
	return out
}

// Reset clears recorded calls.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls = nil
	s.PingCalls = 0
}

var _ bible.Store = (*Store)(nil)
