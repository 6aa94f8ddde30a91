// Package mock provides a scriptable test double for extract.Service.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/versecast/internal/extract"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// Call records a single invocation of any Service method.
type Call struct {
	// Method is "ExplicitReference", "Continuation" or "Translation".
	Method string
	// Current is the reference passed to Continuation.
	Current scripture.Reference
	// Text is the transcript passed to the method.
	Text string
}

// Answer is a scripted reply. A zero Answer means "none".
type Answer struct {
	Ref  scripture.Reference
	Code string
	OK   bool
	Err  error
}

// Ref returns an Answer carrying the reference parsed from s.
func Ref(s string) Answer {
	return Answer{Ref: scripture.MustParse(s), OK: true}
}

// Code returns an Answer carrying a translation code.
func Code(code string) Answer {
	return Answer{Code: code, OK: true}
}

// Service is a mock implementation of extract.Service. Each method answers
// from its Func when set, otherwise from its fixed Answer.
type Service struct {
	mu sync.Mutex

	ExplicitFunc     func(ctx context.Context, text string) Answer
	ContinuationFunc func(ctx context.Context, current scripture.Reference, text string) Answer
	TranslationFunc  func(ctx context.Context, text string) Answer

	ExplicitAnswer     Answer
	ContinuationAnswer Answer
	TranslationAnswer  Answer

	Calls []Call
}

// ExplicitReference implements extract.Service.
func (s *Service) ExplicitReference(ctx context.Context, text string) (scripture.Reference, bool, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Method: "ExplicitReference", Text: text})
	fn, a := s.ExplicitFunc, s.ExplicitAnswer
	s.mu.Unlock()
	if fn != nil {
		a = fn(ctx, text)
	}
	return a.Ref, a.OK, a.Err
}

// Continuation implements extract.Service.
func (s *Service) Continuation(ctx context.Context, current scripture.Reference, text string) (scripture.Reference, bool, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Method: "Continuation", Current: current, Text: text})
	fn, a := s.ContinuationFunc, s.ContinuationAnswer
	s.mu.Unlock()
	if fn != nil {
		a = fn(ctx, current, text)
	}
	return a.Ref, a.OK, a.Err
}

// Translation implements extract.Service.
func (s *Service) Translation(ctx context.Context, text string) (string, bool, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Method: "Translation", Text: text})
	fn, a := s.TranslationFunc, s.TranslationAnswer
	s.mu.Unlock()
	if fn != nil {
		a = fn(ctx, text)
	}
	return a.Code, a.OK, a.Err
}

// Methods returns the method names of all recorded calls in order.
func (s *Service) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Calls))
	for i, c := range s.Calls {
		out[i] = c.Method
	}
	return out
}

// Snapshot returns a copy of the recorded calls.
func (s *Service) Snapshot() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.Calls))
	copy(out, s.Calls)
	return out
}

// Reset clears the recorded calls.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = nil
}

var _ extract.Service = (*Service)(nil)
