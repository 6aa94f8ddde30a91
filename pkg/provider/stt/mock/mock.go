// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/versecast/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	Ctx   context.Context
	Audio []byte
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// TranscribeFunc, when set, computes the reply and takes precedence over
	// Text and Err.
	TranscribeFunc func(ctx context.Context, audio []byte) (string, error)

	// Text is returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the configured reply.
func (m *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.mu.Lock()
	buf := make([]byte, len(audio))
	copy(buf, audio)
	m.Calls = append(m.Calls, TranscribeCall{Ctx: ctx, Audio: buf})
	fn, text, err := m.TranscribeFunc, m.Text, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio)
	}
	return text, err
}

// CallCount returns the number of recorded calls. Thread-safe.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ stt.Transcriber = (*Transcriber)(nil)
