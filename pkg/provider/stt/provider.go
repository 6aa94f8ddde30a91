// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// A Transcriber turns one complete utterance into text. Clients deliver each
// utterance as a single audio message, so there is no streaming session:
// the audio is either a WAV file or bare 16-bit little-endian PCM, which the
// adapters wrap with [audio.AsWAV] using their configured raw format.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation, returning promptly once ctx is done.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyAudio is returned when Transcribe receives no audio bytes.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe returns the text spoken in audio. An utterance without
	// recognisable speech yields "" and a nil error.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Error carries the backend name and, for HTTP backends, the response status
// of a failed transcription.
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stt: %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stt: %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request could succeed: network
// failures and 5xx/429 responses are retryable, other 4xx responses are not.
func (e *Error) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
