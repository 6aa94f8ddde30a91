package pipeline

import "context"

// Outbound event names.
const (
	EventTranscription = "transcription"
	EventQuote         = "quote"
	EventError         = "error"
)

// Client-facing error messages.
const (
	MessageProcessingFailed = "Failed to process audio"
	MessageUnknownSession   = "Invalid or disconnected client"
)

// StatusProcessing is the transcription status sent before transcribing.
const StatusProcessing = "processing"

// TranscriptionStatus is the payload of the first transcription event.
type TranscriptionStatus struct {
	Status string `json:"status"`
}

// TranscriptionText is the payload of the transcription event carrying the
// recognised text.
type TranscriptionText struct {
	Text string `json:"text"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Emitter delivers outbound events to one client. Payloads are JSON
// marshalable. Implementations must be safe for use by one goroutine at a
// time; the orchestrator never emits concurrently for the same client.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// EmitterFunc adapts a function to [Emitter].
type EmitterFunc func(ctx context.Context, event string, payload any) error

// Emit implements [Emitter].
func (f EmitterFunc) Emit(ctx context.Context, event string, payload any) error {
	return f(ctx, event, payload)
}
