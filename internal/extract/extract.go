// Package extract turns free-form transcript text into structured verse
// references and translation codes with the help of a language model.
//
// Model output is untrusted: every answer is normalised and parsed, and
// anything that is not a well-formed address or a supported translation code
// is reported as "none" rather than as an error. Errors are reserved for
// failures of the model call itself (network, timeout, cancellation).
package extract

import (
	"context"

	"github.com/MrWong99/versecast/pkg/scripture"
)

// Service is the extraction collaborator consumed by the verse resolver and
// the session orchestrator. The boolean result is false when the model found
// nothing usable.
type Service interface {
	// ExplicitReference extracts a verse address mentioned in text.
	ExplicitReference(ctx context.Context, text string) (scripture.Reference, bool, error)

	// Continuation derives the verse that text asks for relative to current,
	// typically the verse after it.
	Continuation(ctx context.Context, current scripture.Reference, text string) (scripture.Reference, bool, error)

	// Translation extracts a supported translation code named in text.
	Translation(ctx context.Context, text string) (string, bool, error)
}
