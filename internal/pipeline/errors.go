package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Stage names a step of a turn. It is used in [CollaboratorError] and as
// the "stage" metric attribute.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageExtraction    Stage = "extraction"
	StageLookup        Stage = "lookup"
)

// CollaboratorError reports that an external collaborator failed or timed
// out during a turn. The session state is left unchanged when it occurs.
type CollaboratorError struct {
	Stage Stage
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Timeout reports whether the collaborator exceeded its deadline.
func (e *CollaboratorError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
