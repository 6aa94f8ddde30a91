// Package resolve decides which verse a transcript refers to.
//
// The [Resolver] owns all precedence rules between a translation-switch
// command, an implicit "next verse" continuation, an explicit address and
// the repeat fallback. It delegates textual understanding to an
// [extract.Service] but never mutates session state: it computes a
// candidate reference and leaves the commit to the caller.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/versecast/internal/extract"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// DefaultContinuationPhrases trigger a continuation query.
var DefaultContinuationPhrases = []string{"next verse"}

// RepeatMode selects how the repeat fallback re-derives the current verse
// when extraction finds nothing.
type RepeatMode string

const (
	// RepeatReuse returns the stored reference without an extraction call.
	RepeatReuse RepeatMode = "reuse"

	// RepeatRequery asks the extraction service for an explicit address in
	// the stored reference formatted as text ("John 3:16."), falling back to
	// the stored reference when that yields nothing.
	RepeatRequery RepeatMode = "requery"
)

// ParseRepeatMode validates s. The empty string selects [RepeatReuse].
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch RepeatMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RepeatReuse:
		return RepeatReuse, nil
	case RepeatRequery:
		return RepeatRequery, nil
	default:
		return "", fmt.Errorf("resolve: unknown repeat mode %q (want %q or %q)", s, RepeatReuse, RepeatRequery)
	}
}

// Source records which rule produced a [Result].
type Source string

const (
	SourceNone         Source = "none"
	SourceOverride     Source = "override"
	SourceContinuation Source = "continuation"
	SourceExplicit     Source = "explicit"
	SourceRepeat       Source = "repeat"
)

// Input is everything the resolver needs for one turn.
type Input struct {
	// Transcript is the raw transcribed text.
	Transcript string

	// Current is the session's current verse; valid only when HasCurrent.
	Current    scripture.Reference
	HasCurrent bool

	// Override is true when the translation resolver found an explicit
	// translation in Transcript, making this turn a translation switch.
	Override bool
}

// Result is the resolver's decision. When Found is false no reference could
// be determined and the caller must emit an all-absent quote.
type Result struct {
	Ref    scripture.Reference
	Found  bool
	Source Source
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithContinuationPhrases replaces the phrases that trigger a continuation
// query. Matching is case-insensitive.
func WithContinuationPhrases(phrases ...string) Option {
	return func(r *Resolver) {
		r.phrases = r.phrases[:0]
		for _, p := range phrases {
			if p = normalizeText(p); p != "" {
				r.phrases = append(r.phrases, p)
			}
		}
	}
}

// WithRepeatMode selects the repeat fallback. Default: [RepeatReuse].
func WithRepeatMode(m RepeatMode) Option {
	return func(r *Resolver) { r.repeat = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// Resolver implements the verse resolution policy. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	extractor extract.Service
	phrases   []string
	repeat    RepeatMode
	log       *slog.Logger
}

// New returns a Resolver backed by extractor.
func New(extractor extract.Service, opts ...Option) *Resolver {
	r := &Resolver{
		extractor: extractor,
		repeat:    RepeatReuse,
		log:       slog.Default(),
	}
	for _, p := range DefaultContinuationPhrases {
		r.phrases = append(r.phrases, normalizeText(p))
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve applies, in order:
//
//  1. Translation switch: the current verse carries forward unchanged and
//     no extraction call is made.
//  2. Continuation: the transcript contains a continuation phrase and a
//     current verse exists.
//  3. Explicit extraction from the transcript.
//  4. Repeat fallback: extraction found nothing but a current verse exists.
//  5. Otherwise no reference.
//
// An error is returned only when the extraction service fails; the caller
// must then leave session state untouched.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Result, error) {
	if in.Override {
		if in.HasCurrent {
			return Result{Ref: in.Current, Found: true, Source: SourceOverride}, nil
		}
		return Result{Source: SourceOverride}, nil
	}

	if in.HasCurrent && r.IsContinuation(in.Transcript) {
		ref, ok, err := r.extractor.Continuation(ctx, in.Current, in.Transcript)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Ref: ref, Found: true, Source: SourceContinuation}, nil
		}
		r.log.Debug("resolve: continuation found nothing", "current", in.Current.String())
	} else {
		ref, ok, err := r.extractor.ExplicitReference(ctx, in.Transcript)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Ref: ref, Found: true, Source: SourceExplicit}, nil
		}
	}

	if !in.HasCurrent {
		return Result{Source: SourceNone}, nil
	}
	return r.repeatCurrent(ctx, in.Current)
}

func (r *Resolver) repeatCurrent(ctx context.Context, current scripture.Reference) (Result, error) {
	if r.repeat == RepeatRequery {
		ref, ok, err := r.extractor.ExplicitReference(ctx, current.String()+".")
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Ref: ref, Found: true, Source: SourceRepeat}, nil
		}
		r.log.Debug("resolve: requery found nothing, reusing current verse", "current", current.String())
	}
	return Result{Ref: current, Found: true, Source: SourceRepeat}, nil
}

// IsContinuation reports whether transcript contains a continuation phrase.
func (r *Resolver) IsContinuation(transcript string) bool {
	text := normalizeText(transcript)
	for _, p := range r.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// normalizeText lower-cases s and collapses whitespace runs.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
