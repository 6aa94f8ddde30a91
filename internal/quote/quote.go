// Package quote looks up verse text and shapes the result sent to clients.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// Result is the outcome of one resolution turn. The zero Result is the
// all-absent quote. Translation and Ref are set whenever a reference was
// resolved; Text additionally requires the lookup to have found the verse.
type Result struct {
	Text        string
	HasText     bool
	Translation string
	Ref         scripture.Reference
	HasRef      bool
}

// Empty reports whether r is the all-absent quote.
func (r Result) Empty() bool {
	return !r.HasText && !r.HasRef && r.Translation == ""
}

// Outcome classifies r for metrics: "found", "not_found" or "empty".
func (r Result) Outcome() string {
	switch {
	case r.HasText:
		return "found"
	case r.HasRef:
		return "not_found"
	default:
		return "empty"
	}
}

type wireResult struct {
	Quote        *string `json:"quote"`
	Translation  *string `json:"translation"`
	QuoteAddress *string `json:"quoteAddress"`
}

// MarshalJSON encodes r as {"quote", "translation", "quoteAddress"} with
// absent fields as null.
func (r Result) MarshalJSON() ([]byte, error) {
	var w wireResult
	if r.HasText {
		w.Quote = &r.Text
	}
	if r.Translation != "" {
		w.Translation = &r.Translation
	}
	if r.HasRef {
		addr := r.Ref.String()
		w.QuoteAddress = &addr
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of [Result.MarshalJSON].
func (r *Result) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Result{}
	if w.Quote != nil {
		r.Text, r.HasText = *w.Quote, true
	}
	if w.Translation != nil {
		r.Translation = *w.Translation
	}
	if w.QuoteAddress != nil {
		ref, err := scripture.Parse(*w.QuoteAddress)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		r.Ref, r.HasRef = ref, true
	}
	return nil
}

// Lookup resolves verse text from a [bible.Store]. It is safe for concurrent
// use.
type Lookup struct {
	store bible.Store
}

// NewLookup returns a Lookup backed by store.
func NewLookup(store bible.Store) *Lookup {
	return &Lookup{store: store}
}

// Find returns the text of ref in translation. A missing verse is reported
// as ok == false with a nil error; only storage failures return an error.
func (l *Lookup) Find(ctx context.Context, ref scripture.Reference, translation string) (text string, ok bool, err error) {
	text, err = l.store.FindVerse(ctx, ref, translation)
	if errors.Is(err, bible.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("quote: lookup %s %s: %w", ref, translation, err)
	}
	return text, true, nil
}

// Resolve builds the Result for ref in translation, looking up its text.
func (l *Lookup) Resolve(ctx context.Context, ref scripture.Reference, translation string) (Result, error) {
	text, ok, err := l.Find(ctx, ref, translation)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, HasText: ok, Translation: translation, Ref: ref, HasRef: true}, nil
}

// Translations returns the distinct translation codes held by the store.
func (l *Lookup) Translations(ctx context.Context) ([]string, error) {
	codes, err := l.store.ListTranslations(ctx)
	if err != nil {
		return nil, fmt.Errorf("quote: list translations: %w", err)
	}
	return codes, nil
}
