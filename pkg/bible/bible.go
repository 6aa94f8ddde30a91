// Package bible defines the verse storage collaborator.
//
// A [Store] answers exact-match lookups on (book, chapter, verse,
// translation) and lists the translations it holds. Implementations live in
// the sub-packages: postgres, sqlite and memstore.
package bible

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/versecast/pkg/scripture"
)

// ErrNotFound is returned by [Store.FindVerse] when no row matches.
var ErrNotFound = errors.New("bible: verse not found")

// Verse is one row of verse text in one translation.
type Verse struct {
	Book        string `yaml:"book" json:"book"`
	Chapter     int    `yaml:"chapter" json:"chapter"`
	Verse       int    `yaml:"verse" json:"verse"`
	Translation string `yaml:"translation" json:"translation"`
	Text        string `yaml:"text" json:"text"`
}

// Reference returns the verse address.
func (v Verse) Reference() scripture.Reference {
	return scripture.Reference{Book: v.Book, Chapter: v.Chapter, Verse: v.Verse}
}

// Validate checks that v can be stored: a known book, a positive address, a
// translation code and non-empty text.
func (v Verse) Validate() error {
	if !v.Reference().Valid() {
		return fmt.Errorf("bible: invalid verse address %q", v.Reference())
	}
	if _, ok := scripture.BookID(v.Book); !ok {
		return fmt.Errorf("bible: unknown book %q", v.Book)
	}
	if strings.TrimSpace(v.Translation) == "" {
		return fmt.Errorf("bible: %s: missing translation", v.Reference())
	}
	if strings.TrimSpace(v.Text) == "" {
		return fmt.Errorf("bible: %s %s: empty text", v.Reference(), v.Translation)
	}
	return nil
}

// Store is the read side of verse storage.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// FindVerse returns the text of ref in translation, or [ErrNotFound].
	FindVerse(ctx context.Context, ref scripture.Reference, translation string) (string, error)

	// ListTranslations returns the distinct translation codes present,
	// sorted ascending.
	ListTranslations(ctx context.Context) ([]string, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Writer loads verses into a store. Existing rows with the same address and
// translation are replaced.
type Writer interface {
	UpsertVerses(ctx context.Context, verses []Verse) error
}

// ReadWriter combines [Store] and [Writer].
type ReadWriter interface {
	Store
	Writer
}
