// Package memstore provides an in-memory [bible.Store], optionally seeded
// from a YAML fixture file:
//
//	verses:
//	  - book: John
//	    chapter: 3
//	    verse: 16
//	    translation: NIV
//	    text: For God so loved the world...
package memstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

var _ bible.ReadWriter = (*Store)(nil)

type key struct {
	book        string
	chapter     int
	verse       int
	translation string
}

// Store is a map-backed [bible.ReadWriter].
//
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	verses map[key]string
}

// New returns a store holding verses. Invalid verses are rejected.
func New(verses ...bible.Verse) (*Store, error) {
	s := &Store{verses: make(map[key]string, len(verses))}
	if err := s.UpsertVerses(context.Background(), verses); err != nil {
		return nil, err
	}
	return s, nil
}

type fixtureFile struct {
	Verses []bible.Verse `yaml:"verses"`
}

// Load reads a YAML fixture file into a new store.
func Load(path string) (*Store, error) {
	verses, err := ReadFixture(path)
	if err != nil {
		return nil, err
	}
	return New(verses...)
}

// LoadFromReader decodes a YAML fixture from r into a new store.
func LoadFromReader(r io.Reader) (*Store, error) {
	verses, err := decodeFixture(r)
	if err != nil {
		return nil, err
	}
	return New(verses...)
}

// ReadFixture returns the verses listed in a YAML fixture file without
// validating them. Persistent stores use it to seed their tables.
func ReadFixture(path string) ([]bible.Verse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memstore: %w", err)
	}
	defer f.Close()
	return decodeFixture(f)
}

func decodeFixture(r io.Reader) ([]bible.Verse, error) {
	var doc fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("memstore: decode fixture: %w", err)
	}
	return doc.Verses, nil
}

// FindVerse implements [bible.Store].
func (s *Store) FindVerse(_ context.Context, ref scripture.Reference, translation string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.verses[key{ref.Book, ref.Chapter, ref.Verse, translation}]
	if !ok {
		return "", bible.ErrNotFound
	}
	return text, nil
}

// ListTranslations implements [bible.Store].
func (s *Store) ListTranslations(context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for k := range s.verses {
		seen[k.translation] = struct{}{}
	}
	s.mu.RUnlock()

	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes, nil
}

// Ping implements [bible.Store]. It always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// UpsertVerses implements [bible.Writer].
func (s *Store) UpsertVerses(_ context.Context, verses []bible.Verse) error {
	for _, v := range verses {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("memstore: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range verses {
		s.verses[key{v.Book, v.Chapter, v.Verse, v.Translation}] = v.Text
	}
	return nil
}

// Len returns the number of stored verses.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.verses)
}
