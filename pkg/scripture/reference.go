// Package scripture defines the verse reference value type shared by the
// resolution pipeline, the extraction service and the verse stores.
//
// A reference is written as "<book> <chapter>:<verse>", for example
// "John 3:16" or "Song of Solomon 2:4". Book names may contain spaces; the
// chapter and verse segment is always the text after the last space.
package scripture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedReference is returned by [Parse] when the input is not a valid
// "<book> <chapter>:<verse>" address.
var ErrMalformedReference = errors.New("scripture: malformed reference")

// Reference identifies a single verse. It is an immutable value type; the
// zero value is not a valid reference.
type Reference struct {
	Book    string
	Chapter int
	Verse   int
}

// Valid reports whether r satisfies the reference invariants: a non-empty
// book and positive chapter and verse numbers.
func (r Reference) Valid() bool {
	return strings.TrimSpace(r.Book) != "" && r.Chapter >= 1 && r.Verse >= 1
}

// String formats r as "<book> <chapter>:<verse>". It is the exact inverse of
// [Parse] for every valid reference.
func (r Reference) String() string {
	return r.Book + " " + strconv.Itoa(r.Chapter) + ":" + strconv.Itoa(r.Verse)
}

// Format is the function form of [Reference.String].
func Format(r Reference) string {
	return r.String()
}

// Parse parses s as "<book> <chapter>:<verse>".
//
// Exactly one space separates the book from the chapter:verse segment, and
// the book must not carry leading or trailing whitespace. Chapter and verse
// must be positive decimal integers without sign or leading zeros, so that
// Format(Parse(s)) == s holds for every s that Parse accepts.
func Parse(s string) (Reference, error) {
	idx := strings.LastIndexByte(s, ' ')
	if idx <= 0 {
		return Reference{}, fmt.Errorf("%w: %q: missing book or chapter:verse", ErrMalformedReference, s)
	}
	book, loc := s[:idx], s[idx+1:]
	if strings.TrimSpace(book) != book || book == "" {
		return Reference{}, fmt.Errorf("%w: %q: invalid book", ErrMalformedReference, s)
	}

	chapterStr, verseStr, ok := strings.Cut(loc, ":")
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q: missing colon", ErrMalformedReference, s)
	}
	chapter, err := positiveInt(chapterStr)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %q: chapter: %v", ErrMalformedReference, s, err)
	}
	verse, err := positiveInt(verseStr)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %q: verse: %v", ErrMalformedReference, s, err)
	}
	return Reference{Book: book, Chapter: chapter, Verse: verse}, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(s string) Reference {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func positiveInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	if s[0] == '0' {
		return 0, errors.New("leading zero or zero value")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("non-digit %q", s[i])
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}
