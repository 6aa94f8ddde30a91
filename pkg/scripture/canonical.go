package scripture

import "strings"

// BookMatcher finds the candidate most similar to word. When matched is
// false, corrected equals word and confidence is 0.
//
// internal/phonetic.Matcher satisfies this interface.
type BookMatcher interface {
	Match(word string, candidates []string) (corrected string, confidence float64, matched bool)
}

// Canonicalizer maps free-form book names, as produced by speech
// transcription or a language model, onto the canonical names in [Books].
// It is read-only after construction and safe for concurrent use.
type Canonicalizer struct {
	matcher BookMatcher
}

// NewCanonicalizer returns a Canonicalizer. matcher may be nil, in which
// case only exact and alias matches are applied.
func NewCanonicalizer(matcher BookMatcher) *Canonicalizer {
	return &Canonicalizer{matcher: matcher}
}

// Canonical returns the canonical spelling of book. Lookup order is exact
// (case-insensitive) name, alias table, then the fuzzy matcher. Descriptive
// lead-ins ("Gospel of", "the Letter to the") and spelled ordinals ("First",
// "II") are normalised first. An ordinal is never added to a name that did
// not carry one. Names that match nothing are returned unchanged.
func (c *Canonicalizer) Canonical(book string) string {
	trimmed := strings.Join(strings.Fields(book), " ")
	if trimmed == "" {
		return book
	}
	if name, ok := lookupName(trimmed); ok {
		return name
	}

	ordinal, rest := splitOrdinal(strings.Fields(trimmed))
	name := strings.Join(stripLeadIn(rest), " ")
	if name == "" {
		return book
	}
	if ordinal == "" {
		if found, ok := lookupName(name); ok && !isNumbered(found) {
			return found
		}
		if c.matcher == nil {
			return book
		}
		if corrected, _, matched := c.matcher.Match(name, unnumbered); matched {
			return corrected
		}
		return book
	}

	full := ordinal + " " + name
	if found, ok := lookupName(full); ok && strings.HasPrefix(found, ordinal+" ") {
		return found
	}
	if found, ok := lookupName(name); ok && !isNumbered(found) {
		if id, ok := BookID(ordinal + " " + found); ok {
			return Books[id-1]
		}
	}
	if c.matcher == nil {
		return book
	}
	// Numbered books must keep their ordinal: "1 jon" may only become one of
	// the "1 ..." books.
	var candidates []string
	for _, b := range Books {
		if suffix, ok := strings.CutPrefix(b, ordinal+" "); ok {
			candidates = append(candidates, suffix)
		}
	}
	if corrected, _, matched := c.matcher.Match(name, candidates); matched {
		return ordinal + " " + corrected
	}
	return book
}

// CanonicalRef returns r with its book canonicalized.
func (c *Canonicalizer) CanonicalRef(r Reference) Reference {
	r.Book = c.Canonical(r.Book)
	return r
}

// unnumbered holds the books without an ordinal prefix.
var unnumbered = func() []string {
	out := make([]string, 0, len(Books))
	for _, b := range Books {
		if !isNumbered(b) {
			out = append(out, b)
		}
	}
	return out
}()

// leadIns are descriptive words that may precede a book name.
var leadIns = map[string]bool{
	"the": true, "book": true, "gospel": true, "letter": true,
	"epistle": true, "of": true, "to": true, "according": true,
	"saint": true, "st": true, "st.": true,
}

var ordinals = map[string]string{
	"1": "1", "first": "1", "1st": "1", "i": "1",
	"2": "2", "second": "2", "2nd": "2", "ii": "2",
	"3": "3", "third": "3", "3rd": "3", "iii": "3",
}

// lookupName resolves s by exact name or alias.
func lookupName(s string) (string, bool) {
	if id, ok := BookID(s); ok {
		return Books[id-1], true
	}
	name, ok := aliases[strings.ToLower(s)]
	return name, ok
}

// splitOrdinal separates a leading ordinal ("2", "Second", "II") from the
// remaining tokens. ordinal is "" when tokens has none.
func splitOrdinal(tokens []string) (ordinal string, rest []string) {
	if len(tokens) > 1 {
		if o, ok := ordinals[strings.ToLower(tokens[0])]; ok {
			return o, tokens[1:]
		}
	}
	return "", tokens
}

// stripLeadIn drops leading descriptive words, keeping at least one token.
func stripLeadIn(tokens []string) []string {
	for len(tokens) > 1 && leadIns[strings.ToLower(tokens[0])] {
		tokens = tokens[1:]
	}
	return tokens
}

func isNumbered(book string) bool {
	prefix, _, ok := strings.Cut(book, " ")
	return ok && (prefix == "1" || prefix == "2" || prefix == "3")
}
