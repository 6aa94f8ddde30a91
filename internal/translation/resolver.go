package translation

import (
	"fmt"
	"strings"
	"unicode"
)

// defaultAliases are spoken names that identify a translation without its
// code. Longer phrases win over shorter ones starting at the same word, so
// "new king james" resolves to NKJV rather than KJV.
var defaultAliases = map[string]string{
	"king james":                      "KJV",
	"king james version":              "KJV",
	"new king james":                  "NKJV",
	"new international":               "NIV",
	"english standard":                "ESV",
	"new living":                      "NLT",
	"new american standard":           "NASB",
	"american standard":               "ASV",
	"world english":                   "WEB",
	"geneva bible":                    "GNV",
	"new revised standard":            "NRSV",
	"lexham english":                  "LEB",
	"modern english":                  "MEV",
	"new english translation":         "NET",
	"international standard":          "ISV",
	"evangelical heritage":            "EHV",
	"names of god":                    "NOG",
	"new life version":                "NLV",
	"twenty first century king james": "KJ21",
}

// Decision is the outcome of [Resolver.Resolve].
type Decision struct {
	// Code is the translation to use for this turn.
	Code string

	// Override is true when the transcript named a translation explicitly.
	// An override turn is a translation-switch command.
	Override bool
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithAliases adds spoken phrases (case-insensitive) that select a code.
// Entries whose code is not supported are ignored.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		for phrase, code := range aliases {
			r.addAlias(phrase, code)
		}
	}
}

// WithoutDefaultAliases disables the built-in spoken-name table so that only
// literal codes are recognised.
func WithoutDefaultAliases() Option {
	return func(r *Resolver) {
		r.aliases = map[string]string{}
		r.maxAliasWords = 0
	}
}

// WithQualifiedCodes lists codes that are also everyday words ("net",
// "web"). A bare token equal to one of them only counts as a mention when
// the next token is "version", "translation" or "bible". Spelled letters and
// aliases still match. Unsupported codes are ignored.
func WithQualifiedCodes(codes ...string) Option {
	return func(r *Resolver) {
		for _, c := range codes {
			if code, err := Parse(c); err == nil {
				r.qualified[code] = true
			}
		}
	}
}

// Resolver decides the translation for an utterance using only local
// matching against the supported set. It is read-only after construction
// and safe for concurrent use.
type Resolver struct {
	defaultCode   string
	aliases       map[string]string // space-joined upper-case tokens -> code
	maxAliasWords int
	qualified     map[string]bool
}

// NewResolver returns a Resolver falling back to defaultCode for sessions
// that never selected a translation. An empty defaultCode means [Default].
func NewResolver(defaultCode string, opts ...Option) (*Resolver, error) {
	if defaultCode == "" {
		defaultCode = Default
	}
	code, err := Parse(defaultCode)
	if err != nil {
		return nil, fmt.Errorf("translation: default: %w", err)
	}
	r := &Resolver{defaultCode: code, aliases: make(map[string]string), qualified: make(map[string]bool)}
	for phrase, c := range defaultAliases {
		r.addAlias(phrase, c)
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// DefaultCode returns the fallback translation.
func (r *Resolver) DefaultCode() string { return r.defaultCode }

func (r *Resolver) addAlias(phrase, code string) {
	if !IsSupported(code) {
		return
	}
	words := tokenize(phrase)
	if len(words) == 0 {
		return
	}
	r.aliases[strings.Join(words, " ")] = code
	if len(words) > r.maxAliasWords {
		r.maxAliasWords = len(words)
	}
}

// Resolve returns the translation for transcript. A translation named in the
// transcript takes priority; otherwise current (the session's translation)
// applies, or the default when current is empty.
func (r *Resolver) Resolve(transcript, current string) Decision {
	if code, ok := r.Detect(transcript); ok {
		return Decision{Code: code, Override: true}
	}
	if current != "" {
		return Decision{Code: current}
	}
	return Decision{Code: r.defaultCode}
}

// Detect finds the first translation mentioned in transcript. A mention is
// a whole token equal to a supported code, a run of spelled-out letters
// ("K J V"), or a spoken alias ("king james"). Substrings of ordinary words
// never match, so "universe" does not select NIV. A code followed by a
// number is tried joined first, so "NASB 1995" selects NASB1995.
//
// Codes that double as English words match like any other code, so "casting
// a net" selects NET unless NET was passed to [WithQualifiedCodes].
func (r *Resolver) Detect(transcript string) (string, bool) {
	tokens := tokenize(transcript)
	for i := range tokens {
		if code, ok := r.matchAt(tokens, i); ok {
			return code, true
		}
	}
	return "", false
}

func (r *Resolver) matchAt(tokens []string, i int) (string, bool) {
	for n := min(r.maxAliasWords, len(tokens)-i); n >= 1; n-- {
		if code, ok := r.aliases[strings.Join(tokens[i:i+n], " ")]; ok {
			return code, true
		}
	}
	if isLetter(tokens[i]) {
		end := i
		for end < len(tokens) && isLetter(tokens[end]) {
			end++
		}
		for j := end; j >= i+2; j-- {
			code := strings.Join(tokens[i:j], "")
			if numbered, ok := withNumber(tokens, j, code); ok {
				return numbered, true
			}
			if IsSupported(code) {
				return code, true
			}
		}
	}
	if numbered, ok := withNumber(tokens, i+1, tokens[i]); ok {
		return numbered, true
	}
	if IsSupported(tokens[i]) && (!r.qualified[tokens[i]] || qualifiedAt(tokens, i+1)) {
		return tokens[i], true
	}
	return "", false
}

// withNumber joins code with tokens[next] when that token is numeric and the
// result is a supported code.
func withNumber(tokens []string, next int, code string) (string, bool) {
	if next >= len(tokens) || !isNumber(tokens[next]) {
		return "", false
	}
	joined := code + tokens[next]
	return joined, IsSupported(joined)
}

func qualifiedAt(tokens []string, i int) bool {
	if i >= len(tokens) {
		return false
	}
	switch tokens[i] {
	case "VERSION", "TRANSLATION", "BIBLE":
		return true
	}
	return false
}

func isNumber(tok string) bool {
	for _, c := range tok {
		if c < '0' || c > '9' {
			return false
		}
	}
	return tok != ""
}

// tokenize upper-cases s, drops dots and splits on anything that is not a
// letter or digit.
func tokenize(s string) []string {
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	return strings.FieldsFunc(s, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}

func isLetter(tok string) bool {
	return len(tok) == 1 && tok[0] >= 'A' && tok[0] <= 'Z'
}
