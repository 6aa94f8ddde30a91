// Package translation owns the closed set of Bible translations the service
// can serve and decides which one applies to an utterance.
package translation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTranslation is returned when a code outside [Supported] is used.
var ErrUnknownTranslation = errors.New("translation: unknown translation")

// Default is the translation new sessions start with.
const Default = "NIV"

// Supported lists every translation code known at build time, sorted.
var Supported = []string{
	"AKLV", "ASV", "BRG", "EHV", "ESV", "ESVUK", "GNV", "GW", "ISV",
	"JUB", "KJ21", "KJV", "LEB", "MEV", "NASB", "NASB1995", "NET",
	"NIV", "NIVUK", "NKJV", "NLT", "NLV", "NOG", "NRSV", "NRSVUE", "WEB",
}

var names = map[string]string{
	"AKLV":     "American King James Version",
	"ASV":      "American Standard Version",
	"BRG":      "BRG Bible",
	"EHV":      "Evangelical Heritage Version",
	"ESV":      "English Standard Version",
	"ESVUK":    "English Standard Version Anglicised",
	"GNV":      "1599 Geneva Bible",
	"GW":       "GOD'S WORD Translation",
	"ISV":      "International Standard Version",
	"JUB":      "Jubilee Bible 2000",
	"KJ21":     "21st Century King James Version",
	"KJV":      "King James Version",
	"LEB":      "Lexham English Bible",
	"MEV":      "Modern English Version",
	"NASB":     "New American Standard Bible",
	"NASB1995": "New American Standard Bible 1995",
	"NET":      "New English Translation",
	"NIV":      "New International Version",
	"NIVUK":    "New International Version - UK",
	"NKJV":     "New King James Version",
	"NLT":      "New Living Translation",
	"NLV":      "New Life Version",
	"NOG":      "Names of God Bible",
	"NRSV":     "New Revised Standard Version",
	"NRSVUE":   "New Revised Standard Version Updated Edition",
	"WEB":      "World English Bible",
}

// IsSupported reports whether code is in the supported set. code must
// already be in canonical upper-case form.
func IsSupported(code string) bool {
	_, ok := slices.BinarySearch(Supported, code)
	return ok
}

// Name returns the full name of a supported translation, or "" otherwise.
func Name(code string) string {
	return names[code]
}

// Parse normalizes s (case, surrounding whitespace and dots as in "K.J.V.")
// and returns the matching code. Codes outside the supported set are
// rejected with [ErrUnknownTranslation].
func Parse(s string) (string, error) {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ".", ""))
	if !IsSupported(code) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTranslation, s)
	}
	return code, nil
}
