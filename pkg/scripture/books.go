package scripture

import "strings"

// Books lists the 66 books of the Protestant canon in canonical order, using
// the names stored by the verse stores.
var Books = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Joshua", "Judges", "Ruth", "1 Samuel", "2 Samuel",
	"1 Kings", "2 Kings", "1 Chronicles", "2 Chronicles", "Ezra",
	"Nehemiah", "Esther", "Job", "Psalms", "Proverbs",
	"Ecclesiastes", "Song of Solomon", "Isaiah", "Jeremiah", "Lamentations",
	"Ezekiel", "Daniel", "Hosea", "Joel", "Amos",
	"Obadiah", "Jonah", "Micah", "Nahum", "Habakkuk",
	"Zephaniah", "Haggai", "Zechariah", "Malachi",
	"Matthew", "Mark", "Luke", "John", "Acts",
	"Romans", "1 Corinthians", "2 Corinthians", "Galatians", "Ephesians",
	"Philippians", "Colossians", "1 Thessalonians", "2 Thessalonians", "1 Timothy",
	"2 Timothy", "Titus", "Philemon", "Hebrews", "James",
	"1 Peter", "2 Peter", "1 John", "2 John", "3 John",
	"Jude", "Revelation",
}

// aliases maps common spoken or written variants (lower case) to the
// canonical book name.
var aliases = map[string]string{
	"psalm":                "Psalms",
	"the psalms":           "Psalms",
	"song of songs":        "Song of Solomon",
	"songs of solomon":     "Song of Solomon",
	"canticles":            "Song of Solomon",
	"revelations":          "Revelation",
	"the revelation":       "Revelation",
	"revelation of john":   "Revelation",
	"acts of the apostles": "Acts",
	"qoheleth":             "Ecclesiastes",
	"first samuel":         "1 Samuel",
	"second samuel":        "2 Samuel",
	"first kings":          "1 Kings",
	"second kings":         "2 Kings",
	"first chronicles":     "1 Chronicles",
	"second chronicles":    "2 Chronicles",
	"first corinthians":    "1 Corinthians",
	"second corinthians":   "2 Corinthians",
	"first thessalonians":  "1 Thessalonians",
	"second thessalonians": "2 Thessalonians",
	"first timothy":        "1 Timothy",
	"second timothy":       "2 Timothy",
	"first peter":          "1 Peter",
	"second peter":         "2 Peter",
	"first john":           "1 John",
	"second john":          "2 John",
	"third john":           "3 John",

	// Common abbreviations.
	"gen": "Genesis", "gn": "Genesis",
	"exod": "Exodus", "lev": "Leviticus", "num": "Numbers",
	"deut": "Deuteronomy", "dt": "Deuteronomy",
	"josh": "Joshua", "judg": "Judges", "neh": "Nehemiah", "esth": "Esther",
	"ps": "Psalms", "psa": "Psalms", "prov": "Proverbs",
	"eccl": "Ecclesiastes", "eccles": "Ecclesiastes",
	"isa": "Isaiah", "jer": "Jeremiah", "lam": "Lamentations",
	"ezek": "Ezekiel", "dan": "Daniel", "hos": "Hosea", "obad": "Obadiah",
	"mic": "Micah", "nah": "Nahum", "hab": "Habakkuk", "zeph": "Zephaniah",
	"hag": "Haggai", "zech": "Zechariah", "mal": "Malachi",
	"matt": "Matthew", "mt": "Matthew", "mk": "Mark", "mrk": "Mark",
	"lk": "Luke", "jn": "John", "jhn": "John",
	"rom": "Romans", "gal": "Galatians", "eph": "Ephesians",
	"phil": "Philippians", "col": "Colossians", "phlm": "Philemon",
	"heb": "Hebrews", "jas": "James", "rev": "Revelation",
}

var bookIndex = func() map[string]int {
	m := make(map[string]int, len(Books))
	for i, b := range Books {
		m[strings.ToLower(b)] = i + 1
	}
	return m
}()

// BookID returns the 1-based canonical position of book (Genesis = 1,
// Revelation = 66) and whether book is a canonical name. Matching is
// case-insensitive.
func BookID(book string) (int, bool) {
	id, ok := bookIndex[strings.ToLower(strings.TrimSpace(book))]
	return id, ok
}
