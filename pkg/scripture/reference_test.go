package scripture_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/versecast/pkg/scripture"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want scripture.Reference
	}{
		{"John 3:16", scripture.Reference{Book: "John", Chapter: 3, Verse: 16}},
		{"Genesis 1:1", scripture.Reference{Book: "Genesis", Chapter: 1, Verse: 1}},
		{"1 John 4:8", scripture.Reference{Book: "1 John", Chapter: 4, Verse: 8}},
		{"Song of Solomon 2:4", scripture.Reference{Book: "Song of Solomon", Chapter: 2, Verse: 4}},
		{"Psalms 119:176", scripture.Reference{Book: "Psalms", Chapter: 119, Verse: 176}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := scripture.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"John",
		"John 3",
		"John 316",
		"John 3:",
		"John :16",
		"John 0:16",
		"John 3:0",
		"John -3:16",
		"John +3:16",
		"John 03:16",
		"John 3:16a",
		"John 3:16:1",
		" 3:16",
		"3:16",
		"John  3:16",
		" John 3:16",
		"John 3:16 ",
		"John 3:99999999999999999999999",
	}
	for _, in := range inputs {
		_, err := scripture.Parse(in)
		if !errors.Is(err, scripture.ErrMalformedReference) {
			t.Errorf("Parse(%q): err = %v, want ErrMalformedReference", in, err)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, book := range scripture.Books {
		for _, cv := range [][2]int{{1, 1}, {3, 16}, {150, 6}} {
			ref := scripture.Reference{Book: book, Chapter: cv[0], Verse: cv[1]}
			s := scripture.Format(ref)
			got, err := scripture.Parse(s)
			if err != nil {
				t.Fatalf("Parse(Format(%+v)): %v", ref, err)
			}
			if got != ref {
				t.Errorf("Parse(Format(%+v)) = %+v", ref, got)
			}
			if again := scripture.Format(got); again != s {
				t.Errorf("Format(Parse(%q)) = %q", s, again)
			}
		}
	}
}

func TestReference_Valid(t *testing.T) {
	t.Parallel()

	if (scripture.Reference{}).Valid() {
		t.Error("zero Reference reported valid")
	}
	if !(scripture.Reference{Book: "Jude", Chapter: 1, Verse: 3}).Valid() {
		t.Error("Jude 1:3 reported invalid")
	}
	if (scripture.Reference{Book: "Jude", Chapter: 0, Verse: 3}).Valid() {
		t.Error("chapter 0 reported valid")
	}
}

func TestBookID(t *testing.T) {
	t.Parallel()

	if len(scripture.Books) != 66 {
		t.Fatalf("len(Books) = %d, want 66", len(scripture.Books))
	}
	cases := map[string]int{"Genesis": 1, "genesis": 1, "John": 43, "REVELATION": 66, "1 John": 62}
	for book, want := range cases {
		got, ok := scripture.BookID(book)
		if !ok || got != want {
			t.Errorf("BookID(%q) = %d, %v; want %d, true", book, got, ok, want)
		}
	}
	if _, ok := scripture.BookID("Hezekiah"); ok {
		t.Error("BookID(Hezekiah) reported canonical")
	}
}
