package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/bible/sqlite"
	"github.com/MrWong99/versecast/pkg/scripture"
)

var fixture = []bible.Verse{
	{Book: "John", Chapter: 3, Verse: 16, Translation: "NIV", Text: "For God so loved the world that he gave his one and only Son"},
	{Book: "John", Chapter: 3, Verse: 16, Translation: "KJV", Text: "For God so loved the world, that he gave his only begotten Son"},
	{Book: "Psalms", Chapter: 23, Verse: 1, Translation: "KJV", Text: "The LORD is my shepherd; I shall not want."},
}

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verses.sqlite")
	store, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.UpsertVerses(context.Background(), fixture); err != nil {
		t.Fatalf("UpsertVerses: %v", err)
	}
	return store
}

func TestFindVerse(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for _, v := range fixture {
		got, err := store.FindVerse(ctx, v.Reference(), v.Translation)
		if err != nil {
			t.Fatalf("FindVerse(%s, %s): %v", v.Reference(), v.Translation, err)
		}
		if got != v.Text {
			t.Errorf("FindVerse(%s, %s) = %q", v.Reference(), v.Translation, got)
		}
	}

	if _, err := store.FindVerse(ctx, scripture.MustParse("Psalms 23:1"), "NIV"); !errors.Is(err, bible.ErrNotFound) {
		t.Errorf("missing translation err = %v, want ErrNotFound", err)
	}
	if _, err := store.FindVerse(ctx, scripture.MustParse("Psalms 23:2"), "KJV"); !errors.Is(err, bible.ErrNotFound) {
		t.Errorf("missing verse err = %v, want ErrNotFound", err)
	}
}

func TestListTranslations(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	got, err := store.ListTranslations(context.Background())
	if err != nil {
		t.Fatalf("ListTranslations: %v", err)
	}
	if want := []string{"KJV", "NIV"}; !slices.Equal(got, want) {
		t.Errorf("ListTranslations = %v, want %v", got, want)
	}
}

func TestUpsertVerses_Replaces(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	v := fixture[2]
	v.Text = "revised"
	if err := store.UpsertVerses(ctx, []bible.Verse{v}); err != nil {
		t.Fatalf("UpsertVerses: %v", err)
	}
	got, err := store.FindVerse(ctx, v.Reference(), v.Translation)
	if err != nil || got != "revised" {
		t.Errorf("FindVerse = %q, %v; want revised", got, err)
	}
}

func TestUpsertVerses_Invalid(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	err := store.UpsertVerses(context.Background(), []bible.Verse{{Book: "John", Chapter: 0, Verse: 1, Translation: "NIV", Text: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOpen_InMemory(t *testing.T) {
	t.Parallel()

	store, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	got, err := store.ListTranslations(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("ListTranslations = %v, %v", got, err)
	}
}
