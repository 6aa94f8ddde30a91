// Package postgres provides a PostgreSQL-backed [bible.Store].
//
// Verses live in a single bible_verses table keyed by canonical book
// position, chapter, verse and translation. [Migrate] creates the table and
// its lookup index and is safe to run on every start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	text, err := store.FindVerse(ctx, scripture.MustParse("John 3:16"), "NIV")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlBibleVerses = `
CREATE TABLE IF NOT EXISTS bible_verses (
    book_id      INT   NOT NULL,
    book         TEXT  NOT NULL,
    chapter      INT   NOT NULL CHECK (chapter > 0),
    verse        INT   NOT NULL CHECK (verse > 0),
    text         TEXT  NOT NULL,
    translation  TEXT  NOT NULL,
    PRIMARY KEY (book_id, chapter, verse, translation)
);

CREATE INDEX IF NOT EXISTS idx_bible_verses_lookup
    ON bible_verses (book, chapter, verse, translation);

CREATE INDEX IF NOT EXISTS idx_bible_verses_translation
    ON bible_verses (translation);
`

// Migrate creates the bible_verses table and indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlBibleVerses); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
