// Package sqlite provides a [bible.Store] backed by an embedded SQLite
// database through the pure-Go modernc.org/sqlite driver. It uses the same
// bible_verses schema as the postgres package.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

var _ bible.ReadWriter = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS bible_verses (
    book_id      INTEGER NOT NULL,
    book         TEXT    NOT NULL,
    chapter      INTEGER NOT NULL CHECK (chapter > 0),
    verse        INTEGER NOT NULL CHECK (verse > 0),
    text         TEXT    NOT NULL,
    translation  TEXT    NOT NULL,
    PRIMARY KEY (book_id, chapter, verse, translation)
);

CREATE INDEX IF NOT EXISTS idx_bible_verses_lookup
    ON bible_verses (book, chapter, verse, translation);
`

// Store is a [bible.ReadWriter] over a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// FindVerse implements [bible.Store].
func (s *Store) FindVerse(ctx context.Context, ref scripture.Reference, translation string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT text
		FROM bible_verses
		WHERE book = ? AND chapter = ? AND verse = ? AND translation = ?
		LIMIT 1
	`, ref.Book, ref.Chapter, ref.Verse, translation)

	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", bible.ErrNotFound
		}
		return "", fmt.Errorf("sqlite store: find verse %s %s: %w", ref, translation, err)
	}
	return text, nil
}

// ListTranslations implements [bible.Store].
func (s *Store) ListTranslations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT translation FROM bible_verses ORDER BY translation`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list translations: %w", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("sqlite store: scan translation: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Ping implements [bible.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertVerses implements [bible.Writer].
func (s *Store) UpsertVerses(ctx context.Context, verses []bible.Verse) error {
	for _, v := range verses {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("sqlite store: upsert: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bible_verses (book_id, book, chapter, verse, text, translation)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, chapter, verse, translation)
		DO UPDATE SET book = excluded.book, text = excluded.text
	`)
	if err != nil {
		return fmt.Errorf("sqlite store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, v := range verses {
		id, _ := scripture.BookID(v.Book)
		if _, err := stmt.ExecContext(ctx, id, v.Book, v.Chapter, v.Verse, v.Text, v.Translation); err != nil {
			return fmt.Errorf("sqlite store: upsert %s %s: %w", v.Reference(), v.Translation, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
