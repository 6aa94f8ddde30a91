package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/versecast/pkg/bible"
	"github.com/MrWong99/versecast/pkg/scripture"
)

var _ bible.ReadWriter = (*Store)(nil)

// Store is a [bible.ReadWriter] over a [pgxpool.Pool].
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool. The caller owns the pool and is
// responsible for migrating and closing it.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindVerse implements [bible.Store].
func (s *Store) FindVerse(ctx context.Context, ref scripture.Reference, translation string) (string, error) {
	const q = `
		SELECT text
		FROM   bible_verses
		WHERE  book = $1
		  AND  chapter = $2
		  AND  verse = $3
		  AND  translation = $4
		LIMIT  1`

	var text string
	err := s.pool.QueryRow(ctx, q, ref.Book, ref.Chapter, ref.Verse, translation).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", bible.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres store: find verse %s %s: %w", ref, translation, err)
	}
	return text, nil
}

// ListTranslations implements [bible.Store].
func (s *Store) ListTranslations(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT translation FROM bible_verses ORDER BY translation`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list translations: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan translations: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// Ping implements [bible.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// UpsertVerses implements [bible.Writer]. All rows are written in one
// transaction; any invalid verse aborts the whole batch.
func (s *Store) UpsertVerses(ctx context.Context, verses []bible.Verse) error {
	const q = `
		INSERT INTO bible_verses (book_id, book, chapter, verse, text, translation)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (book_id, chapter, verse, translation)
		DO UPDATE SET book = EXCLUDED.book, text = EXCLUDED.text`

	batch := &pgx.Batch{}
	for _, v := range verses {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("postgres store: upsert: %w", err)
		}
		id, _ := scripture.BookID(v.Book)
		batch.Queue(q, id, v.Book, v.Chapter, v.Verse, v.Text, v.Translation)
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres store: upsert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
