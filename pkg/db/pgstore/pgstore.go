// Package pgstore is the PostgreSQL record store. It mirrors the SQLite store in
// package db, keeping list fields as text[] and the published date as a date column.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DSverma/betterread-data-uploader/pkg/db"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS authors (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	personal_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS books (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	description    TEXT,
	published_date DATE,
	cover_ids      TEXT[] NOT NULL DEFAULT '{}',
	author_ids     TEXT[] NOT NULL DEFAULT '{}',
	author_names   TEXT[] NOT NULL DEFAULT '{}'
);
`

type Store struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Connect opens a pool for dsn, checks it is reachable and makes sure the tables exist.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(pool)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) SaveAuthor(ctx context.Context, a db.Author) error {
	const sql = `
		INSERT INTO authors (id, name, personal_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			personal_name = EXCLUDED.personal_name`

	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("author id must be non-empty")
	}
	if _, err := s.db.Exec(ctx, sql, a.ID, a.Name, a.PersonalName); err != nil {
		return fmt.Errorf("upsert author %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) FindAuthor(ctx context.Context, id string) (db.Author, bool, error) {
	const sql = `SELECT id, name, personal_name FROM authors WHERE id = $1`

	var a db.Author
	err := s.db.QueryRow(ctx, sql, id).Scan(&a.ID, &a.Name, &a.PersonalName)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Author{}, false, nil
	}
	if err != nil {
		return db.Author{}, false, fmt.Errorf("find author %s: %w", id, err)
	}
	return a, true, nil
}

func (s *Store) SaveBook(ctx context.Context, b db.Book) error {
	const sql = `
		INSERT INTO books (id, name, description, published_date, cover_ids, author_ids, author_names)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			published_date = EXCLUDED.published_date,
			cover_ids = EXCLUDED.cover_ids,
			author_ids = EXCLUDED.author_ids,
			author_names = EXCLUDED.author_names`

	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("book id must be non-empty")
	}
	_, err := s.db.Exec(ctx, sql, b.ID, b.Name, b.Description, b.PublishedDate,
		nonNil(b.CoverIDs), nonNil(b.AuthorIDs), nonNil(b.AuthorNames))
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) FindBook(ctx context.Context, id string) (db.Book, bool, error) {
	const sql = `
		SELECT id, name, description, published_date, cover_ids, author_ids, author_names
		FROM books WHERE id = $1`

	var b db.Book
	var published *time.Time
	err := s.db.QueryRow(ctx, sql, id).Scan(&b.ID, &b.Name, &b.Description, &published,
		&b.CoverIDs, &b.AuthorIDs, &b.AuthorNames)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Book{}, false, nil
	}
	if err != nil {
		return db.Book{}, false, fmt.Errorf("find book %s: %w", id, err)
	}
	if published != nil {
		d := time.Date(published.Year(), published.Month(), published.Day(), 0, 0, 0, 0, time.UTC)
		b.PublishedDate = &d
	}
	return b, true, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL for a nil slice.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
