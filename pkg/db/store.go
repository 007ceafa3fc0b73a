package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// dateLayout is how published dates are kept in the books table.
const dateLayout = "2006-01-02"

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SaveAuthor inserts the author or overwrites the row with the same id.
func SaveAuthor(ctx context.Context, db DBExecutor, a Author) error {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return fmt.Errorf("author id must be non-empty")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO authors (id, name, personal_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  name = excluded.name,
		  personal_name = excluded.personal_name`,
		id, a.Name, a.PersonalName)
	if err != nil {
		return fmt.Errorf("upsert author %s: %w", id, err)
	}
	return nil
}

// FindAuthor looks an author up by id. The bool is false when no row exists.
func FindAuthor(ctx context.Context, db DBExecutor, id string) (Author, bool, error) {
	var a Author
	err := db.QueryRowContext(ctx, `SELECT id, name, personal_name FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.PersonalName)
	if errors.Is(err, sql.ErrNoRows) {
		return Author{}, false, nil
	}
	if err != nil {
		return Author{}, false, fmt.Errorf("find author %s: %w", id, err)
	}
	return a, true, nil
}

// SaveBook inserts the book or overwrites the row with the same id.
func SaveBook(ctx context.Context, db DBExecutor, b Book) error {
	id := strings.TrimSpace(b.ID)
	if id == "" {
		return fmt.Errorf("book id must be non-empty")
	}
	covers, err := encodeList(b.CoverIDs)
	if err != nil {
		return err
	}
	authorIDs, err := encodeList(b.AuthorIDs)
	if err != nil {
		return err
	}
	authorNames, err := encodeList(b.AuthorNames)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `INSERT INTO books (id, name, description, published_date, cover_ids, author_ids, author_names)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  name = excluded.name,
		  description = excluded.description,
		  published_date = excluded.published_date,
		  cover_ids = excluded.cover_ids,
		  author_ids = excluded.author_ids,
		  author_names = excluded.author_names`,
		id, b.Name, nullableString(b.Description), nullableDate(b.PublishedDate), covers, authorIDs, authorNames)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", id, err)
	}
	return nil
}

// FindBook looks a book up by id. The bool is false when no row exists.
func FindBook(ctx context.Context, db DBExecutor, id string) (Book, bool, error) {
	var b Book
	var desc, published sql.NullString
	var covers, authorIDs, authorNames string
	err := db.QueryRowContext(ctx, `SELECT id, name, description, published_date, cover_ids, author_ids, author_names
		FROM books WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &desc, &published, &covers, &authorIDs, &authorNames)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, fmt.Errorf("find book %s: %w", id, err)
	}

	if desc.Valid {
		d := desc.String
		b.Description = &d
	}
	if published.Valid {
		t, err := time.Parse(dateLayout, published.String)
		if err != nil {
			return Book{}, false, fmt.Errorf("book %s: bad published_date %q: %w", id, published.String, err)
		}
		b.PublishedDate = &t
	}
	for _, col := range []struct {
		raw string
		dst *[]string
	}{{covers, &b.CoverIDs}, {authorIDs, &b.AuthorIDs}, {authorNames, &b.AuthorNames}} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return Book{}, false, fmt.Errorf("book %s: decode list column: %w", id, err)
		}
	}
	return b, true, nil
}

// Store is the SQLite-backed record store used by the loader.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an initialized SQLite connection.
func NewStore(conn *sql.DB) *Store {
	return &Store{DB: conn}
}

func (s *Store) SaveAuthor(ctx context.Context, a Author) error { return SaveAuthor(ctx, s.DB, a) }

func (s *Store) SaveBook(ctx context.Context, b Book) error { return SaveBook(ctx, s.DB, b) }

func (s *Store) FindAuthor(ctx context.Context, id string) (Author, bool, error) {
	return FindAuthor(ctx, s.DB, id)
}

func (s *Store) FindBook(ctx context.Context, id string) (Book, bool, error) {
	return FindBook(ctx, s.DB, id)
}

// encodeList stores nil and empty lists alike as "[]".
func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nullableString returns nil for a nil pointer else the value.
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// nullableDate returns nil for a nil pointer else the date formatted as dateLayout.
func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
