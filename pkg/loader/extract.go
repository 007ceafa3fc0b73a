package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DSverma/betterread-data-uploader/pkg/db"
	"github.com/DSverma/betterread-data-uploader/pkg/dump"
)

const (
	authorKeyPrefix = "/authors/"
	workKeyPrefix   = "/works/"

	// createdLayout matches dump timestamps such as 2020-01-02T03:04:05.000000.
	createdLayout = "2006-01-02T15:04:05.000000"
)

// ToAuthor maps a parsed author record to an Author.
func ToAuthor(rec *dump.AuthorRecord) (db.Author, error) {
	id, ok := stripKey(rec.Key, authorKeyPrefix)
	if !ok {
		return db.Author{}, &MissingKeyError{Field: "key"}
	}
	return db.Author{
		ID:           id,
		Name:         deref(rec.Name),
		PersonalName: deref(rec.PersonalName),
	}, nil
}

// ToBook maps a parsed work record to a Book, resolving each referenced author id
// to a display name through r.
func ToBook(ctx context.Context, rec *dump.WorkRecord, r Resolver) (db.Book, error) {
	id, ok := stripKey(rec.Key, workKeyPrefix)
	if !ok {
		return db.Book{}, &MissingKeyError{Field: "key"}
	}
	b := db.Book{
		ID:   id,
		Name: deref(rec.Title),
	}

	if rec.Description.Set {
		d := deref(rec.Description.Value)
		b.Description = &d
	}

	if rec.Created.Set && rec.Created.Value != nil {
		t, err := time.Parse(createdLayout, *rec.Created.Value)
		if err != nil {
			return db.Book{}, &DateParseError{Value: *rec.Created.Value, Err: err}
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b.PublishedDate = &d
	}

	b.CoverIDs = make([]string, 0, len(rec.Covers))
	for _, c := range rec.Covers {
		b.CoverIDs = append(b.CoverIDs, string(c))
	}

	b.AuthorIDs = make([]string, 0, len(rec.Authors))
	for i, ref := range rec.Authors {
		authorID, ok := stripKey(ref.Key, authorKeyPrefix)
		if !ok {
			return db.Book{}, &MissingKeyError{Field: fmt.Sprintf("authors[%d].author.key", i)}
		}
		b.AuthorIDs = append(b.AuthorIDs, authorID)
	}

	// Resolve only once every reference is known to be well formed.
	b.AuthorNames = make([]string, len(b.AuthorIDs))
	for i, authorID := range b.AuthorIDs {
		b.AuthorNames[i] = r.Resolve(ctx, authorID)
	}
	return b, nil
}

// stripKey removes prefix from key. It reports false when the key is absent or
// nothing is left once the prefix is gone.
func stripKey(key *string, prefix string) (string, bool) {
	if key == nil {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(*key, prefix))
	return id, id != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
