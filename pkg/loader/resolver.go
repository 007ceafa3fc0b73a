package loader

import (
	"context"

	"github.com/DSverma/betterread-data-uploader/pkg/db"
)

// UnknownAuthor is the name recorded for an author id the store does not hold.
const UnknownAuthor = "Unknown Author"

// Resolver turns an author id into the display name stored with a book.
// Implementations never fail; an unresolvable id yields UnknownAuthor.
type Resolver interface {
	Resolve(ctx context.Context, authorID string) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, authorID string) string

func (f ResolverFunc) Resolve(ctx context.Context, authorID string) string { return f(ctx, authorID) }

// AuthorFinder is the lookup half of the record store.
type AuthorFinder interface {
	FindAuthor(ctx context.Context, id string) (db.Author, bool, error)
}

// StoreResolver resolves names from previously loaded authors.
type StoreResolver struct {
	Store AuthorFinder

	// OnError is told about lookup failures, which resolve to UnknownAuthor. Optional.
	OnError func(authorID string, err error)
}

func (r *StoreResolver) Resolve(ctx context.Context, authorID string) string {
	a, ok, err := r.Store.FindAuthor(ctx, authorID)
	if err != nil {
		if r.OnError != nil {
			r.OnError(authorID, &StoreError{Op: "find author", ID: authorID, Err: err})
		}
		return UnknownAuthor
	}
	if !ok {
		return UnknownAuthor
	}
	return a.Name
}
