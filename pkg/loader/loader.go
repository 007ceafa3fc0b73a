// Package loader turns author and work dump files into stored Author and Book
// entities, one line at a time.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DSverma/betterread-data-uploader/pkg/db"
	"github.com/DSverma/betterread-data-uploader/pkg/dump"
)

// RecordStore persists entities (upsert by id) and looks authors up.
type RecordStore interface {
	SaveAuthor(ctx context.Context, a db.Author) error
	SaveBook(ctx context.Context, b db.Book) error
	AuthorFinder
}

// Loader drives the author and book pipelines. Lines are handled strictly one
// after another: each is parsed, extracted, resolved and saved before the next
// is read.
type Loader struct {
	Store RecordStore

	// Resolver names book authors. nil means a StoreResolver over Store.
	Resolver Resolver
	// Observer receives progress and per-line failures. nil means no reporting.
	Observer Observer
}

// NewLoader creates a Loader that resolves author names from store.
func NewLoader(store RecordStore, obs Observer) *Loader {
	return &Loader{Store: store, Observer: obs}
}

// Pipeline configures one pipeline run.
type Pipeline struct {
	Enabled bool
	Path    string
	URL     string // downloaded to Path when Path does not exist yet
	Options dump.Options
}

// RunConfig configures Run.
type RunConfig struct {
	Authors Pipeline
	Works   Pipeline
}

// Run loads authors, then books. The two runs are independent: a failure of the
// first does not prevent the second. Books resolve names best when authors were
// loaded first, which is why that is the order used here.
func (l *Loader) Run(ctx context.Context, cfg RunConfig) error {
	var errs []error
	if cfg.Authors.Enabled {
		if err := l.runPipeline(ctx, cfg.Authors, l.LoadAuthors); err != nil {
			errs = append(errs, fmt.Errorf("authors: %w", err))
		}
	}
	if cfg.Works.Enabled && ctx.Err() == nil {
		if err := l.runPipeline(ctx, cfg.Works, l.LoadBooks); err != nil {
			errs = append(errs, fmt.Errorf("works: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (l *Loader) runPipeline(ctx context.Context, p Pipeline, load func(context.Context, string, dump.Options) (Stats, error)) error {
	if p.URL != "" {
		if err := dump.Ensure(ctx, p.Path, p.URL); err != nil {
			return err
		}
	}
	_, err := load(ctx, p.Path, p.Options)
	return err
}

// LoadAuthors saves one Author per line of the dump at path.
func (l *Loader) LoadAuthors(ctx context.Context, path string, opts dump.Options) (Stats, error) {
	return l.load(ctx, KindAuthor, path, opts, l.loadAuthorLine)
}

// LoadBooks saves one Book per line of the dump at path.
func (l *Loader) LoadBooks(ctx context.Context, path string, opts dump.Options) (Stats, error) {
	return l.load(ctx, KindBook, path, opts, l.loadBookLine)
}

func (l *Loader) loadAuthorLine(ctx context.Context, line string) (id, name string, err error) {
	rec, err := dump.ParseRecord[dump.AuthorRecord](line)
	if err != nil {
		return "", "", err
	}
	a, err := ToAuthor(rec)
	if err != nil {
		return "", "", err
	}
	if err := l.Store.SaveAuthor(ctx, a); err != nil {
		return "", "", &StoreError{Op: "save author", ID: a.ID, Err: err}
	}
	return a.ID, a.Name, nil
}

func (l *Loader) loadBookLine(ctx context.Context, line string) (id, name string, err error) {
	rec, err := dump.ParseRecord[dump.WorkRecord](line)
	if err != nil {
		return "", "", err
	}
	b, err := ToBook(ctx, rec, l.resolver())
	if err != nil {
		return "", "", err
	}
	if err := l.Store.SaveBook(ctx, b); err != nil {
		return "", "", &StoreError{Op: "save book", ID: b.ID, Err: err}
	}
	return b.ID, b.Name, nil
}

func (l *Loader) load(ctx context.Context, kind Kind, path string, opts dump.Options,
	handle func(ctx context.Context, line string) (id, name string, err error)) (stats Stats, err error) {
	obs := l.observer()
	start := time.Now()

	src, err := dump.Open(path, opts)
	if err != nil {
		return stats, fmt.Errorf("open %s dump: %w", kind, err)
	}
	defer src.Close()
	defer func() { obs.OnDone(kind, stats, time.Since(start)) }()

	for line, readErr := range src.Lines() {
		if readErr != nil {
			return stats, readErr
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Read++

		id, name, lineErr := handle(ctx, line)
		if lineErr != nil {
			stats.Failed++
			obs.OnLineError(kind, src.LineNo(), line, lineErr)
			continue
		}
		stats.Saved++
		obs.OnSaved(kind, id, name)
	}
	return stats, nil
}

func (l *Loader) resolver() Resolver {
	if l.Resolver != nil {
		return l.Resolver
	}
	return &StoreResolver{Store: l.Store}
}

func (l *Loader) observer() Observer {
	if l.Observer != nil {
		return l.Observer
	}
	return nopObserver{}
}
