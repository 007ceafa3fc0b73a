package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSverma/betterread-data-uploader/pkg/db"
	"github.com/DSverma/betterread-data-uploader/pkg/dump"
)

// memStore is an in-memory RecordStore with failure injection.
type memStore struct {
	authors map[string]db.Author
	books   map[string]db.Book
	saves   int

	saveErrFor map[string]error
	findErr    error
}

func newMemStore() *memStore {
	return &memStore{
		authors:    map[string]db.Author{},
		books:      map[string]db.Book{},
		saveErrFor: map[string]error{},
	}
}

func (m *memStore) SaveAuthor(ctx context.Context, a db.Author) error {
	if err := m.saveErrFor[a.ID]; err != nil {
		return err
	}
	m.saves++
	m.authors[a.ID] = a
	return nil
}

func (m *memStore) SaveBook(ctx context.Context, b db.Book) error {
	if err := m.saveErrFor[b.ID]; err != nil {
		return err
	}
	m.saves++
	m.books[b.ID] = b
	return nil
}

func (m *memStore) FindAuthor(ctx context.Context, id string) (db.Author, bool, error) {
	if m.findErr != nil {
		return db.Author{}, false, m.findErr
	}
	a, ok := m.authors[id]
	return a, ok, nil
}

type lineErr struct {
	lineNo int
	err    error
}

// recordObserver keeps every event it is given.
type recordObserver struct {
	saved []string
	errs  []lineErr
	done  []Stats
	kinds []Kind
}

func (o *recordObserver) OnSaved(kind Kind, id, name string) { o.saved = append(o.saved, id) }

func (o *recordObserver) OnLineError(kind Kind, lineNo int, line string, err error) {
	o.errs = append(o.errs, lineErr{lineNo, err})
}

func (o *recordObserver) OnDone(kind Kind, stats Stats, elapsed time.Duration) {
	o.done = append(o.done, stats)
	o.kinds = append(o.kinds, kind)
}

func writeLines(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestLoadAuthorsMalformedLineResilience(t *testing.T) {
	path := writeLines(t, "authors.txt",
		"/type/author\t/authors/OL1A\t1\t2008-04-01T03:28:50.625462\t"+`{"key":"/authors/OL1A","name":"One"}`,
		`{"key":"/authors/OL2A","name":"Two"}`,
		`{"key":"/authors/OL3A","name":`,
		`{"key":"/authors/OL4A","name":"Four"}`,
		`{"key":"/authors/OL5A","name":"Five"}`,
	)
	store := newMemStore()
	obs := &recordObserver{}
	l := NewLoader(store, obs)

	stats, err := l.LoadAuthors(context.Background(), path, dump.Options{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Read: 5, Saved: 4, Failed: 1}, stats)
	assert.Len(t, store.authors, 4)
	assert.Equal(t, []string{"OL1A", "OL2A", "OL4A", "OL5A"}, obs.saved)
	require.Len(t, obs.errs, 1)
	assert.Equal(t, 3, obs.errs[0].lineNo)
	var pe *dump.ParseError
	assert.ErrorAs(t, obs.errs[0].err, &pe)
	assert.Equal(t, []Stats{stats}, obs.done)
}

func TestLoadAuthorsSkipAndDuplicates(t *testing.T) {
	path := writeLines(t, "authors.txt",
		`{"key":"/authors/OL1A","name":"One"}`,
		`{"key":"/authors/OL2A","name":"Two"}`,
		`{"key":"/authors/OL2A","name":"Two again"}`,
		`{"name":"keyless"}`,
	)
	store := newMemStore()
	obs := &recordObserver{}

	stats, err := NewLoader(store, obs).LoadAuthors(context.Background(), path, dump.Options{Skip: 1})
	require.NoError(t, err)

	assert.Equal(t, Stats{Read: 3, Saved: 2, Failed: 1}, stats)
	assert.NotContains(t, store.authors, "OL1A")
	assert.Equal(t, "Two again", store.authors["OL2A"].Name)
	require.Len(t, obs.errs, 1)
	assert.Equal(t, 4, obs.errs[0].lineNo, "line numbers count skipped lines too")
	var mk *MissingKeyError
	assert.ErrorAs(t, obs.errs[0].err, &mk)
}

func TestLoadBooksResolvesAndLimits(t *testing.T) {
	path := writeLines(t, "works.txt",
		"/works/OL1W\t"+`{"key":"/works/OL1W","title":"Test Book","created":{"value":"2020-01-02T03:04:05.000000"},"authors":[{"author":{"key":"/authors/OL1A"}}]}`,
		`{"key":"/works/OL2W","title":"Bad date","created":{"value":"02/01/2020"}}`,
		`{"key":"/works/OL3W","title":"Orphan","authors":[{"author":{"key":"/authors/OL404A"}}]}`,
		`{"key":"/works/OL4W","title":"Past limit"}`,
	)
	store := newMemStore()
	store.authors["OL1A"] = db.Author{ID: "OL1A", Name: "Jane Doe"}
	obs := &recordObserver{}

	stats, err := NewLoader(store, obs).LoadBooks(context.Background(), path, dump.Options{Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, Stats{Read: 3, Saved: 2, Failed: 1}, stats)
	require.Contains(t, store.books, "OL1W")
	b := store.books["OL1W"]
	assert.Equal(t, "Test Book", b.Name)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), *b.PublishedDate)
	assert.Equal(t, []string{"Jane Doe"}, b.AuthorNames)
	assert.Equal(t, []string{UnknownAuthor}, store.books["OL3W"].AuthorNames)
	assert.NotContains(t, store.books, "OL2W")
	assert.NotContains(t, store.books, "OL4W")

	require.Len(t, obs.errs, 1)
	var de *DateParseError
	assert.ErrorAs(t, obs.errs[0].err, &de)
}

func TestLoadBooksInjectedResolver(t *testing.T) {
	path := writeLines(t, "works.txt", `{"key":"/works/OL1W","authors":[{"author":{"key":"/authors/OL1A"}}]}`)
	store := newMemStore()
	l := NewLoader(store, nil)
	l.Resolver = ResolverFunc(func(ctx context.Context, id string) string { return "stub:" + id })

	_, err := l.LoadBooks(context.Background(), path, dump.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stub:OL1A"}, store.books["OL1W"].AuthorNames)
}

func TestLoadSaveFailureSkipsLine(t *testing.T) {
	path := writeLines(t, "authors.txt",
		`{"key":"/authors/OL1A"}`,
		`{"key":"/authors/OL2A"}`,
		`{"key":"/authors/OL3A"}`,
	)
	store := newMemStore()
	store.saveErrFor["OL2A"] = errors.New("disk full")
	obs := &recordObserver{}

	stats, err := NewLoader(store, obs).LoadAuthors(context.Background(), path, dump.Options{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 3, Saved: 2, Failed: 1}, stats)

	require.Len(t, obs.errs, 1)
	var se *StoreError
	require.ErrorAs(t, obs.errs[0].err, &se)
	assert.Equal(t, "OL2A", se.ID)
}

func TestLoadOpenFailure(t *testing.T) {
	obs := &recordObserver{}
	_, err := NewLoader(newMemStore(), obs).LoadBooks(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), dump.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, obs.done)
}

func TestLoadStopsOnCancel(t *testing.T) {
	path := writeLines(t, "authors.txt", `{"key":"/authors/OL1A"}`, `{"key":"/authors/OL2A"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	stats, err := NewLoader(store, nil).LoadAuthors(ctx, path, dump.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Read)
	assert.Empty(t, store.authors)
}

func TestRunAuthorsThenBooks(t *testing.T) {
	authors := writeLines(t, "authors.txt", `{"key":"/authors/OL1A","name":"Jane Doe"}`)
	works := writeLines(t, "works.txt", `{"key":"/works/OL1W","authors":[{"author":{"key":"/authors/OL1A"}}]}`)

	store := newMemStore()
	obs := &recordObserver{}
	err := NewLoader(store, obs).Run(context.Background(), RunConfig{
		Authors: Pipeline{Enabled: true, Path: authors},
		Works:   Pipeline{Enabled: true, Path: works},
	})
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindAuthor, KindBook}, obs.kinds)
	assert.Equal(t, []string{"Jane Doe"}, store.books["OL1W"].AuthorNames)
}

func TestRunPipelinesAreIndependent(t *testing.T) {
	works := writeLines(t, "works.txt", `{"key":"/works/OL1W"}`)

	store := newMemStore()
	err := NewLoader(store, nil).Run(context.Background(), RunConfig{
		Authors: Pipeline{Enabled: true, Path: filepath.Join(t.TempDir(), "missing.txt")},
		Works:   Pipeline{Enabled: true, Path: works},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authors:")
	assert.Contains(t, store.books, "OL1W")
}

func TestRunDisabledPipeline(t *testing.T) {
	store := newMemStore()
	err := NewLoader(store, nil).Run(context.Background(), RunConfig{
		Authors: Pipeline{Enabled: false, Path: "does-not-matter"},
	})
	require.NoError(t, err)
	assert.Zero(t, store.saves)
}

func TestLoadIntoSQLite(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()
	store := db.NewStore(conn)

	authors := writeLines(t, "authors.txt",
		`{"key":"/authors/OL1A","name":"Jane Doe","personal_name":"Jane"}`,
		`{"key":"/authors/OL1A","name":"Jane Doe","personal_name":"Jane"}`,
	)
	works := writeLines(t, "works.txt",
		"/works/OL1W\t"+`{"key":"/works/OL1W","title":"Test Book","created":{"value":"2020-01-02T03:04:05.000000"},"covers":[42],"authors":[{"author":{"key":"/authors/OL1A"}}]}`,
	)

	l := NewLoader(store, &LogObserver{})
	require.NoError(t, l.Run(context.Background(), RunConfig{
		Authors: Pipeline{Enabled: true, Path: authors},
		Works:   Pipeline{Enabled: true, Path: works},
	}))

	var cnt int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM authors`).Scan(&cnt))
	assert.Equal(t, 1, cnt)

	b, ok, err := store.FindBook(context.Background(), "OL1W")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test Book", b.Name)
	assert.Equal(t, []string{"42"}, b.CoverIDs)
	assert.Equal(t, []string{"OL1A"}, b.AuthorIDs)
	assert.Equal(t, []string{"Jane Doe"}, b.AuthorNames)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), *b.PublishedDate)
}
