// Package dump reads Open Library style dump files: one record per line, each line
// either a bare JSON object or a non-JSON prefix (e.g. tab-separated type, key,
// revision and timestamp columns) followed by the JSON object.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Options bound the amount of work done over one source.
type Options struct {
	// Skip drops that many leading lines before any are yielded.
	Skip int

	// Limit yields at most that many lines after Skip. Zero or negative means no limit.
	Limit int
}

// Source is an open dump file. It is single pass: Lines may be ranged over once.
type Source struct {
	path   string
	f      *os.File
	gz     *gzip.Reader
	r      *bufio.Reader
	opts   Options
	lineNo int
}

// Open opens the dump at path. Paths ending in ".gz" are decompressed on the fly.
func Open(path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Source{path: path, f: f, opts: opts}
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		s.gz = gz
		r = gz
	}
	s.r = bufio.NewReaderSize(r, 1<<20)
	return s, nil
}

// LineNo returns the 1-based number, within the whole file, of the last line read.
func (s *Source) LineNo() int { return s.lineNo }

// Lines yields raw lines without their trailing newline. A read failure is yielded
// once as a non-nil error and ends the sequence.
func (s *Source) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yielded := 0
		for {
			if s.opts.Limit > 0 && yielded >= s.opts.Limit {
				return
			}
			line, err := s.r.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				yield("", fmt.Errorf("read %s after line %d: %w", s.path, s.lineNo, err))
				return
			}
			if line == "" && err != nil {
				return
			}
			s.lineNo++
			if s.lineNo > s.opts.Skip {
				if !yield(strings.TrimRight(line, "\r\n"), nil) {
					return
				}
				yielded++
			}
			if err != nil {
				return
			}
		}
	}
}

// Close releases the file handle.
func (s *Source) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.f.Close()
}
