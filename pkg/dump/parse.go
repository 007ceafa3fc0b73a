package dump

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// errNoObject is wrapped by ParseError when a line holds no '{'.
var errNoObject = errors.New("no JSON object in line")

// ParseError reports a line that does not hold a decodable JSON object.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse record: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ParseRecord decodes the JSON object that starts at the first '{' of line into a T.
// Everything before that brace is ignored.
func ParseRecord[T any](line string) (*T, error) {
	i := strings.IndexByte(line, '{')
	if i < 0 {
		return nil, &ParseError{Line: line, Err: errNoObject}
	}
	rec := new(T)
	if err := json.Unmarshal([]byte(line[i:]), rec); err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	return rec, nil
}
