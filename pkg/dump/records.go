package dump

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
)

// AuthorRecord is the subset of an author dump object the loader reads.
// A nil field was absent from the source.
type AuthorRecord struct {
	Key          *string `json:"key"`
	Name         *string `json:"name"`
	PersonalName *string `json:"personal_name"`
}

// WorkRecord is the subset of a work dump object the loader reads.
// A nil or zero field was absent from the source.
type WorkRecord struct {
	Key         *string     `json:"key"`
	Title       *string     `json:"title"`
	Description TypedValue  `json:"description"`
	Created     TypedValue  `json:"created"`
	Covers      []CoverID   `json:"covers"`
	Authors     []AuthorRef `json:"authors"`
}

// TypedValue is the {"type": ..., "value": ...} wrapper used for text and datetime
// fields. Any JSON shape other than an object leaves it unset.
type TypedValue struct {
	// Set is true when the source held an object.
	Set   bool
	Value *string
}

func (t *TypedValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*t = TypedValue{}
		return nil
	}
	var obj struct {
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = TypedValue{Set: true, Value: obj.Value}
	return nil
}

// CoverID is a cover identifier. Numbers keep their literal JSON text.
type CoverID string

func (c *CoverID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CoverID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = CoverID(n.String())
	return nil
}

// AuthorRef is one entry of a work's authors array. Key is nil when the entry
// names no author key.
type AuthorRef struct {
	Key *string
}

var errAuthorRefShape = errors.New("authors entry: author is neither an object nor a string")

// UnmarshalJSON accepts {"author": {"key": "/authors/OL1A"}} and the older
// {"author": "/authors/OL1A"} form.
func (a *AuthorRef) UnmarshalJSON(data []byte) error {
	var entry struct {
		Author json.RawMessage `json:"author"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	raw := bytes.TrimSpace(entry.Author)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		*a = AuthorRef{}
	case raw[0] == '{':
		var obj struct {
			Key *string `json:"key"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return err
		}
		*a = AuthorRef{Key: obj.Key}
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*a = AuthorRef{Key: &s}
	default:
		return errAuthorRefShape
	}
	return nil
}
