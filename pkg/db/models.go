package db

import "time"

// Author is an Open Library author record as stored.
type Author struct {
	ID           string
	Name         string
	PersonalName string
}

// Book is an Open Library work. AuthorNames is a snapshot taken at load time,
// positionally aligned with AuthorIDs.
type Book struct {
	ID            string
	Name          string
	Description   *string    // nil when the work has no description object
	PublishedDate *time.Time // date only; nil when the work has no created value
	CoverIDs      []string
	AuthorIDs     []string
	AuthorNames   []string
}
