package extract

import "errors"

var (
	// ErrHeaderNotFound is returned when no text node matches any header
	// keyword of a section. It is not fatal: the section is left empty.
	ErrHeaderNotFound = errors.New("section header not found")

	// ErrNoHeaders is returned when a rule has no header keywords.
	ErrNoHeaders = errors.New("section rule has no header keywords")
)
