package content

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetBySlug when no content file matches.
var ErrNotFound = errors.New("content: post not found")

// FormatError reports a content file whose front matter does not satisfy
// the post schema.
type FormatError struct {
	File  string // file name inside the content directory
	Field string // offending key, empty when the header itself is malformed
	Err   error  // underlying decode error, if any
}

func (e *FormatError) Error() string {
	switch {
	case e.Err != nil && e.Field != "":
		return fmt.Sprintf("content: %s: invalid %q: %v", e.File, e.Field, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("content: %s: malformed front matter: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("content: %s: missing required front matter key %q", e.File, e.Field)
	}
}

func (e *FormatError) Unwrap() error { return e.Err }

// DuplicateSlugError reports two content files that map to the same slug,
// e.g. "hello.md" and "hello.mdx".
type DuplicateSlugError struct {
	Slug  string
	Files []string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("content: slug %q is defined by more than one file: %v", e.Slug, e.Files)
}
