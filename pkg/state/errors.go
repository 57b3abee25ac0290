package state

import (
	"errors"
	"fmt"
)

// ErrRunNotFound indicates no run file exists for the requested run id.
var ErrRunNotFound = errors.New("run not found")

// FrontMatterError indicates a run file whose front-matter could not be
// parsed. Load never returns a partial state alongside it.
type FrontMatterError struct {
	Path string
	Err  error
}

// Error returns the formatted error message.
func (e *FrontMatterError) Error() string {
	return fmt.Sprintf("invalid front-matter in %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrontMatterError) Unwrap() error {
	return e.Err
}
