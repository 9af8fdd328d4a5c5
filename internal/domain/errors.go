package domain

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoData signals that a valid query matched nothing. Callers render an
// explicit empty state instead of zero-valued statistics.
var ErrNoData = eris.New("no data")

// LoadError reports an unreachable or malformed input source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps err as a LoadError for source, or returns nil when err is nil.
func NewLoadError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &LoadError{Source: source, Err: err}
}

// JoinMismatchError reports a geometry file whose derived key has no
// metadata row. It is informational: the region is kept with empty metadata.
type JoinMismatchError struct {
	Key  string
	File string
}

func (e *JoinMismatchError) Error() string {
	return fmt.Sprintf("region %q (%s) has no metadata row", e.Key, e.File)
}
