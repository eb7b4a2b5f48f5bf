package sqlite

import (
	"fmt"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// wrapDBError wraps a database error with operation context. Callers
// that need "not found" semantics (e.g. a QueryRow expected to return
// sql.ErrNoRows) check that before calling wrapDBError; this only
// handles genuine failures.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	return canon.WrapStore(op, fmt.Errorf("%w", err))
}
