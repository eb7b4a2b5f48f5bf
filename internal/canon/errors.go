package canon

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the error taxonomy from spec.md §7. Callers
// should match with errors.Is, never by comparing message strings.
var (
	// ErrFetch is transient: the caller retries with backoff, and on
	// final failure the source is skipped for the run.
	ErrFetch = errors.New("fetch error")

	// ErrParse surfaces only when an entire page is unparseable (no H2
	// could be identified); malformed individual entries are logged and
	// dropped instead of producing this error.
	ErrParse = errors.New("parse error")

	// ErrClassification marks an entry missing a required field, e.g. no
	// H3 category to resolve a feature identity from.
	ErrClassification = errors.New("classification error")

	// ErrDuplicateAnnouncement is benign: the store already holds a row
	// for (content_id, anchor_id) and the insert is swallowed as an
	// idempotent skip.
	ErrDuplicateAnnouncement = errors.New("duplicate announcement")

	// ErrStore is fatal for the run: writes are rolled back and no
	// FeedRun is recorded.
	ErrStore = errors.New("store error")

	// ErrEnrichment is non-fatal: the affected fields remain null and the
	// item is still emitted with its structured data.
	ErrEnrichment = errors.New("enrichment error")

	// ErrSerialization is fatal: prior store writes remain (the
	// ingestion record stands) but the feed file is not updated.
	ErrSerialization = errors.New("serialization error")
)

// wrap attaches operation context to one of the sentinel errors above
// while preserving errors.Is/errors.As matchability.
func wrap(sentinel error, op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, cause)
}

// WrapFetch wraps cause as an ErrFetch for operation op.
func WrapFetch(op string, cause error) error { return wrap(ErrFetch, op, cause) }

// WrapParse wraps cause as an ErrParse for operation op.
func WrapParse(op string, cause error) error { return wrap(ErrParse, op, cause) }

// WrapClassification wraps cause as an ErrClassification for operation op.
func WrapClassification(op string, cause error) error {
	return wrap(ErrClassification, op, cause)
}

// WrapStore wraps cause as an ErrStore for operation op.
func WrapStore(op string, cause error) error { return wrap(ErrStore, op, cause) }

// WrapEnrichment wraps cause as an ErrEnrichment for operation op.
func WrapEnrichment(op string, cause error) error { return wrap(ErrEnrichment, op, cause) }

// WrapSerialization wraps cause as an ErrSerialization for operation op.
func WrapSerialization(op string, cause error) error {
	return wrap(ErrSerialization, op, cause)
}
