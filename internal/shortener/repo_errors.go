package shortener

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/edgelink/internal/errx"
	"github.com/sundayezeilo/edgelink/internal/query"
)

// ErrMissingID reports a created record that came back without an identifier.
var ErrMissingID = errors.New("created record has no id")

// LookupReason tells apart the ways a lookup by key can fail.
type LookupReason uint8

const (
	ReasonNotFound LookupReason = iota
	ReasonMalformed
	ReasonUnavailable
	ReasonInvalid
)

func (r LookupReason) String() string {
	switch r {
	case ReasonNotFound:
		return "not found"
	case ReasonMalformed:
		return "malformed record"
	case ReasonUnavailable:
		return "engine unavailable"
	case ReasonInvalid:
		return "invalid key"
	default:
		return fmt.Sprintf("LookupReason(%d)", r)
	}
}

// kind maps a lookup reason to an error kind.
func (r LookupReason) kind() errx.Kind {
	switch r {
	case ReasonNotFound:
		return errx.NotFound
	case ReasonMalformed:
		return errx.Malformed
	case ReasonInvalid:
		return errx.Invalid
	default:
		return errx.Unavailable
	}
}

// LookupError is returned when FindLinkByKey cannot produce a url.
type LookupError struct {
	Key    string
	Reason LookupReason
	Err    error
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("link %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("link %q: %s: %v", e.Key, e.Reason, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// CreateError is returned when CreateLink fails, either in the engine or because the
// created record could not be read back.
type CreateError struct {
	Key string
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create link %q: %v", e.Key, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

func isKeyUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "link_key_unique"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// lookupReason classifies a decode failure for FindLinkByKey.
func lookupReason(err error) LookupReason {
	var queryErr *query.QueryError
	switch {
	case errors.Is(err, query.ErrNoRecords):
		return ReasonNotFound
	case errors.As(err, &queryErr):
		return ReasonUnavailable
	default:
		return ReasonMalformed
	}
}

// createKind classifies a decode failure for CreateLink.
func createKind(err error) errx.Kind {
	var queryErr *query.QueryError
	var shapeErr *query.ShapeError
	switch {
	case isKeyUniqueViolation(err):
		return errx.Conflict
	case isCheckViolation(err):
		return errx.Invalid
	case errors.As(err, &queryErr):
		return errx.Unavailable
	case errors.As(err, &shapeErr):
		return errx.Malformed
	default:
		return errx.Internal
	}
}
