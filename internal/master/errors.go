package master

import (
	"errors"
	"net/http"

	"github.com/zeebo/errs"
)

// Class is the error class for handler-local errors that don't belong
// to a lower package (BadRequest, AlreadyExists).
var Class = errs.Class("master")

// ErrAlreadyExists is returned when PUT targets a key that has a record
// in any state, live or SOFT.
var ErrAlreadyExists = Class.New("key already exists")

// ErrBadRequest is returned for an unparseable or negative
// Content-Length, or a malformed query.
var ErrBadRequest = Class.New("bad request")

// ErrLengthRequired is returned when Content-Length is absent entirely
// (as opposed to present but unparseable, which is ErrBadRequest).
var ErrLengthRequired = Class.New("length required")

// statusFor maps an error produced anywhere in the PUT/GET/DELETE/UNLINK
// pipeline to the HTTP status spec.md's error table assigns it. This is
// the single chokepoint translating error kinds to status codes for the
// PUT, GET/HEAD, DELETE, UNLINK and prefix-list handlers, which route
// their errors through writeError rather than writing a status literal.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errs.Is(err, ErrAlreadyExists):
		return http.StatusForbidden
	case errs.Is(err, ErrLengthRequired):
		return http.StatusLengthRequired
	case errs.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		// CorruptRecord, IndexError, RemoteStatus, RemoteTransport all
		// surface as 500 per spec.md's error table.
		return http.StatusInternalServerError
	}
}
