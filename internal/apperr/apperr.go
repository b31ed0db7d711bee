// Package apperr classifies request decoding failures.
package apperr

import (
	"errors"

	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

type decodeError struct {
	kind string
	msg  string
}

func (e decodeError) Error() string { return e.msg }
func (e decodeError) Kind() string  { return e.kind }

var (
	ErrEmptyPayload   = decodeError{kind: "empty_payload", msg: "empty payload"}
	ErrFieldCount     = decodeError{kind: "field_count", msg: "expected 3 fields"}
	ErrBadStatusHint  = decodeError{kind: "bad_status_hint", msg: "status hint is not an integer"}
	ErrBadDelay       = decodeError{kind: "bad_delay", msg: "delay is not an integer in range"}
	ErrBadRequestLine = decodeError{kind: "bad_request_line", msg: "malformed request line"}
)

// kinder is satisfied by errors that carry a classification kind.
type kinder interface {
	Kind() string
}

// Kind returns the classification of err, or "internal" for errors
// that carry none.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "internal"
}

// IsDecode reports whether err is a request decoding failure.
func IsDecode(err error) bool {
	var de decodeError
	return errors.As(err, &de)
}

// Outcome maps a decode result to the outcome it produces.
func Outcome(err error) model.Outcome {
	if err == nil {
		return model.OK
	}
	return model.BadRequest
}
