// SPDX-License-Identifier: MIT

package zapi

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable   = errors.New("zapi: host unreachable or transport failure")
	ErrTimeout       = errors.New("zapi: request timed out")
	ErrBadStatus     = errors.New("zapi: unexpected HTTP status")
	ErrUnauthorized  = errors.New("zapi: credentials rejected")
	ErrBadResponse   = errors.New("zapi: invalid response format or malformed data")
	ErrNotSuccessful = errors.New("zapi: response without success flag")
)

// Error wraps a sentinel with the operation that failed and transport detail.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // nested lower-level error (e.g. net.Error, json.SyntaxError)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("zapi: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func newError(op string, sentinel error, status int, err error) *Error {
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Err: err}
}
