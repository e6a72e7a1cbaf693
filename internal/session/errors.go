// SPDX-License-Identifier: MIT

package session

import (
	"errors"
	"fmt"
)

// ErrAuth matches every *AuthError via errors.Is.
var ErrAuth = errors.New("authentication failed")

// Reason distinguishes authentication failures.
type Reason string

const (
	ReasonUnreachable      Reason = "unreachable"
	ReasonMalformed        Reason = "malformed"
	ReasonNoSession        Reason = "no_session"
	ReasonRejected         Reason = "rejected"
	ReasonRegionMismatch   Reason = "region_mismatch"
	ReasonMissingGuideHash Reason = "missing_guide_hash"
)

// AuthError is a terminal handshake failure.
type AuthError struct {
	Reason Reason
	Step   string
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed at %s: %s", e.Step, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }
