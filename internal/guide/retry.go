// SPDX-License-Identifier: MIT

package guide

import "time"

// BatchPhase is the state of one detail batch.
type BatchPhase int

const (
	Pending BatchPhase = iota
	Retrying
	Succeeded
	Exhausted
)

func (p BatchPhase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MaxAttempts is the number of requests per batch, including the first.
const MaxAttempts = 3

// Backoff is the wait before the attempt following attempt n (1-based):
// 2s, 4s, 8s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<attempt) * time.Second
}

// BatchState tracks retries of one batch.
type BatchState struct {
	Phase   BatchPhase
	Attempt int // requests issued so far
}

// Next applies the outcome of a request and returns the wait before the next
// one. The wait is zero once the batch is terminal.
func (s BatchState) Next(ok bool) (BatchState, time.Duration) {
	attempt := s.Attempt + 1
	switch {
	case ok:
		return BatchState{Phase: Succeeded, Attempt: attempt}, 0
	case attempt >= MaxAttempts:
		return BatchState{Phase: Exhausted, Attempt: attempt}, 0
	default:
		return BatchState{Phase: Retrying, Attempt: attempt}, Backoff(attempt)
	}
}

// Done reports whether the batch reached a terminal phase.
func (s BatchState) Done() bool {
	return s.Phase == Succeeded || s.Phase == Exhausted
}
