package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a tracked job.
//
//	interested ──► applied ──► interview ──► accepted
//	                                    └──► rejected
//
// The graph is the usual path, not a constraint: users correct mistakes by
// moving a job to any known state.
type Status string

const (
	StatusInterested Status = "interested"
	StatusApplied    Status = "applied"
	StatusInterview  Status = "interview"
	StatusRejected   Status = "rejected"
	StatusAccepted   Status = "accepted"
)

// AllStatuses lists every state in lifecycle order.
var AllStatuses = []Status{
	StatusInterested,
	StatusApplied,
	StatusInterview,
	StatusRejected,
	StatusAccepted,
}

// InvalidStatusError reports a value outside the closed set.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unknown job status %q", e.Value)
}

// ParseStatus accepts only the exact lowercase names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &InvalidStatusError{Value: s}
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusInterested, StatusApplied, StatusInterview, StatusRejected, StatusAccepted:
		return true
	}
	return false
}

// Rank orders statuses along the lifecycle. Rejected and Accepted share
// the final rank. Unknown values rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusInterested:
		return 0
	case StatusApplied:
		return 1
	case StatusInterview:
		return 2
	case StatusRejected, StatusAccepted:
		return 3
	}
	return -1
}

// Terminal reports whether s ends the usual path.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusAccepted
}

// Label is the display form used by the UI.
func (s Status) Label() string {
	if !s.Valid() {
		return string(s)
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ValidateTransition accepts any move between known states, including
// backwards moves and self-transitions.
func ValidateTransition(from, to Status) error {
	if !from.Valid() {
		return &InvalidStatusError{Value: string(from)}
	}
	if !to.Valid() {
		return &InvalidStatusError{Value: string(to)}
	}
	return nil
}
