package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput rejects empty or whitespace-only answers. The
	// session state is left untouched; the caller re-prompts.
	ErrInvalidInput = errors.New("answer is empty")

	// ErrInvalidTransition marks an operation invalid for the current
	// turn, e.g. submitting after completion or finalizing before it.
	ErrInvalidTransition = errors.New("operation not valid in current interview state")

	// ErrMalformedVerdict marks an oracle contract violation.
	ErrMalformedVerdict = errors.New("malformed oracle verdict")

	// ErrOracleTimeout and ErrOracleFailure are retryable: the transition
	// has not mutated state, so the same answer may be resubmitted.
	ErrOracleTimeout = errors.New("oracle call timed out")
	ErrOracleFailure = errors.New("oracle call failed")

	// ErrSessionNotFound marks an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session not found")
)

// ProfileParseError reports which dimension labels could not be extracted
// from the oracle narrative. Missing dimensions are never defaulted to
// zero; doing so would mask oracle misbehavior.
type ProfileParseError struct {
	Missing []Dimension // label not found in the narrative
	Invalid []Dimension // label found but the value did not parse
}

func (e *ProfileParseError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+joinDimensions(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+joinDimensions(e.Invalid))
	}
	return fmt.Sprintf("profile narrative could not be parsed (%s)", strings.Join(parts, "; "))
}

func joinDimensions(ds []Dimension) string {
	labels := make([]string, len(ds))
	for i, d := range ds {
		labels[i] = string(d)
	}
	return strings.Join(labels, ", ")
}
