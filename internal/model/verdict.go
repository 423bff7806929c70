package model

import (
	"fmt"
	"strings"
)

// Verdict is the oracle's structured judgment of one answer: the dominant
// profile dimension (or None), whether the answer carries enough substance
// to move on, and the follow-up to ask when it does not.
type Verdict struct {
	Dimension  Dimension `json:"dimension"`
	Sufficient bool      `json:"sufficient"`
	FollowUp   string    `json:"followUp,omitempty"`
}

// Validate enforces the oracle contract: the dimension must belong to the
// closed enum-plus-None set, and an insufficient verdict must carry a
// non-empty follow-up. Violations wrap ErrMalformedVerdict and are never
// coerced into a usable verdict.
func (v *Verdict) Validate() error {
	if _, ok := ParseDimension(string(v.Dimension)); !ok {
		return fmt.Errorf("%w: unrecognized dimension %q", ErrMalformedVerdict, v.Dimension)
	}
	if !v.Sufficient && strings.TrimSpace(v.FollowUp) == "" {
		return fmt.Errorf("%w: insufficient verdict without follow-up", ErrMalformedVerdict)
	}
	return nil
}

// Normalize maps the dimension label onto its canonical spelling. Call
// after Validate.
func (v *Verdict) Normalize() {
	if d, ok := ParseDimension(string(v.Dimension)); ok {
		v.Dimension = d
	}
}
