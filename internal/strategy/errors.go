package strategy

import (
	"fmt"
)

// SpecError reports a malformed or semantically invalid strategy document.
// It names the offending field so the caller can act on it.
type SpecError struct {
	Field  string
	Detail string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid strategy spec: %s: %s", e.Field, e.Detail)
}

// UnknownIndicatorError reports a condition referencing an indicator column
// that has no corresponding computed series.
type UnknownIndicatorError struct {
	Column string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator column %q: no computed series available", e.Column)
}

// InvalidPercentageError reports an exit rule with a non-positive trigger
// percentage.
type InvalidPercentageError struct {
	Rule    string
	Percent float64
}

func (e *InvalidPercentageError) Error() string {
	return fmt.Sprintf("exit rule %s has invalid percentage %v: must be > 0", e.Rule, e.Percent)
}
