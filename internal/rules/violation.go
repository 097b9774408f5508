package rules

import (
	"fmt"
	"strings"
)

// Severity controls whether a violation rejects the batch or only surfaces
// in feedback.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one rule failure against the batch.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Entities []string `json:"entities,omitempty"`
	Message  string   `json:"message"`
}

func (v Violation) String() string {
	if len(v.Entities) == 0 {
		return fmt.Sprintf("[%s] %s", v.RuleID, v.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", v.RuleID, v.Message, strings.Join(v.Entities, ", "))
}

// ValidationError carries every error-severity violation from one batch.
// The batch is rejected as a whole; no operation from it is eligible to
// commit.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("batch failed validation with %d violation(s)", len(e.Violations))
}

// Feedback aggregates the violations into a single block suitable for
// re-prompting the producer.
func Feedback(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The proposed diff was rejected. Fix the following and emit a corrected diff:\n")
	for _, v := range violations {
		b.WriteString("- ")
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	return b.String()
}
