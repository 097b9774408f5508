package pipeline

import (
	"errors"
	"fmt"

	"archloom/loom/internal/chunk"
	"archloom/loom/internal/diff"
	"archloom/loom/internal/resolve"
	"archloom/loom/internal/rules"
)

// InfrastructureError wraps a store or transport failure. It is never fed
// back to the producer: regenerating a diff cannot fix a broken database, so
// the batch aborts instead of retrying.
type InfrastructureError struct {
	Phase Phase
	Err   error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Phase, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// semanticFailure reports whether an error is a defect in the diff itself,
// the class a regenerated diff can fix.
func semanticFailure(err error) bool {
	var (
		parseErr   *diff.ParseError
		typeErr    *diff.UnknownTypeError
		dupErr     *resolve.DuplicateEntityError
		unknownErr *resolve.UnknownReferenceError
		cycleErr   *chunk.CyclicDependencyError
		valErr     *rules.ValidationError
	)
	return errors.As(err, &parseErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &dupErr) ||
		errors.As(err, &unknownErr) ||
		errors.As(err, &cycleErr) ||
		errors.As(err, &valErr)
}

// classifyResolve tags store lookup failures surfaced during resolution as
// infrastructure errors; every other resolution error is a defect in the
// batch and passes through.
func classifyResolve(err error) error {
	var lookupErr *resolve.LookupError
	if errors.As(err, &lookupErr) {
		return &InfrastructureError{Phase: PhaseResolving, Err: err}
	}
	return err
}

// feedbackFor renders the re-prompt block for a semantic failure.
func feedbackFor(err error) string {
	var valErr *rules.ValidationError
	if errors.As(err, &valErr) {
		return rules.Feedback(valErr.Violations)
	}
	return "The proposed diff was rejected. Fix the following and emit a corrected diff:\n- " + err.Error() + "\n"
}
