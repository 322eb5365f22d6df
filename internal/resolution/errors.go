package resolution

import (
	"errors"
	"fmt"

	"github.com/steveyegge/taxon/internal/types"
)

// Precondition failures. They are always wrapped in a *ValidationError and
// are reported before any mutation is attempted.
var (
	ErrTooFewTags    = errors.New("at least two tags are required")
	ErrUnknownTag    = errors.New("tag does not exist")
	ErrKindMismatch  = errors.New("tag kind does not match the case kind")
	ErrInvalidTarget = errors.New("target must be one of the implicated tags")
	ErrNoParent      = errors.New("a unifying parent must be selected")
	ErrInvalidParent = errors.New("parent must be an existing top-level tag")
	ErrNoReason      = errors.New("at least one reason must be selected")
	ErrInvalidReason = errors.New("reason is not part of the taxonomy")
	ErrNotTriaged    = errors.New("child is not affected by this merge")
	ErrCaseClosed    = errors.New("case is already closed")
	ErrNoSelection   = errors.New("nothing selected")
	ErrNotOrphan     = errors.New("tag is no longer an orphaned child")
)

// ValidationError reports a precondition failure of a case operation.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}

// CommitError reports the first failing step of a merge. Earlier steps may
// have been applied unless the store applies plans atomically; callers
// should reload the taxonomy and open a new case rather than retry.
type CommitError struct {
	Step       types.PlanStep
	TagID      string
	TagName    string
	TargetName string
	// Atomic is true when the store rolled the whole plan back
	Atomic bool
	Err    error
}

func (e *CommitError) Error() string {
	subject := e.TagName
	if subject == "" {
		subject = e.TagID
	}
	return fmt.Sprintf("merge into %q failed at %s of %q: %v", e.TargetName, e.Step, subject, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
