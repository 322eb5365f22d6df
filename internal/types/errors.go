package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a tag does not exist.
var ErrNotFound = errors.New("not found")

// PlanStep names one phase of applying a MergePlan.
type PlanStep string

const (
	StepReparent    PlanStep = "reparent"
	StepClearParent PlanStep = "clear_parent"
	StepDelete      PlanStep = "delete"
	StepUpsertRule  PlanStep = "upsert_rule"
)

// PlanStepError reports the step and tag at which applying a plan failed.
type PlanStepError struct {
	Step  PlanStep
	TagID string
	// Name is the tag or rule source name involved, when known
	Name string
	Err  error
}

func (e *PlanStepError) Error() string {
	subject := e.TagID
	switch {
	case subject == "":
		subject = e.Name
	case e.Name != "":
		subject += " (" + e.Name + ")"
	}
	return fmt.Sprintf("%s %s: %v", e.Step, subject, e.Err)
}

func (e *PlanStepError) Unwrap() error {
	return e.Err
}
