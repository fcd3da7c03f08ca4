package sched

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrDuplicateID       = errors.New("duplicate task id")
	ErrTaskFault         = errors.New("task fault")
	ErrInvalidDescriptor = errors.New("invalid task descriptor")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrReadyQueueFull    = errors.New("ready queue full")
	ErrCountMismatch     = errors.New("table count mismatch")
	ErrUnknownEntry      = errors.New("unknown task entry")
)

// DuplicateIDError reports two descriptors sharing an id.
type DuplicateIDError struct {
	ID          TaskID
	First, Next string // names of the clashing rows
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id %d (%s and %s)", e.ID, e.First, e.Next)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// NotFoundError reports a lookup of an id absent from the registry.
type NotFoundError struct {
	ID TaskID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TaskFaultError wraps a failure raised by a task body during dispatch.
type TaskFaultError struct {
	ID    TaskID
	Name  string
	Panic bool
	Err   error
}

func (e *TaskFaultError) Error() string {
	kind := "error"
	if e.Panic {
		kind = "panic"
	}
	return fmt.Sprintf("task %d (%s) faulted with %s: %v, state RUNNING -> BLOCKED", e.ID, e.Name, kind, e.Err)
}

func (e *TaskFaultError) Unwrap() error { return e.Err }

func (e *TaskFaultError) Is(target error) bool { return target == ErrTaskFault }
