package sched

import (
	"context"
	"fmt"
	"strings"
)

// TaskID uniquely identifies a task in the registry.
type TaskID uint16

// State is the lifecycle state of a task.
type State int

const (
	Idle State = iota
	Ready
	Running
	Blocked
)

func (s State) valid() bool { return s >= Idle && s <= Blocked }

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// ParseState accepts the table spelling (IDLE, READY, ...) in any case.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "IDLE":
		return Idle, nil
	case "READY":
		return Ready, nil
	case "RUNNING":
		return Running, nil
	case "BLOCKED":
		return Blocked, nil
	}
	return Idle, fmt.Errorf("unknown task state %q", s)
}

// Runnable is the entry point of a task. Run is invoked once per slice and
// returning ends the slice. A non-nil error is treated as a task fault.
type Runnable interface {
	Run(ctx context.Context, c *Control) error
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func(ctx context.Context, c *Control) error

func (f RunnableFunc) Run(ctx context.Context, c *Control) error { return f(ctx, c) }

// Descriptor is one row of the static task table.
type Descriptor struct {
	ID           TaskID
	Name         string
	Entry        Runnable
	InitialState State
	Priority     uint16 // lower value is dispatched first
}

// NewDescriptor creates an IDLE descriptor.
func NewDescriptor(id TaskID, name string, priority uint16, entry Runnable) Descriptor {
	return Descriptor{
		ID:           id,
		Name:         name,
		Entry:        entry,
		InitialState: Idle,
		Priority:     priority,
	}
}

func (d Descriptor) label() string {
	if d.Name == "" {
		return fmt.Sprintf("task-%d", d.ID)
	}
	return d.Name
}
