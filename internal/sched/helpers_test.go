package sched

import (
	"context"
	"errors"
	"testing"
)

// trail records the order tasks ran in.
type trail struct {
	ids []TaskID
}

func (tr *trail) task() Runnable {
	return RunnableFunc(func(ctx context.Context, c *Control) error {
		tr.ids = append(tr.ids, c.ID())
		return nil
	})
}

// sink keeps every event it is given.
type sink struct {
	events []Event
}

func (s *sink) Record(ev Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *sink) kinds(id TaskID) []EventKind {
	var out []EventKind
	for _, ev := range s.events {
		if ev.Transition() && ev.TaskID == id {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func noop() Runnable {
	return RunnableFunc(func(ctx context.Context, c *Control) error { return nil })
}

func ready(id TaskID, prio uint16, entry Runnable) Descriptor {
	d := NewDescriptor(id, "", prio, entry)
	d.InitialState = Ready
	return d
}

func mustRegistry(t *testing.T, descs ...Descriptor) *Registry {
	t.Helper()
	reg, err := RegisterAll(descs...)
	if err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return reg
}

func mustScheduler(t *testing.T, reg *Registry, auto *AutoStart, opts Options) *Scheduler {
	t.Helper()
	s, err := New(reg, auto, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustState(t *testing.T, tr *Tracker, id TaskID, want State) {
	t.Helper()
	got, err := tr.State(id)
	if err != nil {
		t.Fatalf("State(%d): %v", id, err)
	}
	if got != want {
		t.Errorf("task %d: state = %s, want %s", id, got, want)
	}
}

func equalIDs(a, b []TaskID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errBoom = errors.New("boom")
