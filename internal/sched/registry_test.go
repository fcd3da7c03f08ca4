package sched

import (
	"errors"
	"testing"
)

func TestRegisterAll_CountAndGet(t *testing.T) {
	descs := []Descriptor{
		NewDescriptor(0, "Led_Task", 1, noop()),
		NewDescriptor(7, "Task_1", 1, noop()),
		NewDescriptor(3, "Task_2", 4, noop()),
	}
	reg := mustRegistry(t, descs...)

	if reg.Count() != len(descs) {
		t.Fatalf("Count() = %d, want %d", reg.Count(), len(descs))
	}
	for _, d := range descs {
		got, err := reg.Get(d.ID)
		if err != nil {
			t.Fatalf("Get(%d): %v", d.ID, err)
		}
		if got.Name != d.Name || got.Priority != d.Priority {
			t.Errorf("Get(%d) = %+v, want %+v", d.ID, got, d)
		}
	}

	all := reg.Descriptors()
	for i, d := range all {
		if d.ID != descs[i].ID {
			t.Errorf("Descriptors()[%d].ID = %d, want %d", i, d.ID, descs[i].ID)
		}
	}
}

func TestRegisterAll_Empty(t *testing.T) {
	reg := mustRegistry(t)
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegisterAll_DuplicateID(t *testing.T) {
	_, err := RegisterAll(
		NewDescriptor(1, "a", 1, noop()),
		NewDescriptor(2, "b", 1, noop()),
		NewDescriptor(1, "c", 2, noop()),
	)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	var dup *DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateIDError, got %T", err)
	}
	if dup.ID != 1 || dup.First != "a" || dup.Next != "c" {
		t.Errorf("unexpected error detail: %+v", dup)
	}
}

func TestRegisterAll_InvalidDescriptor(t *testing.T) {
	running := NewDescriptor(2, "r", 1, noop())
	running.InitialState = Running

	tests := []struct {
		name string
		d    Descriptor
	}{
		{"nil entry", NewDescriptor(1, "n", 1, nil)},
		{"starts running", running},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RegisterAll(tt.d)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	reg := mustRegistry(t, NewDescriptor(1, "a", 1, noop()))

	_, err := reg.Get(9)
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != 9 {
		t.Fatalf("expected NotFoundError for 9, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected errors.Is(err, ErrNotFound)")
	}
}

func TestBuilder_FrozenAfterBuild(t *testing.T) {
	b := NewBuilder(1).Add(NewDescriptor(1, "a", 1, noop()))
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := b.Add(NewDescriptor(2, "b", 1, noop())).Build(); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected adding after Build to fail, got %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("built registry changed: Count() = %d", reg.Count())
	}
}
