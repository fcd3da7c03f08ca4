package sched

import "fmt"

// Registry is the fixed task table. It is built once and never resized.
type Registry struct {
	descs []Descriptor
	index map[TaskID]int
}

// Builder collects descriptors for a Registry.
// The first error encountered sticks and is returned by Build.
type Builder struct {
	descs []Descriptor
	index map[TaskID]int
	err   error
	built bool
}

// NewBuilder sizes the builder for n descriptors.
func NewBuilder(n int) *Builder {
	return &Builder{
		descs: make([]Descriptor, 0, n),
		index: make(map[TaskID]int, n),
	}
}

// Add appends one descriptor.
func (b *Builder) Add(d Descriptor) *Builder {
	if b.err != nil {
		return b
	}
	if b.built {
		b.err = fmt.Errorf("%w: registry already built", ErrInvalidDescriptor)
		return b
	}
	if d.Entry == nil {
		b.err = fmt.Errorf("%w: task %d (%s) has no entry", ErrInvalidDescriptor, d.ID, d.label())
		return b
	}
	if d.InitialState == Running || d.InitialState < Idle || d.InitialState > Blocked {
		b.err = fmt.Errorf("%w: task %d (%s) cannot start %s", ErrInvalidDescriptor, d.ID, d.label(), d.InitialState)
		return b
	}
	if i, dup := b.index[d.ID]; dup {
		b.err = &DuplicateIDError{ID: d.ID, First: b.descs[i].label(), Next: d.label()}
		return b
	}
	b.index[d.ID] = len(b.descs)
	b.descs = append(b.descs, d)
	return b
}

// Build freezes the collected descriptors.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.built = true
	return &Registry{descs: b.descs, index: b.index}, nil
}

// RegisterAll builds a registry from descs in order.
func RegisterAll(descs ...Descriptor) (*Registry, error) {
	b := NewBuilder(len(descs))
	for _, d := range descs {
		b.Add(d)
	}
	return b.Build()
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int { return len(r.descs) }

// Get returns the descriptor for id.
func (r *Registry) Get(id TaskID) (Descriptor, error) {
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, &NotFoundError{ID: id}
	}
	return r.descs[i], nil
}

// Descriptors returns a copy of the table in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

func (r *Registry) position(id TaskID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}
