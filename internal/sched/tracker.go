package sched

import (
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// taskState is the mutable half of a task, one per descriptor.
type taskState struct {
	state       State
	faulted     bool
	lastFault   error
	saved       any // continuation handed back to the task on its next slice
	activations int64
	dispatches  int64
}

// Tracker holds the runtime state table and an index of READY tasks
// ordered by (priority, id).
type Tracker struct {
	reg    *Registry
	states []taskState       // parallel to reg.descs
	ready  *redblacktree.Tree // readyKey -> TaskID
}

// NewTracker creates the state table with every task in its initial state.
func NewTracker(reg *Registry) *Tracker {
	tr := &Tracker{
		reg:    reg,
		states: make([]taskState, reg.Count()),
		ready:  redblacktree.NewWith(cmp),
	}
	for i, d := range reg.descs {
		tr.states[i].state = d.InitialState
		if d.InitialState == Ready {
			tr.ready.Put(readyKey{d.Priority, d.ID}, d.ID)
		}
	}
	return tr
}

func (tr *Tracker) slot(id TaskID) (*taskState, Descriptor, error) {
	i, ok := tr.reg.position(id)
	if !ok {
		return nil, Descriptor{}, &NotFoundError{ID: id}
	}
	return &tr.states[i], tr.reg.descs[i], nil
}

// SetState moves id to s and keeps the ready index in sync. Leaving
// BLOCKED clears the fault flag.
func (tr *Tracker) SetState(id TaskID, s State) error {
	if !s.valid() {
		return fmt.Errorf("%w: task %d to state %d", ErrInvalidTransition, id, int(s))
	}
	st, d, err := tr.slot(id)
	if err != nil {
		return err
	}
	if st.state == Blocked && s != Blocked {
		st.faulted = false
		st.lastFault = nil
	}
	key := readyKey{d.Priority, d.ID}
	if st.state == Ready && s != Ready {
		tr.ready.Remove(key)
	} else if s == Ready && st.state != Ready {
		tr.ready.Put(key, d.ID)
	}
	st.state = s
	return nil
}

// State returns the current state of id.
func (tr *Tracker) State(id TaskID) (State, error) {
	st, _, err := tr.slot(id)
	if err != nil {
		return Idle, err
	}
	return st.state, nil
}

// Faulted reports whether id is quarantined after a fault.
func (tr *Tracker) Faulted(id TaskID) (bool, error) {
	st, _, err := tr.slot(id)
	if err != nil {
		return false, err
	}
	return st.faulted, nil
}

// HighestPriorityReady returns the READY task with the lowest priority
// value, ties broken by the lowest id.
func (tr *Tracker) HighestPriorityReady() (TaskID, bool) {
	node := tr.ready.Left()
	if node == nil {
		return 0, false
	}
	return node.Value.(TaskID), true
}

// Ready returns all READY tasks in dispatch order.
func (tr *Tracker) Ready() []TaskID {
	out := make([]TaskID, 0, tr.ready.Size())
	for _, v := range tr.ready.Values() {
		out = append(out, v.(TaskID))
	}
	return out
}

// ReadyCount returns the number of READY tasks.
func (tr *Tracker) ReadyCount() int { return tr.ready.Size() }

// Snapshot is a read-only view of one task's runtime state.
type Snapshot struct {
	ID          TaskID
	Name        string
	Priority    uint16
	State       State
	Faulted     bool
	LastFault   error
	Activations int64
	Dispatches  int64
}

// Snapshot returns the runtime view of every task in registration order.
func (tr *Tracker) Snapshot() []Snapshot {
	out := make([]Snapshot, len(tr.states))
	for i, d := range tr.reg.descs {
		st := tr.states[i]
		out[i] = Snapshot{
			ID:          d.ID,
			Name:        d.label(),
			Priority:    d.Priority,
			State:       st.state,
			Faulted:     st.faulted,
			LastFault:   st.lastFault,
			Activations: st.activations,
			Dispatches:  st.dispatches,
		}
	}
	return out
}

// readyKey is used as a key in the red-black tree.
type readyKey struct {
	priority uint16
	id       TaskID
}

// cmp orders readyKeys by priority, then id.
func cmp(a, b any) int {
	ka, kb := a.(readyKey), b.(readyKey)
	switch {
	case ka.priority < kb.priority:
		return -1
	case ka.priority > kb.priority:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
