package sched

// AutoStart lists the tasks promoted to READY at boot.
type AutoStart struct {
	ids []TaskID
}

// NewAutoStart copies ids in table order.
func NewAutoStart(ids ...TaskID) *AutoStart {
	return &AutoStart{ids: append([]TaskID(nil), ids...)}
}

// Count returns the number of auto-started tasks.
func (a *AutoStart) Count() int { return len(a.ids) }

// IDs returns the listed ids.
func (a *AutoStart) IDs() []TaskID { return append([]TaskID(nil), a.ids...) }

// Apply sets every listed task to READY. All ids are checked before any
// state changes, so a bad entry leaves the tracker untouched.
func (a *AutoStart) Apply(tr *Tracker) error {
	for _, id := range a.ids {
		if _, ok := tr.reg.position(id); !ok {
			return &NotFoundError{ID: id}
		}
	}
	for _, id := range a.ids {
		st, _, _ := tr.slot(id)
		if st.state == Ready {
			continue
		}
		st.activations++
		if err := tr.SetState(id, Ready); err != nil {
			return err
		}
	}
	return nil
}
