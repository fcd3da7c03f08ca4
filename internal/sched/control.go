package sched

type signal int

const (
	signalYield signal = iota
	signalComplete
	signalBlock
)

// Control is handed to a task for the duration of one slice. It is the
// only way a task changes scheduler state.
type Control struct {
	s      *Scheduler
	id     TaskID
	sig    signal
	saved  any
	closed bool
}

// ID returns the running task's id.
func (c *Control) ID() TaskID { return c.id }

// Tick returns the current tick count.
func (c *Control) Tick() int64 { return c.s.tick }

// Pass returns the number of the pass in progress.
func (c *Control) Pass() int64 { return c.s.passes }

// Complete makes the task go IDLE when it returns.
func (c *Control) Complete() { c.sig = signalComplete }

// Block makes the task go BLOCKED when it returns. It stays there until
// woken.
func (c *Control) Block() { c.sig = signalBlock }

// Save stores v for the next slice of this task.
func (c *Control) Save(v any) { c.saved = v }

// Saved returns what the previous slice stored with Save.
func (c *Control) Saved() any { return c.saved }

// Activate requests IDLE -> READY for another task.
func (c *Control) Activate(id TaskID) error {
	if c.closed {
		return ErrInvalidTransition
	}
	return c.s.Activate(id)
}

// Wake requests BLOCKED -> READY for another task.
func (c *Control) Wake(id TaskID) error {
	if c.closed {
		return ErrInvalidTransition
	}
	return c.s.Wake(id)
}
