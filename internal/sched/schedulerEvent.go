// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventBoot EventKind = iota
	EventActivate
	EventDispatch
	EventYield
	EventComplete
	EventBlock
	EventWake
	EventFault
	EventRecover
	EventAlarm
	EventTick
	EventShutdown
)

// Event is emitted on every state transition and on key actions.
type Event struct {
	Time   time.Time
	Tick   int64
	Pass   int64
	Kind   EventKind
	TaskID TaskID
	Name   string
	From   State
	To     State
	Err    error
}

// Sink receives scheduler events. Record is called on the loop goroutine.
type Sink interface {
	Record(Event) error
}

func (k EventKind) String() string {
	switch k {
	case EventBoot:
		return "Boot"
	case EventActivate:
		return "Activate"
	case EventDispatch:
		return "Dispatch"
	case EventYield:
		return "Yield"
	case EventComplete:
		return "Complete"
	case EventBlock:
		return "Block"
	case EventWake:
		return "Wake"
	case EventFault:
		return "Fault"
	case EventRecover:
		return "Recover"
	case EventAlarm:
		return "Alarm"
	case EventTick:
		return "Tick"
	case EventShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// HasTask reports whether the event names a task: every transition, and
// alarms that activate one.
func (e Event) HasTask() bool {
	return e.Transition() || (e.Kind == EventAlarm && e.Name != "")
}

// Transition reports whether the event moved a task between states.
func (e Event) Transition() bool {
	switch e.Kind {
	case EventActivate, EventDispatch, EventYield, EventComplete, EventBlock, EventWake, EventFault, EventRecover:
		return true
	}
	return false
}
