package sched

import (
	"fmt"
	"strings"
)

// AlarmType selects whether an alarm rearms after firing.
type AlarmType int

const (
	OneShot AlarmType = iota
	Cyclic
)

func (t AlarmType) String() string {
	if t == Cyclic {
		return "CYCLIC"
	}
	return "ONE_SHOT"
}

// AlarmAction is what an alarm does when it expires.
type AlarmAction int

const (
	ActivateTask AlarmAction = iota
	TriggerCallback
)

func (a AlarmAction) String() string {
	if a == TriggerCallback {
		return "TRIGGER_CALLBACK"
	}
	return "ACTIVATE_TASK"
}

// AlarmCallback is run on the loop goroutine when a TRIGGER_CALLBACK alarm
// expires.
type AlarmCallback func(alarmID int, tick int64)

// Alarm is a tick-driven timer.
type Alarm struct {
	ID       int
	Type     AlarmType
	Action   AlarmAction
	PeriodMS int
	TaskID   TaskID        // ActivateTask only
	Callback AlarmCallback // TriggerCallback only
}

// ScheduleEntry activates TaskID every PeriodMS.
type ScheduleEntry struct {
	TaskID   TaskID
	PeriodMS int
}

type alarmState struct {
	Alarm
	label   string
	counter int
	active  bool
}

func parseAlarmType(s string) (AlarmType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ONE_SHOT":
		return OneShot, nil
	case "CYCLIC":
		return Cyclic, nil
	}
	return OneShot, fmt.Errorf("unknown alarm type %q", s)
}

func parseAlarmAction(s string) (AlarmAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACTIVATE_TASK":
		return ActivateTask, nil
	case "TRIGGER_CALLBACK":
		return TriggerCallback, nil
	}
	return ActivateTask, fmt.Errorf("unknown alarm action %q", s)
}

// buildAlarms validates alarms and schedule entries against reg. Schedule
// entries become cyclic activation alarms.
func buildAlarms(reg *Registry, alarms []Alarm, table []ScheduleEntry) ([]*alarmState, error) {
	out := make([]*alarmState, 0, len(alarms)+len(table))
	seen := make(map[int]bool, len(alarms))
	for _, a := range alarms {
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate alarm id %d", a.ID)
		}
		seen[a.ID] = true
		if a.PeriodMS <= 0 {
			return nil, fmt.Errorf("alarm %d: period must be positive, got %d", a.ID, a.PeriodMS)
		}
		switch a.Action {
		case ActivateTask:
			if _, err := reg.Get(a.TaskID); err != nil {
				return nil, fmt.Errorf("alarm %d: %w", a.ID, err)
			}
		case TriggerCallback:
			if a.Callback == nil {
				return nil, fmt.Errorf("alarm %d: no callback", a.ID)
			}
		}
		out = append(out, &alarmState{Alarm: a, label: fmt.Sprintf("alarm %d", a.ID), active: true})
	}
	for i, e := range table {
		if e.PeriodMS <= 0 {
			return nil, fmt.Errorf("schedule entry %d: period must be positive, got %d", i, e.PeriodMS)
		}
		if _, err := reg.Get(e.TaskID); err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		out = append(out, &alarmState{
			Alarm:  Alarm{ID: -1, Type: Cyclic, Action: ActivateTask, PeriodMS: e.PeriodMS, TaskID: e.TaskID},
			label:  fmt.Sprintf("schedule %d", i),
			active: true,
		})
	}
	return out, nil
}

// advanceAlarms adds one tick to every active counter and fires the
// expired ones in table order.
func (s *Scheduler) advanceAlarms() {
	for _, a := range s.alarms {
		if !a.active {
			continue
		}
		a.counter += s.tickMS
		if a.counter < a.PeriodMS {
			continue
		}
		if a.Type == Cyclic {
			a.counter = 0
		} else {
			a.active = false
		}
		s.fireAlarm(a)
	}
}

func (s *Scheduler) fireAlarm(a *alarmState) {
	ev := Event{Kind: EventAlarm}
	switch a.Action {
	case ActivateTask:
		d, _ := s.reg.Get(a.TaskID)
		ev.TaskID, ev.Name = a.TaskID, d.label()
		if err := s.Activate(a.TaskID); err != nil {
			s.logger.Warn("alarm activation failed", "alarm", a.label, "task", a.TaskID, "error", err)
			ev.Err = err
		}
	case TriggerCallback:
		s.callHook(a.label, func() { a.Callback(a.ID, s.tick) })
	}
	s.logger.Debug("alarm fired", "alarm", a.label, "action", a.Action, "type", a.Type)
	s.emit(ev)
}

func (s *Scheduler) findAlarm(id int) (*alarmState, error) {
	for _, a := range s.alarms {
		if a.ID == id && a.ID >= 0 {
			return a, nil
		}
	}
	return nil, fmt.Errorf("alarm %d not found", id)
}

// StartAlarm rearms alarm id with a cleared counter.
func (s *Scheduler) StartAlarm(id int) error {
	a, err := s.findAlarm(id)
	if err != nil {
		return err
	}
	a.counter = 0
	a.active = true
	return nil
}

// CancelAlarm stops alarm id.
func (s *Scheduler) CancelAlarm(id int) error {
	a, err := s.findAlarm(id)
	if err != nil {
		return err
	}
	a.active = false
	return nil
}
