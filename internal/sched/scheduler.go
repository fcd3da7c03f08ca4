// internal/sched/scheduler.go

package sched

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Options tune a Scheduler. The zero value is usable.
type Options struct {
	TickMS        int   // tick period used by Run and by alarm counters
	MaxReadyTasks int   // 0 = unlimited
	MaxTicks      int64 // Run stops after this many ticks; 0 = until cancelled
	Hooks         Hooks
	Alarms        []Alarm
	Schedule      []ScheduleEntry
	Sinks         []Sink
	Logger        *slog.Logger
}

// Scheduler is the cooperative dispatcher. It owns the registry, the state
// table and the alarm counters; nothing else mutates them.
type Scheduler struct {
	reg      *Registry
	tracker  *Tracker
	auto     *AutoStart
	alarms   []*alarmState
	hooks    Hooks
	sinks    []Sink
	logger   *slog.Logger
	tickMS   int
	maxReady int
	maxTicks int64

	tick     int64 // ticks seen by Run or Tick
	passes   int64 // passes started
	running  bool  // a slice is in progress; its task holds a ready slot
	shutdown bool
}

// PassReport summarises one pass.
type PassReport struct {
	Pass       int64
	Dispatched []TaskID
	Faults     []*TaskFaultError
}

// New wires the scheduler and boots it: the auto-start list is applied and
// the startup hook runs. Any configuration error aborts the boot.
func New(reg *Registry, auto *AutoStart, opts Options) (*Scheduler, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidDescriptor)
	}
	if auto == nil {
		auto = NewAutoStart()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.TickMS <= 0 {
		opts.TickMS = defaultTickMS
	}

	alarms, err := buildAlarms(reg, opts.Alarms, opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("alarms: %w", err)
	}

	s := &Scheduler{
		reg:      reg,
		tracker:  NewTracker(reg),
		auto:     auto,
		alarms:   alarms,
		hooks:    opts.Hooks,
		sinks:    opts.Sinks,
		logger:   logger.With("component", "sched"),
		tickMS:   opts.TickMS,
		maxReady: opts.MaxReadyTasks,
		maxTicks: opts.MaxTicks,
	}

	if err := auto.Apply(s.tracker); err != nil {
		return nil, fmt.Errorf("autostart: %w", err)
	}
	if s.maxReady > 0 && s.tracker.ReadyCount() > s.maxReady {
		return nil, fmt.Errorf("autostart: %w: %d ready, limit %d", ErrReadyQueueFull, s.tracker.ReadyCount(), s.maxReady)
	}

	s.emit(Event{Kind: EventBoot})
	for _, id := range s.tracker.Ready() {
		d, _ := reg.Get(id)
		s.emit(Event{Kind: EventActivate, TaskID: id, Name: d.label(), From: d.InitialState, To: Ready})
	}
	s.logger.Info("scheduler booted",
		"tasks", reg.Count(),
		"autostart", auto.Count(),
		"alarms", len(alarms),
		"tick_ms", s.tickMS)

	if s.hooks.Startup != nil {
		s.callHook("startup", s.hooks.Startup)
	}
	return s, nil
}

// Registry returns the task table.
func (s *Scheduler) Registry() *Registry { return s.reg }

// Tracker returns the state table for inspection.
func (s *Scheduler) Tracker() *Tracker { return s.tracker }

// AutoStart returns the list applied at boot.
func (s *Scheduler) AutoStart() *AutoStart { return s.auto }

// Ticks returns the number of ticks processed.
func (s *Scheduler) Ticks() int64 { return s.tick }

// Passes returns the number of passes started.
func (s *Scheduler) Passes() int64 { return s.passes }

// Run drives one pass per tick of a TickClock until ctx is cancelled or
// MaxTicks ticks have elapsed, then runs the shutdown hook.
func (s *Scheduler) Run(ctx context.Context) error {
	clock := NewTickClock(16)
	clock.Start(time.Duration(s.tickMS) * time.Millisecond)
	defer func() {
		clock.Stop()
		if n := clock.Overruns(); n > 0 {
			s.logger.Warn("ticks dropped", "overruns", n)
		}
		s.Shutdown()
	}()

	s.logger.Info("scheduler started", "tick_ms", s.tickMS, "max_ticks", s.maxTicks)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping (context cancelled)")
			return ctx.Err()
		case _, ok := <-clock.Ch:
			if !ok {
				return nil
			}
			if _, err := s.Step(ctx); err != nil {
				return err
			}
			if s.maxTicks > 0 && s.tick >= s.maxTicks {
				s.logger.Info("scheduler stopping (tick limit)", "ticks", s.tick)
				return nil
			}
		}
	}
}

// RunPasses runs n passes back to back without a clock.
func (s *Scheduler) RunPasses(ctx context.Context, n int) ([]PassReport, error) {
	reports := make([]PassReport, 0, n)
	for i := 0; i < n; i++ {
		rep, err := s.Pass(ctx)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Step advances one tick, firing due alarms, then runs one pass.
func (s *Scheduler) Step(ctx context.Context) (PassReport, error) {
	s.Tick()
	return s.Pass(ctx)
}

// Tick advances time by one tick period and fires expired alarms.
func (s *Scheduler) Tick() {
	s.tick++
	s.emit(Event{Kind: EventTick})
	s.advanceAlarms()
}

// Pass dispatches every task that is READY when the pass starts, in
// ascending (priority, id) order. Tasks made READY during the pass wait
// for the next one.
func (s *Scheduler) Pass(ctx context.Context) (PassReport, error) {
	s.passes++
	rep := PassReport{Pass: s.passes}
	for _, id := range s.tracker.Ready() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if st, _ := s.tracker.State(id); st != Ready {
			continue
		}
		if fault := s.dispatch(ctx, id); fault != nil {
			rep.Faults = append(rep.Faults, fault)
		}
		rep.Dispatched = append(rep.Dispatched, id)
	}
	return rep, nil
}

// dispatch runs one slice of id and applies the resulting transition.
func (s *Scheduler) dispatch(ctx context.Context, id TaskID) *TaskFaultError {
	i, _ := s.reg.position(id)
	d := s.reg.descs[i]
	st := &s.tracker.states[i]

	_ = s.tracker.SetState(id, Running)
	s.running = true
	st.dispatches++
	s.emit(Event{Kind: EventDispatch, TaskID: id, Name: d.label(), From: Ready, To: Running})

	if s.hooks.PreTask != nil {
		s.callHook("pre_task", func() { s.hooks.PreTask(id) })
	}

	c := &Control{s: s, id: id, saved: st.saved}
	err := s.invoke(ctx, d, c)
	c.closed = true
	st.saved = c.saved

	if s.hooks.PostTask != nil {
		s.callHook("post_task", func() { s.hooks.PostTask(id) })
	}
	s.running = false

	if err != nil {
		return s.quarantine(d, st, err)
	}

	switch c.sig {
	case signalComplete:
		_ = s.tracker.SetState(id, Idle)
		s.emit(Event{Kind: EventComplete, TaskID: id, Name: d.label(), From: Running, To: Idle})
	case signalBlock:
		_ = s.tracker.SetState(id, Blocked)
		s.emit(Event{Kind: EventBlock, TaskID: id, Name: d.label(), From: Running, To: Blocked})
	default:
		_ = s.tracker.SetState(id, Ready)
		s.emit(Event{Kind: EventYield, TaskID: id, Name: d.label(), From: Running, To: Ready})
	}
	return nil
}

// invoke calls the entry, turning both a returned error and a panic into a
// TaskFaultError.
func (s *Scheduler) invoke(ctx context.Context, d Descriptor, c *Control) (fault *TaskFaultError) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			fault = &TaskFaultError{ID: d.ID, Name: d.label(), Panic: true, Err: err}
		}
	}()
	if err := d.Entry.Run(ctx, c); err != nil {
		return &TaskFaultError{ID: d.ID, Name: d.label(), Err: err}
	}
	return nil
}

func (s *Scheduler) quarantine(d Descriptor, st *taskState, fault *TaskFaultError) *TaskFaultError {
	_ = s.tracker.SetState(d.ID, Blocked)
	st.faulted = true
	st.lastFault = fault
	s.logger.Error("task fault",
		"task", d.ID,
		"name", d.label(),
		"transition", "RUNNING -> BLOCKED",
		"panic", fault.Panic,
		"error", fault.Err)
	s.emit(Event{Kind: EventFault, TaskID: d.ID, Name: d.label(), From: Running, To: Blocked, Err: fault})
	if s.hooks.Error != nil {
		s.callHook("error", func() { s.hooks.Error(fault) })
	}
	return fault
}

// Activate moves an IDLE task to READY. Activating a READY or RUNNING task
// is a no-op; a BLOCKED task must be woken instead.
func (s *Scheduler) Activate(id TaskID) error {
	st, d, err := s.tracker.slot(id)
	if err != nil {
		s.logger.Warn("activate unknown task", "task", id)
		return err
	}
	switch st.state {
	case Ready, Running:
		s.logger.Debug("activation coalesced", "task", id, "state", st.state)
		return nil
	case Blocked:
		return fmt.Errorf("%w: activate task %d in state %s", ErrInvalidTransition, id, st.state)
	}
	if err := s.admit(id); err != nil {
		return err
	}
	st.activations++
	_ = s.tracker.SetState(id, Ready)
	s.emit(Event{Kind: EventActivate, TaskID: id, Name: d.label(), From: Idle, To: Ready})
	return nil
}

// Wake moves a BLOCKED task back to READY. Waking a task in any other state
// is a no-op. A quarantined task stays blocked until Recover.
func (s *Scheduler) Wake(id TaskID) error {
	st, d, err := s.tracker.slot(id)
	if err != nil {
		s.logger.Warn("wake unknown task", "task", id)
		return err
	}
	if st.state != Blocked {
		return nil
	}
	if st.faulted {
		return fmt.Errorf("%w: task %d is quarantined after a fault", ErrInvalidTransition, id)
	}
	if err := s.admit(id); err != nil {
		return err
	}
	_ = s.tracker.SetState(id, Ready)
	s.emit(Event{Kind: EventWake, TaskID: id, Name: d.label(), From: Blocked, To: Ready})
	return nil
}

// Recover clears the fault flag of a quarantined task and makes it READY.
func (s *Scheduler) Recover(id TaskID) error {
	st, d, err := s.tracker.slot(id)
	if err != nil {
		return err
	}
	if st.state != Blocked || !st.faulted {
		return fmt.Errorf("%w: task %d is not quarantined", ErrInvalidTransition, id)
	}
	if err := s.admit(id); err != nil {
		return err
	}
	st.faulted = false
	st.lastFault = nil
	_ = s.tracker.SetState(id, Ready)
	s.logger.Info("task recovered", "task", id, "name", d.label())
	s.emit(Event{Kind: EventRecover, TaskID: id, Name: d.label(), From: Blocked, To: Ready})
	return nil
}

// admit checks the ready limit. The task of the slice in progress still
// counts, since it goes back to READY when it yields.
func (s *Scheduler) admit(id TaskID) error {
	n := s.tracker.ReadyCount()
	if s.running {
		n++
	}
	if s.maxReady > 0 && n >= s.maxReady {
		s.logger.Warn("ready queue full", "task", id, "limit", s.maxReady)
		return fmt.Errorf("%w: task %d, limit %d", ErrReadyQueueFull, id, s.maxReady)
	}
	return nil
}

// Shutdown runs the shutdown hook once.
func (s *Scheduler) Shutdown() {
	if s.shutdown {
		return
	}
	s.shutdown = true
	if s.hooks.Shutdown != nil {
		s.callHook("shutdown", s.hooks.Shutdown)
	}
	s.emit(Event{Kind: EventShutdown})
	s.logger.Info("scheduler shut down", "ticks", s.tick, "passes", s.passes)
}

func (s *Scheduler) emit(ev Event) {
	if len(s.sinks) == 0 {
		return
	}
	ev.Time = time.Now()
	ev.Tick = s.tick
	ev.Pass = s.passes
	for _, sink := range s.sinks {
		if err := sink.Record(ev); err != nil {
			s.logger.Warn("trace sink failed", "event", ev.Kind, "error", err)
		}
	}
}
