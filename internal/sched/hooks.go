package sched

import "fmt"

// Hooks are optional callbacks run by the scheduler. Nil hooks are skipped.
type Hooks struct {
	Startup  func()
	Shutdown func()
	PreTask  func(id TaskID)
	PostTask func(id TaskID)
	Error    func(err error)
}

// callHook runs fn and turns a panic into a logged error so a broken hook
// cannot stop the loop.
func (s *Scheduler) callHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("hook panicked", "hook", name, "error", fmt.Sprint(r))
		}
	}()
	fn()
}
