package job

import (
	"context"
	"time"

	"tbcsched/internal/sched"
)

// SleepWork returns a task that spends up to ms milliseconds per slice.
// A cancelled context ends the slice early without a fault.
func SleepWork(ms int64) sched.Runnable {
	d := time.Duration(ms) * time.Millisecond
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		return nil
	})
}

// Countdown runs n slices and then goes IDLE. The remaining count lives in
// the task's saved context, so a reactivated task starts over.
func Countdown(n int) sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		left, ok := c.Saved().(int)
		if !ok || left <= 0 {
			left = n
		}
		left--
		c.Save(left)
		if left <= 0 {
			c.Complete()
		}
		return nil
	})
}
