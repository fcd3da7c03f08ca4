// Package job holds ready-made task bodies and the demo catalog the CLI
// binds boot tables to.
package job

import (
	"context"
	"fmt"
	"log/slog"

	"tbcsched/internal/sched"
)

// Led toggles a simulated LED on every slice.
func Led(logger *slog.Logger) sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		on, _ := c.Saved().(bool)
		on = !on
		c.Save(on)
		logger.Debug("led", "task", c.ID(), "on", on, "tick", c.Tick())
		return nil
	})
}

// Producer activates target every slice and then goes IDLE.
func Producer(target sched.TaskID) sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		if err := c.Activate(target); err != nil {
			return fmt.Errorf("activate %d: %w", target, err)
		}
		c.Complete()
		return nil
	})
}

// Waiter blocks after every slice until another task wakes it.
func Waiter() sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		c.Block()
		return nil
	})
}

// Waker wakes target every slice.
func Waker(target sched.TaskID) sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		return c.Wake(target)
	})
}

// Faulty panics on slice n (1-based) and behaves until then.
func Faulty(n int) sched.Runnable {
	return sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error {
		slices, _ := c.Saved().(int)
		slices++
		c.Save(slices)
		if slices == n {
			panic(fmt.Sprintf("task %d: simulated fault on slice %d", c.ID(), slices))
		}
		return nil
	})
}

// Catalog returns the entries the demo boot tables refer to. Task ids used
// by Producer and Waker follow the generated table: Led_Task=0, Task_1=1
// through Task_5=5.
func Catalog(logger *slog.Logger) sched.Catalog {
	return sched.Catalog{
		Entries: map[string]sched.Runnable{
			"Led_Task": Led(logger),
			"Task_1":   Countdown(3),
			"Task_2":   Producer(1),
			"Task_3":   Waiter(),
			"Task_4":   Waker(3),
			"Task_5":   Faulty(4),
			"sleep":    SleepWork(1),
		},
		Callbacks: map[string]sched.AlarmCallback{
			"log": func(alarmID int, tick int64) {
				logger.Info("alarm callback", "alarm", alarmID, "tick", tick)
			},
		},
	}
}
