package trace

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"tbcsched/internal/sched"
)

var csvHeader = []string{"timestamp", "tick", "pass", "event", "task_id", "task", "from", "to", "error"}

// CSV writes every non-tick event as one CSV row.
type CSV struct {
	f *os.File
	w *csv.Writer
}

// NewCSV creates path and writes the header row.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &CSV{f: f, w: w}, nil
}

// Record implements sched.Sink.
func (c *CSV) Record(ev sched.Event) error {
	if ev.Kind == sched.EventTick {
		return nil
	}
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(ev.Tick, 10),
		strconv.FormatInt(ev.Pass, 10),
		ev.Kind.String(),
		"", "", "", "", "",
	}
	if ev.HasTask() {
		rec[4] = strconv.FormatUint(uint64(ev.TaskID), 10)
		rec[5] = ev.Name
	}
	if ev.Transition() {
		rec[6] = ev.From.String()
		rec[7] = ev.To.String()
	}
	if ev.Err != nil {
		rec[8] = ev.Err.Error()
	}
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
