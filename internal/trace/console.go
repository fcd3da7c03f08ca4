// Package trace records scheduler events to the console, CSV files and
// SQLite databases.
package trace

import (
	"fmt"
	"io"
	"strings"

	"tbcsched/internal/sched"
)

// Console prints one line per event, skipping ticks for brevity.
type Console struct {
	w io.Writer
}

// NewConsole writes event lines to w.
func NewConsole(w io.Writer) *Console { return &Console{w: w} }

// Record implements sched.Sink.
func (c *Console) Record(ev sched.Event) error {
	if ev.Kind == sched.EventTick {
		return nil
	}
	_, err := fmt.Fprintln(c.w, FormatLine(ev))
	return err
}

// FormatLine renders ev the way the console shows it.
func FormatLine(ev sched.Event) string {
	line := fmt.Sprintf("%s = Tick: %07d Pass: %05d [%s]",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		ev.Pass,
		center(ev.Kind.String(), 10),
	)
	if ev.HasTask() {
		line += fmt.Sprintf(" => Task: %04d %-12s", ev.TaskID, ev.Name)
	}
	if ev.Transition() {
		line += fmt.Sprintf(" %s -> %s", ev.From, ev.To)
	}
	if ev.Err != nil {
		line += " err=" + ev.Err.Error()
	}
	return line
}

// center pads str on both sides to width.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}
