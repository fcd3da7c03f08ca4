package trace

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tbcsched/internal/logging"
	"tbcsched/internal/sched"
)

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dispatchEvent() sched.Event {
	return sched.Event{
		Time: at, Tick: 12, Pass: 4, Kind: sched.EventDispatch,
		TaskID: 3, Name: "Task_3", From: sched.Ready, To: sched.Running,
	}
}

func faultEvent() sched.Event {
	return sched.Event{
		Time: at, Tick: 12, Pass: 4, Kind: sched.EventFault,
		TaskID: 3, Name: "Task_3", From: sched.Running, To: sched.Blocked,
		Err: errors.New("boom"),
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	if err := c.Record(sched.Event{Time: at, Kind: sched.EventTick}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("ticks should not be printed, got %q", buf.String())
	}

	if err := c.Record(dispatchEvent()); err != nil {
		t.Fatal(err)
	}
	line := buf.String()
	for _, want := range []string{"Tick: 0000012", "Pass: 00004", "Dispatch", "Task: 0003", "Task_3", "READY -> RUNNING"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}

	buf.Reset()
	_ = c.Record(faultEvent())
	if !strings.Contains(buf.String(), "err=boom") {
		t.Errorf("fault line should carry the error: %q", buf.String())
	}
}

func TestCenter(t *testing.T) {
	if got := center("Yield", 9); got != "  Yield  " {
		t.Errorf("center = %q", got)
	}
	if got := center("Shutdown", 4); got != "Shutdown" {
		t.Errorf("center = %q", got)
	}
}

func TestCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	c, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}
	for _, ev := range []sched.Event{
		{Time: at, Kind: sched.EventBoot},
		{Time: at, Kind: sched.EventTick},
		dispatchEvent(),
		faultEvent(),
	} {
		if err := c.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "Boot" || rows[1][4] != "" {
		t.Errorf("boot row = %v", rows[1])
	}
	want := []string{"12", "4", "Dispatch", "3", "Task_3", "READY", "RUNNING", ""}
	if strings.Join(rows[2][1:], ",") != strings.Join(want, ",") {
		t.Errorf("dispatch row = %v, want %v", rows[2][1:], want)
	}
	if rows[3][8] != "boom" {
		t.Errorf("fault row = %v", rows[3])
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Record(dispatchEvent()); err == nil {
		t.Errorf("Record before BeginRun should fail")
	}

	runID, err := db.BeginRun(ctx, "config.yml")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if !strings.HasPrefix(runID, "run_") {
		t.Errorf("runID = %q", runID)
	}
	for _, ev := range []sched.Event{
		{Time: at, Kind: sched.EventBoot},
		{Time: at, Kind: sched.EventTick},
		dispatchEvent(),
		faultEvent(),
	} {
		if err := db.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID || runs[0].Label != "config.yml" || runs[0].Events != 3 {
		t.Errorf("runs = %+v", runs)
	}

	rows, err := db.Events(ctx, runID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Kind != "Boot" || rows[0].TaskID != nil {
		t.Errorf("boot row = %+v", rows[0])
	}
	d := rows[1]
	if d.Kind != "Dispatch" || d.TaskID == nil || *d.TaskID != 3 || d.From != "READY" || d.To != "RUNNING" || d.Tick != 12 || d.Pass != 4 {
		t.Errorf("dispatch row = %+v", d)
	}
	if !d.At.Equal(at) {
		t.Errorf("At = %v, want %v", d.At, at)
	}
	if rows[2].Error != "boom" {
		t.Errorf("fault row = %+v", rows[2])
	}
}

func TestSinksWithScheduler(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runID, err := db.BeginRun(ctx, "inline")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	entry := sched.RunnableFunc(func(ctx context.Context, c *sched.Control) error { c.Complete(); return nil })
	reg, err := sched.RegisterAll(sched.NewDescriptor(1, "Task_1", 1, entry))
	if err != nil {
		t.Fatal(err)
	}
	s, err := sched.New(reg, sched.NewAutoStart(1), sched.Options{Sinks: []sched.Sink{NewConsole(&buf), db}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Pass(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := db.Events(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, r := range rows {
		kinds = append(kinds, r.Kind)
	}
	if got := strings.Join(kinds, ","); got != "Boot,Activate,Dispatch,Complete" {
		t.Errorf("stored kinds = %s", got)
	}
	if strings.Count(buf.String(), "\n") != 4 {
		t.Errorf("console lines:\n%s", buf.String())
	}
}

func alarmEvent() sched.Event {
	return sched.Event{Time: at, Tick: 20, Pass: 19, Kind: sched.EventAlarm, TaskID: 1, Name: "Task_1"}
}

func TestAlarmEventNamesTask(t *testing.T) {
	line := FormatLine(alarmEvent())
	if !strings.Contains(line, "Task: 0001 Task_1") || strings.Contains(line, "->") {
		t.Errorf("alarm line = %q", line)
	}

	path := filepath.Join(t.TempDir(), "trace.csv")
	c, err := NewCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Record(alarmEvent()); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Alarm,1,Task_1,,,") {
		t.Errorf("csv alarm row:\n%s", data)
	}

	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runID, err := db.BeginRun(ctx, "alarm")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Record(alarmEvent()); err != nil {
		t.Fatal(err)
	}
	rows, err := db.Events(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].TaskID == nil || *rows[0].TaskID != 1 || rows[0].Task != "Task_1" || rows[0].From != "" {
		t.Errorf("alarm rows = %+v", rows)
	}
}

func TestSQLite_RunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var ids []string
	for _, label := range []string{"first", "second", "third"} {
		id, err := db.BeginRun(ctx, label)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %+v", runs)
	}
	for i, r := range runs {
		if want := ids[len(ids)-1-i]; r.ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, r.ID, want)
		}
		if r.StartedAt.IsZero() {
			t.Errorf("runs[%d] has no start time", i)
		}
	}
}
