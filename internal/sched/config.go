package sched

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
)

const (
	defaultTickMS        = 10
	defaultMaxReadyTasks = 100
)

// Config mirrors the boot table YAML.
type Config struct {
	OS             OSConfig         `yaml:"os"`
	Tasks          []TaskConfig     `yaml:"tasks"`
	AutoStart      []TaskID         `yaml:"autostart"`
	TaskCount      *int             `yaml:"task_count,omitempty"`      // optional, must match len(tasks)
	AutoStartCount *int             `yaml:"autostart_count,omitempty"` // optional, must match len(autostart)
	Alarms         []AlarmConfig    `yaml:"alarms,omitempty"`
	ScheduleTable  []ScheduleConfig `yaml:"schedule_table,omitempty"`
}

// OSConfig holds the kernel-wide options.
type OSConfig struct {
	TickMS        int        `yaml:"tick_ms"`         // 10 (by default)
	SchedFreqHz   int        `yaml:"scheduler_freq"`  // informational, tick_ms wins when both set
	MaxReadyTasks int        `yaml:"max_ready_tasks"` // 100 (by default)
	MaxTicks      int64      `yaml:"max_ticks"`       // 0 = run until stopped
	Hooks         HookConfig `yaml:"hooks"`
}

// HookConfig enables individual hooks.
type HookConfig struct {
	Startup  bool `yaml:"startup"`
	Shutdown bool `yaml:"shutdown"`
	PreTask  bool `yaml:"pre_task"`
	PostTask bool `yaml:"post_task"`
	Error    bool `yaml:"error"`
}

// TaskConfig is one row of the task table. Entry defaults to Name.
type TaskConfig struct {
	ID       TaskID `yaml:"id"`
	Name     string `yaml:"name"`
	Entry    string `yaml:"entry,omitempty"`
	State    string `yaml:"state,omitempty"`
	Priority uint16 `yaml:"priority"`
}

// AlarmConfig is one row of the alarm table.
type AlarmConfig struct {
	ID       int    `yaml:"id"`
	Type     string `yaml:"type"`
	Action   string `yaml:"action"`
	PeriodMS int    `yaml:"period_ms"`
	TaskID   TaskID `yaml:"task_id,omitempty"`
	Callback string `yaml:"callback,omitempty"`
}

// ScheduleConfig is one row of the schedule table.
type ScheduleConfig struct {
	TaskID   TaskID `yaml:"task_id"`
	PeriodMS int    `yaml:"period_ms"`
}

// Catalog binds table names to code, the role the linker plays for a
// generated C table.
type Catalog struct {
	Entries   map[string]Runnable
	Callbacks map[string]AlarmCallback
}

func defaultConfig() Config {
	return Config{
		OS: OSConfig{
			TickMS:        defaultTickMS,
			MaxReadyTasks: defaultMaxReadyTasks,
		},
	}
}

// Load reads the boot table at path over the defaults. An empty path
// yields the defaults with no tasks.
func Load(path string) (Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a boot table and checks its structural invariants.
func Parse(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	// sanity clamps
	if cfg.OS.TickMS <= 0 {
		if cfg.OS.SchedFreqHz > 0 && cfg.OS.SchedFreqHz <= 1000 {
			cfg.OS.TickMS = 1000 / cfg.OS.SchedFreqHz
		} else {
			cfg.OS.TickMS = defaultTickMS
		}
	}
	if cfg.OS.MaxReadyTasks < 0 {
		cfg.OS.MaxReadyTasks = 0
	}
	if cfg.OS.MaxTicks < 0 {
		cfg.OS.MaxTicks = 0
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the derived counts and the enumerated fields.
func (c Config) Validate() error {
	if c.TaskCount != nil && *c.TaskCount != len(c.Tasks) {
		return fmt.Errorf("%w: task_count is %d but %d tasks are listed", ErrCountMismatch, *c.TaskCount, len(c.Tasks))
	}
	if c.AutoStartCount != nil && *c.AutoStartCount != len(c.AutoStart) {
		return fmt.Errorf("%w: autostart_count is %d but %d ids are listed", ErrCountMismatch, *c.AutoStartCount, len(c.AutoStart))
	}
	for _, t := range c.Tasks {
		if _, err := ParseState(t.State); err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	for _, a := range c.Alarms {
		if _, err := parseAlarmType(a.Type); err != nil {
			return fmt.Errorf("alarm %d: %w", a.ID, err)
		}
		if _, err := parseAlarmAction(a.Action); err != nil {
			return fmt.Errorf("alarm %d: %w", a.ID, err)
		}
	}
	return nil
}

// Boot builds and boots a Scheduler from the table. Hooks in opts are kept
// only where the table enables them; OS values override opts.
func Boot(cfg Config, cat Catalog, opts Options) (*Scheduler, error) {
	b := NewBuilder(len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		name := t.Entry
		if name == "" {
			name = t.Name
		}
		entry, ok := cat.Entries[name]
		if !ok {
			return nil, fmt.Errorf("task %d (%s): %w %q", t.ID, t.Name, ErrUnknownEntry, name)
		}
		st, err := ParseState(t.State)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", t.ID, err)
		}
		b.Add(Descriptor{ID: t.ID, Name: t.Name, Entry: entry, InitialState: st, Priority: t.Priority})
	}
	reg, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("task table: %w", err)
	}

	alarms := make([]Alarm, 0, len(cfg.Alarms))
	for _, ac := range cfg.Alarms {
		typ, err := parseAlarmType(ac.Type)
		if err != nil {
			return nil, fmt.Errorf("alarm %d: %w", ac.ID, err)
		}
		action, err := parseAlarmAction(ac.Action)
		if err != nil {
			return nil, fmt.Errorf("alarm %d: %w", ac.ID, err)
		}
		a := Alarm{ID: ac.ID, Type: typ, Action: action, PeriodMS: ac.PeriodMS, TaskID: ac.TaskID}
		if action == TriggerCallback {
			cb, ok := cat.Callbacks[ac.Callback]
			if !ok {
				return nil, fmt.Errorf("alarm %d: unknown callback %q", ac.ID, ac.Callback)
			}
			a.Callback = cb
		}
		alarms = append(alarms, a)
	}
	table := make([]ScheduleEntry, 0, len(cfg.ScheduleTable))
	for _, e := range cfg.ScheduleTable {
		table = append(table, ScheduleEntry{TaskID: e.TaskID, PeriodMS: e.PeriodMS})
	}

	opts.TickMS = cfg.OS.TickMS
	opts.MaxReadyTasks = cfg.OS.MaxReadyTasks
	opts.MaxTicks = cfg.OS.MaxTicks
	opts.Alarms = append(opts.Alarms, alarms...)
	opts.Schedule = append(opts.Schedule, table...)
	opts.Hooks = cfg.OS.Hooks.filter(opts.Hooks)

	return New(reg, NewAutoStart(cfg.AutoStart...), opts)
}

func (hc HookConfig) filter(h Hooks) Hooks {
	if !hc.Startup {
		h.Startup = nil
	}
	if !hc.Shutdown {
		h.Shutdown = nil
	}
	if !hc.PreTask {
		h.PreTask = nil
	}
	if !hc.PostTask {
		h.PostTask = nil
	}
	if !hc.Error {
		h.Error = nil
	}
	return h
}
