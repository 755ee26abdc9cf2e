package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnknownKey is returned by SetValue for keys it does not know
var ErrUnknownKey = errors.New("unknown config key")

type setter func(c *Config, v string) error

func intField(field func(c *Config) *int, min int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
		if n < min {
			return fmt.Errorf("%d is below the minimum %d", n, min)
		}
		*field(c) = n
		return nil
	}
}

func stringField(field func(c *Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func listField(field func(c *Config) *[]string) setter {
	return func(c *Config, v string) error {
		*field(c) = splitList(v)
		return nil
	}
}

var setters = map[string]setter{
	"target.process_hints":     listField(func(c *Config) *[]string { return &c.Target.ProcessHints }),
	"target.title_hints":       listField(func(c *Config) *[]string { return &c.Target.TitleHints }),
	"target.class_hints":       listField(func(c *Config) *[]string { return &c.Target.ClassHints }),
	"target.locate_timeout_ms": intField(func(c *Config) *int { return &c.Target.LocateTimeoutMs }, 1),
	"capture.start_hotkey":     stringField(func(c *Config) *string { return &c.Capture.StartHotkey }),
	"capture.stop_hotkey":      stringField(func(c *Config) *string { return &c.Capture.StopHotkey }),
	"capture.cancel_hotkey":    stringField(func(c *Config) *string { return &c.Capture.CancelHotkey }),
	"capture.debounce_ms":      intField(func(c *Config) *int { return &c.Capture.DebounceMs }, 0),
	"capture.probe_timeout_ms": intField(func(c *Config) *int { return &c.Capture.ProbeTimeoutMs }, 1),
	"replay.min_delay_ms":      intField(func(c *Config) *int { return &c.Replay.MinDelayMs }, 0),
	"replay.max_delay_ms":      intField(func(c *Config) *int { return &c.Replay.MaxDelayMs }, 0),
	"replay.countdown_seconds": intField(func(c *Config) *int { return &c.Replay.CountdownSeconds }, 0),
	"store.db_path":            stringField(func(c *Config) *string { return &c.Store.DBPath }),
	"store.default_label":      stringField(func(c *Config) *string { return &c.Store.DefaultLabel }),
	"store.sources":            listField(func(c *Config) *[]string { return &c.Store.Sources }),
	"driver.endpoint":          stringField(func(c *Config) *string { return &c.Driver.Endpoint }),
	"driver.url":               stringField(func(c *Config) *string { return &c.Driver.URL }),
	"driver.viewport_width":    intField(func(c *Config) *int { return &c.Driver.ViewportWidth }, 1),
	"driver.viewport_height":   intField(func(c *Config) *int { return &c.Driver.ViewportHeight }, 1),
}

// Keys lists the keys accepted by SetValue
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue assigns one setting by its dotted key. List values are comma-separated.
func (c *Config) SetValue(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return DefaultConfig()
	}
	out := &Config{}
	if err := json.Unmarshal(data, out); err != nil {
		return DefaultConfig()
	}
	return out
}

// Validate reports settings that would make capture or replay misbehave
func (c *Config) Validate() error {
	var errs []error
	if c.Replay.MinDelayMs < 0 || c.Replay.MaxDelayMs < c.Replay.MinDelayMs {
		errs = append(errs, fmt.Errorf("replay delay range %d-%d ms is empty", c.Replay.MinDelayMs, c.Replay.MaxDelayMs))
	}
	if c.Capture.StartHotkey == "" || c.Capture.StopHotkey == "" || c.Capture.CancelHotkey == "" {
		errs = append(errs, errors.New("start, stop and cancel hotkeys must all be set"))
	}
	if c.Target.LocateTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("locate timeout %d ms must be positive", c.Target.LocateTimeoutMs))
	}
	if c.Driver.ViewportWidth <= 0 || c.Driver.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport %dx%d is not usable", c.Driver.ViewportWidth, c.Driver.ViewportHeight))
	}
	return errors.Join(errs...)
}
