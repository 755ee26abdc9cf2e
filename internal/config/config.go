// Package config provides configuration management for the clicker engine.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Target describes how the target window is recognised
	Target TargetConfig `json:"target"`

	// Capture contains recording session settings
	Capture CaptureConfig `json:"capture"`

	// Replay contains replay timing settings
	Replay ReplayConfig `json:"replay"`

	// Store contains coordinate store settings
	Store StoreConfig `json:"store"`

	// Driver contains automation driver settings
	Driver DriverConfig `json:"driver"`
}

// TargetConfig lists the hints used by the window locator
type TargetConfig struct {
	// ProcessHints are process names matched exactly (e.g. "firefox")
	ProcessHints []string `json:"process_hints"`

	// TitleHints are substrings matched against window titles
	TitleHints []string `json:"title_hints"`

	// ClassHints are platform window classes tried last
	ClassHints []string `json:"class_hints"`

	// LocateTimeoutMs bounds a single locate call
	LocateTimeoutMs int `json:"locate_timeout_ms"`
}

// CaptureConfig contains recording session settings
type CaptureConfig struct {
	// StartHotkey arms the next entry in hotkey mode (e.g. "S")
	StartHotkey string `json:"start_hotkey"`

	// StopHotkey confirms the entry under construction
	StopHotkey string `json:"stop_hotkey"`

	// CancelHotkey ends the session
	CancelHotkey string `json:"cancel_hotkey"`

	// DebounceMs ignores repeated signals of the same kind inside this window
	DebounceMs int `json:"debounce_ms"`

	// HookStartTimeoutMs bounds the hook bridge startup acknowledgement
	HookStartTimeoutMs int `json:"hook_start_timeout_ms"`

	// HookStopGraceMs is how long the bridge may take to exit before it is killed
	HookStopGraceMs int `json:"hook_stop_grace_ms"`

	// ProbeTimeoutMs bounds each element value probe
	ProbeTimeoutMs int `json:"probe_timeout_ms"`
}

// ReplayConfig contains replay timing settings
type ReplayConfig struct {
	// MinDelayMs and MaxDelayMs bound the random pause between clicks
	MinDelayMs int `json:"min_delay_ms"`
	MaxDelayMs int `json:"max_delay_ms"`

	// CountdownSeconds is shown before the first click
	CountdownSeconds int `json:"countdown_seconds"`
}

// StoreConfig contains coordinate store settings
type StoreConfig struct {
	// DBPath overrides the default database location
	DBPath string `json:"db_path,omitempty"`

	// DefaultLabel is the set name used when none is given
	DefaultLabel string `json:"default_label"`

	// Sources is the load precedence, newest format first.
	// Entries prefixed with "db:" name a stored set; anything else is a file path.
	Sources []string `json:"sources"`
}

// DriverConfig contains automation driver settings
type DriverConfig struct {
	// Endpoint is the DevTools HTTP endpoint of the controlled browser
	Endpoint string `json:"endpoint"`

	// URL is the page opened by the "open" command
	URL string `json:"url"`

	// ViewportWidth and ViewportHeight size the automation viewport
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			ProcessHints:    []string{"firefox", "mozilla", "gecko"},
			TitleHints:      []string{"firefox", "mozilla", "lightning roulette", "evolution"},
			ClassHints:      []string{"MozillaWindowClass", "Firefox", "Mozilla"},
			LocateTimeoutMs: 10000,
		},
		Capture: CaptureConfig{
			StartHotkey:        "S",
			StopHotkey:         "E",
			CancelHotkey:       "Q",
			DebounceMs:         300,
			HookStartTimeoutMs: 5000,
			HookStopGraceMs:    1000,
			ProbeTimeoutMs:     10000,
		},
		Replay: ReplayConfig{
			MinDelayMs:       500,
			MaxDelayMs:       1300,
			CountdownSeconds: 3,
		},
		Store: StoreConfig{
			DefaultLabel: "default",
			Sources: []string{
				"db:default",
				"coordenadas_firefox_integrado.json",
				"coordenadas_navegador_integrado.json",
				"coordenadas_hibridas.json",
				"coordenadas_relativas.json",
				"clicks_fisicos.json",
			},
		},
		Driver: DriverConfig{
			Endpoint:       "http://127.0.0.1:9222",
			URL:            "https://www.evolution.com/our-games/lightning-roulette/",
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
	}
}

// LocateTimeout returns the locate bound as a duration.
func (c *Config) LocateTimeout() time.Duration {
	return time.Duration(c.Target.LocateTimeoutMs) * time.Millisecond
}

// Debounce returns the signal debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Capture.DebounceMs) * time.Millisecond
}

// HookStartTimeout returns the bridge startup bound.
func (c *Config) HookStartTimeout() time.Duration {
	return time.Duration(c.Capture.HookStartTimeoutMs) * time.Millisecond
}

// HookStopGrace returns the bridge shutdown grace period.
func (c *Config) HookStopGrace() time.Duration {
	return time.Duration(c.Capture.HookStopGraceMs) * time.Millisecond
}

// ProbeTimeout returns the value probe bound.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Capture.ProbeTimeoutMs) * time.Millisecond
}

// ReplayDelays returns the bounds of the pause between replay clicks.
func (c *Config) ReplayDelays() (time.Duration, time.Duration) {
	return time.Duration(c.Replay.MinDelayMs) * time.Millisecond, time.Duration(c.Replay.MaxDelayMs) * time.Millisecond
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a manager bound to an explicit file.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the configuration file location
func (m *Manager) Path() string {
	return m.configPath
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "clicker")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "clicker")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "clicker")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk, then applies environment overrides
func (m *Manager) Load() error {
	if err := m.load(); err != nil {
		return err
	}

	m.mu.Lock()
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
	return nil
}

func (m *Manager) load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		if err := json.Unmarshal(data, m.config); err != nil {
			return err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config: Ignoring unreadable .env file: %v", err)
	}
	applyEnv(m.config)
	return nil
}

// applyEnv overlays CLICKER_* variables on top of the file configuration
func applyEnv(cfg *Config) {
	if v := os.Getenv("CLICKER_PROCESS_HINTS"); v != "" {
		cfg.Target.ProcessHints = splitList(v)
	}
	if v := os.Getenv("CLICKER_TITLE_HINTS"); v != "" {
		cfg.Target.TitleHints = splitList(v)
	}
	if v := os.Getenv("CLICKER_CLASS_HINTS"); v != "" {
		cfg.Target.ClassHints = splitList(v)
	}
	if v := os.Getenv("CLICKER_DB"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("CLICKER_CDP_ENDPOINT"); v != "" {
		cfg.Driver.Endpoint = v
	}
	if v := os.Getenv("CLICKER_TARGET_URL"); v != "" {
		cfg.Driver.URL = v
	}
	if v := os.Getenv("CLICKER_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.Capture.DebounceMs = ms
		} else {
			log.Printf("Config: Ignoring invalid CLICKER_DEBOUNCE_MS=%q", v)
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
