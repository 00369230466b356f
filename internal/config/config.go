package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable moodwatch settings.
type Config struct {
	Server    string `json:"server" yaml:"server"`         // service root URL
	Profile   string `json:"profile" yaml:"profile"`       // refresh profile name
	VideoMode string `json:"video_mode" yaml:"video_mode"` // default for profiles that let the user choose

	// Profiles adds refresh profiles or overrides the built-in ones by name.
	Profiles map[string]RefreshProfile `json:"profiles,omitempty" yaml:"profiles,omitempty"`

	Capture Capture `json:"capture" yaml:"capture"`
	Source  Source  `json:"source" yaml:"source"`

	ReportDir    string `json:"report_dir" yaml:"report_dir"`       // empty: data directory
	ReportFormat string `json:"report_format" yaml:"report_format"` // "markdown" | "json"

	FeedFallback   Duration `json:"feed_fallback" yaml:"feed_fallback"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	MetricsAddr    string   `json:"metrics_addr" yaml:"metrics_addr"`
}

// Capture is the client-mode capture profile. Zero fields are unset.
type Capture struct {
	Width   int `json:"width" yaml:"width"`
	Height  int `json:"height" yaml:"height"`
	FPS     int `json:"fps" yaml:"fps"`
	Quality int `json:"quality" yaml:"quality"`
}

// Source selects the local camera backend for client mode.
type Source struct {
	Kind   string `json:"kind" yaml:"kind"`     // "ffmpeg" | "dir" | "file"
	Device string `json:"device" yaml:"device"` // ffmpeg input device
	Format string `json:"format" yaml:"format"` // ffmpeg input format
	Binary string `json:"binary" yaml:"binary"` // ffmpeg executable
	Path   string `json:"path" yaml:"path"`     // directory or image file
}

// RefreshProfile fixes how often a session refreshes and whether the video mode
// is decided by the profile or by the user.
type RefreshProfile struct {
	// VideoMode pins the mode; empty lets the user choose at start.
	VideoMode    string   `json:"video_mode" yaml:"video_mode"`
	PullInterval Duration `json:"pull_interval" yaml:"pull_interval"`
	PushInterval Duration `json:"push_interval" yaml:"push_interval"`
}

// Built-in refresh profiles.
var builtinProfiles = map[string]RefreshProfile{
	"classic": {
		VideoMode:    "server",
		PullInterval: Duration(1500 * time.Millisecond),
		PushInterval: Duration(2 * time.Second),
	},
	"interactive": {
		PullInterval: Duration(2 * time.Second),
		PushInterval: Duration(2 * time.Second),
	},
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Server:         "http://127.0.0.1:5000",
		Profile:        "classic",
		VideoMode:      "server",
		Capture:        Capture{Width: 640, Height: 480, FPS: 15, Quality: 85},
		Source:         Source{Kind: "ffmpeg"},
		ReportFormat:   "markdown",
		FeedFallback:   Duration(time.Second),
		RequestTimeout: Duration(10 * time.Second),
	}
}

// ProfileNames lists the built-in and configured refresh profiles.
func (c Config) ProfileNames() []string {
	seen := map[string]bool{}
	var names []string
	for n := range builtinProfiles {
		seen[n] = true
		names = append(names, n)
	}
	for n := range c.Profiles {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Refresh resolves the selected refresh profile. Configured profiles override
// built-in ones field by field.
func (c Config) Refresh() (RefreshProfile, error) {
	name := c.Profile
	if name == "" {
		name = Defaults().Profile
	}
	base, builtin := builtinProfiles[name]
	custom, configured := c.Profiles[name]
	if !builtin && !configured {
		return RefreshProfile{}, fmt.Errorf("unknown refresh profile %q (available: %s)",
			name, strings.Join(c.ProfileNames(), ", "))
	}
	if configured {
		if custom.VideoMode != "" {
			base.VideoMode = custom.VideoMode
		}
		if custom.PullInterval > 0 {
			base.PullInterval = custom.PullInterval
		}
		if custom.PushInterval > 0 {
			base.PushInterval = custom.PushInterval
		}
	}
	if base.PullInterval <= 0 {
		base.PullInterval = Duration(2 * time.Second)
	}
	if base.PushInterval <= 0 {
		base.PushInterval = Duration(2 * time.Second)
	}
	return base, nil
}

// globalDir returns ~/.config/moodwatch.
func globalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "moodwatch"), nil
}

// LoadGlobal reads ~/.config/moodwatch/config.json (or config.yaml).
// Returns defaults if no file is present.
func LoadGlobal() (*Config, error) {
	dir, err := globalDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadFirst(
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
	)
	if err != nil || cfg != nil {
		return cfg, err
	}
	d := Defaults()
	return &d, nil
}

// LoadProject reads .moodwatch.json (or .moodwatch.yaml) in the current working
// directory. Returns nil (no error) if no file is present.
func LoadProject() (*Config, error) {
	return loadFirst(".moodwatch.json", ".moodwatch.yaml", ".moodwatch.yml")
}

// loadFirst parses the first of paths that exists, or returns nil.
func loadFirst(paths ...string) (*Config, error) {
	for _, p := range paths {
		cfg, err := loadFile(p)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return nil, nil
}

// loadFile reads and parses a JSON or YAML config file at path, chosen by
// extension. Returns nil when the file is absent.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	overlay(&result, global)
	overlay(&result, project)
	return result
}

// overlay copies every set field of src over dst.
func overlay(dst, src *Config) {
	if src == nil {
		return
	}
	setString(&dst.Server, src.Server)
	setString(&dst.Profile, src.Profile)
	setString(&dst.VideoMode, src.VideoMode)
	setString(&dst.ReportDir, src.ReportDir)
	setString(&dst.ReportFormat, src.ReportFormat)
	setString(&dst.MetricsAddr, src.MetricsAddr)

	setString(&dst.Source.Kind, src.Source.Kind)
	setString(&dst.Source.Device, src.Source.Device)
	setString(&dst.Source.Format, src.Source.Format)
	setString(&dst.Source.Binary, src.Source.Binary)
	setString(&dst.Source.Path, src.Source.Path)

	setInt(&dst.Capture.Width, src.Capture.Width)
	setInt(&dst.Capture.Height, src.Capture.Height)
	setInt(&dst.Capture.FPS, src.Capture.FPS)
	setInt(&dst.Capture.Quality, src.Capture.Quality)

	if src.FeedFallback > 0 {
		dst.FeedFallback = src.FeedFallback
	}
	if src.RequestTimeout > 0 {
		dst.RequestTimeout = src.RequestTimeout
	}
	if len(src.Profiles) > 0 {
		if dst.Profiles == nil {
			dst.Profiles = make(map[string]RefreshProfile, len(src.Profiles))
		}
		for name, p := range src.Profiles {
			dst.Profiles[name] = p
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// ApplyEnv overrides cfg from MOODWATCH_SERVER and MOODWATCH_PROFILE.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Server, strings.TrimSpace(os.Getenv("MOODWATCH_SERVER")))
	setString(&cfg.Profile, strings.TrimSpace(os.Getenv("MOODWATCH_PROFILE")))
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
