// Package config loads the CLI's client configuration.
//
// Precedence, lowest to highest: built-in defaults → YAML config file →
// URBANPATCH_* environment variables. The config file is optional; a
// missing file is not an error, only an unreadable or malformed one is.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults. The API URL matches the development server's default port so
// `urbanpatch-mockd` + `urbanpatch` work out of the box with no config.
const (
	DefaultAPIBaseURL = "http://localhost:5000/api"
	DefaultTimeout    = 30 * time.Second
)

// Config is everything the CLI needs to talk to an UrbanPatch deployment.
type Config struct {
	// APIBaseURL is the versioned REST base, e.g. "https://api.example.com/api".
	APIBaseURL string `yaml:"api_base_url"`

	// EventsURL is the websocket endpoint for real-time events. When empty
	// it is derived from APIBaseURL (http→ws, path /ws).
	EventsURL string `yaml:"events_url"`

	// SessionPath is the sqlite file holding the credential and cached
	// profile. Defaults to <user config dir>/urbanpatch/session.db.
	SessionPath string `yaml:"session_path"`

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout Duration `yaml:"timeout"`
}

// Duration wraps time.Duration so the YAML file can say "30s" or "2m".
// yaml.v3 has no built-in duration support; without this, the field would
// only accept raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultPath returns the conventional config file location
// (<user config dir>/urbanpatch/config.yaml).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "urbanpatch", "config.yaml"), nil
}

// Load reads the config file at path (optional), then applies environment
// overrides and fills in defaults. Pass "" to use DefaultPath.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file is fine — defaults and env cover everything.
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.EventsURL == "" {
		cfg.EventsURL = deriveEventsURL(cfg.APIBaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
	if cfg.SessionPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolving user config dir: %w", err)
		}
		cfg.SessionPath = filepath.Join(dir, "urbanpatch", "session.db")
	}

	return cfg, nil
}

// applyEnv overlays URBANPATCH_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("URBANPATCH_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("URBANPATCH_EVENTS_URL"); v != "" {
		cfg.EventsURL = v
	}
	if v := os.Getenv("URBANPATCH_SESSION_PATH"); v != "" {
		cfg.SessionPath = v
	}
	if v := os.Getenv("URBANPATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = Duration(d)
		}
	}
}

// deriveEventsURL turns an HTTP API base into the matching websocket URL:
// scheme http(s) → ws(s), REST path replaced by /ws on the same host.
func deriveEventsURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil {
		return apiBase
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String()
}
