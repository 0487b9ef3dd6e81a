package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if time.Duration(cfg.Timeout) != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.EventsURL != "ws://localhost:5000/ws" {
		t.Errorf("EventsURL = %q, want derived ws URL", cfg.EventsURL)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_base_url: https://patch.example.com/api\ntimeout: 5s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIBaseURL != "https://patch.example.com/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if time.Duration(cfg.Timeout) != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	// https base derives a wss events URL.
	if cfg.EventsURL != "wss://patch.example.com/ws" {
		t.Errorf("EventsURL = %q, want wss://patch.example.com/ws", cfg.EventsURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: http://file.example.com/api\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("URBANPATCH_API_URL", "http://env.example.com/api")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIBaseURL != "http://env.example.com/api" {
		t.Errorf("APIBaseURL = %q, env should win over file", cfg.APIBaseURL)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoad_ExplicitEventsURLKept(t *testing.T) {
	t.Setenv("URBANPATCH_EVENTS_URL", "ws://elsewhere:9000/stream")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EventsURL != "ws://elsewhere:9000/stream" {
		t.Errorf("EventsURL = %q, explicit value should not be re-derived", cfg.EventsURL)
	}
}
