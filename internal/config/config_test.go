package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
poll: 20ms
broker: tcp://broker.lan:1883
wled_topic: wled/landing
history_db: /tmp/h.db
history_retention: 48h
gpio:
  backend: periph
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Poll != 20*time.Millisecond {
		t.Errorf("Poll: got %v, want 20ms", cfg.Poll)
	}
	if cfg.Broker != "tcp://broker.lan:1883" {
		t.Errorf("Broker: got %q", cfg.Broker)
	}
	if cfg.WLEDTopic != "wled/landing" {
		t.Errorf("WLEDTopic: got %q", cfg.WLEDTopic)
	}
	if cfg.HistoryRetention != 48*time.Hour {
		t.Errorf("HistoryRetention: got %v", cfg.HistoryRetention)
	}
	if cfg.GPIO.Backend != "periph" {
		t.Errorf("GPIO.Backend: got %q", cfg.GPIO.Backend)
	}
	// Not in file: keeps default
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip: got %q, want default", cfg.GPIO.Chip)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q, want default", cfg.HTTPAddr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "poll: [oops\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadDoesNotValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "poll: 0s\n"))
	if err != nil {
		t.Fatalf("Load should leave validation to Resolve: %v", err)
	}
	cfg.Poll = 10 * time.Millisecond
	if err := cfg.Resolve(); err != nil {
		t.Errorf("overridden config should resolve: %v", err)
	}
}

func TestResolveHTTPOff(t *testing.T) {
	cfg, err := Load(writeConfig(t, "http: \"off\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr: got %q, want empty", cfg.HTTPAddr)
	}
}

func TestResolveInvalidValues(t *testing.T) {
	tests := map[string]string{
		"zero poll":       "poll: 0s\n",
		"unknown backend": "gpio:\n  backend: spi\n",
		"empty topic":     "wled_topic: \"\"\n",
		"empty usermod":   "usermod_config: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := cfg.Resolve(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
