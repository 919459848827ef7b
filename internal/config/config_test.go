package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "info" || s.DefaultWorkchain != 0 {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replayer.yaml")
	content := "log_level: debug\ndefault_workchain: -1\nmetrics_addr: 127.0.0.1:9090\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %q", s.LogLevel)
	}
	if s.DefaultWorkchain != -1 {
		t.Fatalf("expected default_workchain -1, got %d", s.DefaultWorkchain)
	}
	if s.MetricsAddr != "127.0.0.1:9090" {
		t.Fatalf("expected metrics_addr 127.0.0.1:9090, got %q", s.MetricsAddr)
	}
}
