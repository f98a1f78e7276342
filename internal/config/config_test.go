package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Debug || cfg.PauseBeforeJump || len(cfg.SearchPath) != 0 {
		t.Fatalf("expected default config for a missing file, got %+v", cfg)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg == nil {
		t.Fatal("expected a non-nil default config")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xelf.yaml")
	content := "search_path:\n  - /opt/lib\ndebug: true\npause_before_jump: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug || !cfg.PauseBeforeJump {
		t.Fatalf("expected Debug and PauseBeforeJump true, got %+v", cfg)
	}
	if len(cfg.SearchPath) != 1 || cfg.SearchPath[0] != "/opt/lib" {
		t.Fatalf("expected SearchPath [/opt/lib], got %v", cfg.SearchPath)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("debug: [this is not a bool"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error parsing malformed YAML")
	}
}
