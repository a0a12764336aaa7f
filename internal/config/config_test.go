package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/acm19/pdfsqueeze/internal/squeeze"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdfsqueeze.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// clearEnv stops the caller's environment from leaking into a test
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvGhostscript, "")
	t.Setenv(EnvScratchDir, "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GhostscriptPath != "gs" {
		t.Errorf("GhostscriptPath = %q, want gs", cfg.GhostscriptPath)
	}
	if cfg.Preset() != squeeze.PresetEbook {
		t.Errorf("Preset() = %q, want ebook", cfg.Preset())
	}
	if cfg.MaxConcurrency != 4 || cfg.Timeout != 5*time.Minute || cfg.StrictValidation {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should be valid, got %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	scratch := t.TempDir()

	cfg, err := Load(writeConfig(t, `
ghostscript_path: /opt/gs/bin/gs
default_preset: Screen
scratch_dir: `+scratch+`
max_concurrency: 2
timeout: 30s
strict_validation: true
overwrite_remote: true
`))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := &Config{
		GhostscriptPath:  "/opt/gs/bin/gs",
		DefaultPreset:    "Screen",
		ScratchDir:       scratch,
		MaxConcurrency:   2,
		Timeout:          30 * time.Second,
		StrictValidation: true,
		OverwriteRemote:  true,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
	if cfg.Preset() != squeeze.PresetScreen {
		t.Errorf("Preset() = %q, want screen", cfg.Preset())
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "default_preset: printer\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Preset() != squeeze.PresetPrinter || cfg.GhostscriptPath != "gs" || cfg.MaxConcurrency != 4 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	scratch := t.TempDir()
	t.Setenv(EnvGhostscript, "/usr/local/bin/gswin")
	t.Setenv(EnvScratchDir, scratch)

	cfg, err := Load(writeConfig(t, "ghostscript_path: /from/file/gs\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.GhostscriptPath != "/usr/local/bin/gswin" {
		t.Errorf("GhostscriptPath = %q, want the environment value", cfg.GhostscriptPath)
	}
	if cfg.ScratchDir != scratch {
		t.Errorf("ScratchDir = %q, want %q", cfg.ScratchDir, scratch)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "unknown preset", content: "default_preset: prepress\n", errMsg: "default_preset"},
		{name: "zero workers", content: "max_concurrency: 0\n", errMsg: "max_concurrency"},
		{name: "negative timeout", content: "timeout: -1s\n", errMsg: "timeout"},
		{name: "missing scratch dir", content: "scratch_dir: /does/not/exist/pdfsqueeze\n", errMsg: "scratch_dir"},
		{name: "empty ghostscript", content: "ghostscript_path: \"\"\n", errMsg: "ghostscript_path"},
		{name: "malformed yaml", content: "max_concurrency: [\n", errMsg: "error parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoad_InvalidPresetIsTyped(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "default_preset: prepress\n"))
	if !errors.Is(err, squeeze.ErrInvalidPreset) {
		t.Errorf("Expected ErrInvalidPreset, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}
