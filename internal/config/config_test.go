package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JavaPath != "java" {
		t.Errorf("expected java, got %s", cfg.JavaPath)
	}
	if cfg.WaitForStopDefault != 30 || cfg.WaitForStopMax != 300 {
		t.Errorf("unexpected wait_for_stop bounds: %d/%d", cfg.WaitForStopDefault, cfg.WaitForStopMax)
	}
	if cfg.Gradle.Port != 5005 {
		t.Errorf("expected gradle port 5005, got %d", cfg.Gradle.Port)
	}
	if !cfg.Gradle.UseWrapper {
		t.Error("expected gradle wrapper by default")
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JavaPath != "java" {
		t.Errorf("expected defaults, got javaPath=%s", cfg.JavaPath)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"javaPath": "/opt/jdk/bin/java", "waitForStopDefault": 10, "gradle": {"port": 9009}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JavaPath != "/opt/jdk/bin/java" {
		t.Errorf("javaPath not loaded: %s", cfg.JavaPath)
	}
	if cfg.WaitForStopDefault != 10 {
		t.Errorf("waitForStopDefault not loaded: %d", cfg.WaitForStopDefault)
	}
	if cfg.Gradle.Port != 9009 {
		t.Errorf("gradle port not loaded: %d", cfg.Gradle.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.WaitForStopMax != 300 {
		t.Errorf("waitForStopMax default lost: %d", cfg.WaitForStopMax)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClampWaitForStop(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct{ in, want int }{
		{0, 30},
		{-5, 30},
		{1, 1},
		{60, 60},
		{300, 300},
		{301, 300},
		{100000, 300},
	}
	for _, tc := range cases {
		if got := cfg.ClampWaitForStop(tc.in); got != tc.want {
			t.Errorf("ClampWaitForStop(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampAttachWait(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.ClampAttachWait(0); got != 60 {
		t.Errorf("default attach wait: got %d", got)
	}
	if got := cfg.ClampAttachWait(500); got != 300 {
		t.Errorf("attach wait max: got %d", got)
	}
}
