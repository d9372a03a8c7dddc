// Package config provides configuration management for the JDI-MCP server.
//
// Configuration controls:
//   - The java binary used for launched debuggees
//   - Gradle-assisted launch settings (wrapper use, default JDWP port)
//   - Timeout bounds for wait_for_stop and attach port polling
//   - Logging destination and level
//
// Configuration can be loaded from a JSON file or use sensible defaults.
package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config holds the server configuration
type Config struct {
	// JavaPath is the java binary used by debug_launch.
	JavaPath string `json:"javaPath"`

	// Gradle settings for debug_launch_gradle_test.
	Gradle GradleConfig `json:"gradle"`

	// WaitForStopDefault / WaitForStopMax bound the wait_for_stop timeout
	// parameter (seconds).
	WaitForStopDefault int `json:"waitForStopDefault"`
	WaitForStopMax     int `json:"waitForStopMax"`

	// AttachWaitDefault / AttachWaitMax bound the waitTimeout parameter of
	// debug_attach_socket when waitForPort is requested (seconds).
	AttachWaitDefault int `json:"attachWaitDefault"`
	AttachWaitMax     int `json:"attachWaitMax"`

	// LaunchPollTimeout is how long a launch waits for the debuggee's JDWP
	// port to accept connections.
	LaunchPollTimeout time.Duration `json:"launchPollTimeout"`

	// Logging
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile"`
}

// GradleConfig holds gradle-assisted launch settings
type GradleConfig struct {
	Port        int           `json:"port"`
	WaitTimeout time.Duration `json:"waitTimeout"`
	UseWrapper  bool          `json:"useWrapper"`
	GradlePath  string        `json:"gradlePath"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		JavaPath:           "java",
		WaitForStopDefault: 30,
		WaitForStopMax:     300,
		AttachWaitDefault:  60,
		AttachWaitMax:      300,
		LaunchPollTimeout:  15 * time.Second,
		LogLevel:           "info",
		Gradle: GradleConfig{
			Port:        5005,
			WaitTimeout: 120 * time.Second,
			UseWrapper:  true,
			GradlePath:  "gradle",
		},
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ClampWaitForStop bounds a requested wait_for_stop timeout (seconds).
// Zero or negative requests fall back to the default.
func (c *Config) ClampWaitForStop(seconds int) int {
	if seconds <= 0 {
		return c.WaitForStopDefault
	}
	if seconds > c.WaitForStopMax {
		return c.WaitForStopMax
	}
	return seconds
}

// ClampAttachWait bounds a requested attach waitTimeout (seconds).
func (c *Config) ClampAttachWait(seconds int) int {
	if seconds <= 0 {
		return c.AttachWaitDefault
	}
	if seconds > c.AttachWaitMax {
		return c.AttachWaitMax
	}
	return seconds
}
