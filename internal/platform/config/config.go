// Package config provides configuration loading and validation for the daemon.
// Configuration is loaded from YAML files with environment variable overrides
// using a layered system: defaults -> base.yaml -> {profile}.yaml -> env vars.
package config

import "time"

// Config holds all configuration for the daemon.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Coroutine CoroutineConfig `koanf:"coroutine"`
	Locking   LockingConfig   `koanf:"locking"`
}

// ServerConfig holds admin HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// CoroutineConfig holds coroutine scheduling settings.
type CoroutineConfig struct {
	// LockOSThread pins each coroutine to its own OS thread for its whole
	// lifetime.
	LockOSThread bool `koanf:"lock_os_thread"`

	// ShutdownTimeout bounds how long shutdown waits for coroutines to
	// finish before giving up on a clean exit.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxThreads is the OS thread count above which the daemon reports
	// itself not ready. Zero disables the check.
	MaxThreads int32 `koanf:"max_threads"`
}

// LockingConfig holds lock domain diagnostics settings.
type LockingConfig struct {
	// SlowHoldThreshold is the hold time above which a release is logged.
	// Zero disables the warning.
	SlowHoldThreshold time.Duration `koanf:"slow_hold_threshold"`
}
