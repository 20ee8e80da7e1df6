package config

const defaultServerPort = 8179

// defaults returns the default configuration values.
// These are loaded first and can be overridden by base.yaml, profile YAML, and env vars.
func defaults() map[string]any {
	return map[string]any{
		"server.host":          "127.0.0.1",
		"server.port":          defaultServerPort,
		"server.read_timeout":  "5s",
		"server.write_timeout": "10s",
		"server.idle_timeout":  "120s",

		"log.level":  "info",
		"log.format": "json",

		"telemetry.enabled":      false,
		"telemetry.exporter":     "stdout",
		"telemetry.endpoint":     "",
		"telemetry.service_name": "daemon",

		"coroutine.lock_os_thread":   true,
		"coroutine.shutdown_timeout": "15s",
		"coroutine.max_threads":      0,

		"locking.slow_hold_threshold": "0s",
	}
}
