package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
	exporters  = []string{"stdout", "otlp"}
)

// problems collects every invalid setting so one failed start reports all
// of them.
type problems []error

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Errorf(format, args...))
	}
}

// Validate reports every invalid setting, joined.
func (c *Config) Validate() error {
	var p problems

	s := c.Server
	p.check(s.Port >= 1 && s.Port <= 65535, "server.port %d out of range 1-65535", s.Port)
	p.check(s.ReadTimeout > 0, "server.read_timeout must be positive, got %s", s.ReadTimeout)
	p.check(s.WriteTimeout > 0, "server.write_timeout must be positive, got %s", s.WriteTimeout)

	p.check(slices.Contains(logLevels, c.Log.Level), "log.level %q not one of %v", c.Log.Level, logLevels)
	p.check(slices.Contains(logFormats, c.Log.Format), "log.format %q not one of %v", c.Log.Format, logFormats)

	if t := c.Telemetry; t.Enabled {
		p.check(slices.Contains(exporters, t.Exporter), "telemetry.exporter %q not one of %v", t.Exporter, exporters)
		p.check(t.Exporter != "otlp" || t.Endpoint != "", "telemetry.endpoint is required by the otlp exporter")
		p.check(t.ServiceName != "", "telemetry.service_name is required when telemetry is enabled")
	}

	co := c.Coroutine
	p.check(co.ShutdownTimeout > 0, "coroutine.shutdown_timeout must be positive, got %s", co.ShutdownTimeout)
	p.check(co.MaxThreads >= 0, "coroutine.max_threads must not be negative, got %d", co.MaxThreads)

	p.check(c.Locking.SlowHoldThreshold >= 0, "locking.slow_hold_threshold must not be negative, got %s", c.Locking.SlowHoldThreshold)

	return errors.Join(p...)
}
