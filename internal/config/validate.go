package config

import "fmt"

// Validate checks that every section of Config holds internally
// consistent values, returning the first violation found.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Inspector.Validate(); err != nil {
		return fmt.Errorf("inspector config: %w", err)
	}
	return nil
}

// Validate checks the logging section.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", l.Format)
	}
	return nil
}

// Validate checks the metrics section.
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}
	if m.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}
	return nil
}

// Validate checks the inspector section.
func (i *InspectorConfig) Validate() error {
	if i.SCRPID > 0x1FFF {
		return fmt.Errorf("scr_pid %#x exceeds the 13-bit PID range", i.SCRPID)
	}
	if i.MaxAllowableDriftMs < 0 {
		return fmt.Errorf("max_allowable_drift_ms must not be negative")
	}
	if i.TrendCapacity <= 0 {
		return fmt.Errorf("trend_capacity must be positive")
	}
	if i.ReportVerbosity < 1 || i.ReportVerbosity > 3 {
		return fmt.Errorf("report_verbosity must be 1, 2 or 3")
	}
	return nil
}
