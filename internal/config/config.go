// Package config loads inspector/indexer configuration via viper,
// layering a YAML file (optional) under environment variables under
// explicit CLI flag overrides, the same layering order viper-based
// config package uses.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for both the tsinspect and tsslice
// binaries; each binary only reads the sections relevant to it.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Inspector InspectorConfig `mapstructure:"inspector"`
	Source    SourceConfig    `mapstructure:"source"`
}

// LoggingConfig controls the ambient logger, backed by logrus and
// lumberjack.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig controls the Prometheus metrics and health HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// InspectorConfig controls the clock-inspector pipeline.
type InspectorConfig struct {
	SCRPID                    uint16        `mapstructure:"scr_pid"`
	MaxAllowableDriftMs       int64         `mapstructure:"max_allowable_drift_ms"`
	EnableConformanceWarnings bool          `mapstructure:"enable_conformance_warnings"`
	EnablePESDeliveryReport   bool          `mapstructure:"enable_pes_delivery_report"`
	ReorderPTS                bool          `mapstructure:"reorder_pts"`
	TrendCapacity             int           `mapstructure:"trend_capacity"`
	ReportPeriod              time.Duration `mapstructure:"report_period"`
	ReportVerbosity           int           `mapstructure:"report_verbosity"`
	TrackedPIDs               []uint16      `mapstructure:"tracked_pids"`
	ProgressUI                bool          `mapstructure:"progress_ui"`
}

// SourceConfig controls the packet source (file or UDP/RTP).
type SourceConfig struct {
	InputURL      string        `mapstructure:"input_url"`
	RTPDepacketize bool         `mapstructure:"rtp_depacketize"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	RetryBaseMs   int           `mapstructure:"retry_base_ms"`
	RateLimitHz   float64       `mapstructure:"rate_limit_hz"`
}

// Load reads configuration from an optional YAML file at configPath,
// then environment variables prefixed MTSINSPECT_, applying nested-key
// underscoring the way a viper loader typically does (server.read_timeout ->
// MTSINSPECT_SERVER_READ_TIMEOUT).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MTSINSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9191")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("inspector.scr_pid", 0x31)
	v.SetDefault("inspector.max_allowable_drift_ms", 700)
	v.SetDefault("inspector.enable_conformance_warnings", false)
	v.SetDefault("inspector.enable_pes_delivery_report", false)
	v.SetDefault("inspector.reorder_pts", false)
	v.SetDefault("inspector.trend_capacity", 60*60*60)
	v.SetDefault("inspector.report_period", "15s")
	v.SetDefault("inspector.report_verbosity", 1)
	v.SetDefault("inspector.progress_ui", false)

	v.SetDefault("source.rtp_depacketize", false)
	v.SetDefault("source.read_timeout", "5s")
	v.SetDefault("source.retry_base_ms", 10)
	v.SetDefault("source.rate_limit_hz", 0)
}
