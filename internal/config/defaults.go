package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values.
const (
	DefaultSMBPort        = 445
	DefaultConnTimeout    = 30 * time.Second
	DefaultOpTimeout      = 60 * time.Second
	DefaultContent        = "Hello SMB!"
	DefaultDateLayout     = "2006/01/02"
	DefaultServerPort     = 8080
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 90 * time.Second
	DefaultIdleTimeout    = 120 * time.Second
	DefaultRequestTimeout = 75 * time.Second
	DefaultShutdown       = 30 * time.Second
	DefaultMetricsPath    = "/metrics"
	DefaultOTLPEndpoint   = "localhost:4317"
)

// registerDefaults makes every key known to viper. Values that are not zero
// here are real defaults; the rest only enable environment overrides.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("smb.host", "")
	v.SetDefault("smb.port", DefaultSMBPort)
	v.SetDefault("smb.share", "")
	v.SetDefault("smb.domain", "")
	v.SetDefault("smb.username", "")
	v.SetDefault("smb.password", "")
	v.SetDefault("smb.nt_hash", "")
	v.SetDefault("smb.folder_path", "")
	v.SetDefault("smb.file_name", "")
	v.SetDefault("smb.conn_timeout", DefaultConnTimeout)
	v.SetDefault("smb.op_timeout", DefaultOpTimeout)
	v.SetDefault("smb.max_concurrent", 0)

	v.SetDefault("trigger.date_prefix", true)
	v.SetDefault("trigger.date_layout", DefaultDateLayout)
	v.SetDefault("trigger.content", DefaultContent)

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.request_timeout", DefaultRequestTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdown)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", DefaultOTLPEndpoint)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults and explicit values are preserved.
// Booleans are left alone; their defaults come from viper.
func ApplyDefaults(cfg *Config) {
	applySMBDefaults(&cfg.SMB)
	applyTriggerDefaults(&cfg.Trigger)
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applySMBDefaults(cfg *SMBConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultSMBPort
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = DefaultConnTimeout
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
}

func applyTriggerDefaults(cfg *TriggerConfig) {
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
	}
	if cfg.Content == "" {
		cfg.Content = DefaultContent
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultServerPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdown
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Path == "" {
		cfg.Path = DefaultMetricsPath
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOTLPEndpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// GetDefaultConfig returns a configuration with every default applied and
// placeholder SMB settings. It is what `smbupload init` writes.
func GetDefaultConfig() *Config {
	cfg := &Config{
		SMB: SMBConfig{
			Host:       "fileserver.example.com",
			Share:      "data",
			Domain:     "WORKGROUP",
			Username:   "svc-upload",
			Password:   "change-me",
			FolderPath: "uploads",
			FileName:   "test.txt",
		},
		Trigger: TriggerConfig{
			DatePrefix: true,
		},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
