// Package config loads the smbupload configuration from a YAML/TOML file and
// SMBUPLOAD_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/absfs/smbupload"
	"github.com/absfs/smbupload/internal/logger"
	"github.com/absfs/smbupload/internal/telemetry"
)

// Config represents the smbupload configuration.
//
// The configuration is organized into sections:
//   - SMB: target server, share, credentials and default write target
//   - Trigger: what the HTTP upload endpoint writes
//   - Server: HTTP listener settings
//   - Logging, Metrics, Telemetry: observability
type Config struct {
	// SMB configures the file share writes go to
	SMB SMBConfig `mapstructure:"smb" yaml:"smb"`

	// Trigger configures GET /smb/upload
	Trigger TriggerConfig `mapstructure:"trigger" yaml:"trigger"`

	// Server configures the HTTP listener
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// SMBConfig holds the connection parameters and default write target.
type SMBConfig struct {
	Host     string `mapstructure:"host" validate:"required,hostname_rfc1123|ip" yaml:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Share    string `mapstructure:"share" validate:"required" yaml:"share"`
	Domain   string `mapstructure:"domain" validate:"required" yaml:"domain"`
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// Password and NTHash are mutually exclusive; exactly one is required.
	Password string `mapstructure:"password" validate:"required_without=NTHash,excluded_with=NTHash" yaml:"password,omitempty"`
	NTHash   string `mapstructure:"nt_hash" yaml:"nt_hash,omitempty"`

	FolderPath string `mapstructure:"folder_path" validate:"required" yaml:"folder_path"`
	FileName   string `mapstructure:"file_name" validate:"required" yaml:"file_name"`

	// ConnTimeout bounds the TCP dial
	ConnTimeout time.Duration `mapstructure:"conn_timeout" validate:"gte=0s" yaml:"conn_timeout"`

	// OpTimeout bounds a whole write from dial to teardown
	OpTimeout time.Duration `mapstructure:"op_timeout" validate:"gte=0s" yaml:"op_timeout"`

	// MaxConcurrent caps simultaneous writes. Zero means no limit.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0" yaml:"max_concurrent"`
}

// TriggerConfig controls what GET /smb/upload writes.
type TriggerConfig struct {
	// DatePrefix places the file under <date>/<smb.folder_path>
	DatePrefix bool `mapstructure:"date_prefix" yaml:"date_prefix"`

	// DateLayout is the Go time layout of the date prefix
	DateLayout string `mapstructure:"date_layout" validate:"required" yaml:"date_layout"`

	// Content is the payload written on every trigger
	Content string `mapstructure:"content" yaml:"content"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0s" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0s" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0s" yaml:"idle_timeout"`

	// RequestTimeout bounds a single request, including the SMB write
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0s" yaml:"request_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0s" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes metrics on the HTTP server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the route metrics are served on
	Path string `mapstructure:"path" validate:"required,startswith=/" yaml:"path"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether tracing is active
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (gRPC)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SMBUPLOAD_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location. A missing file is not
// an error as long as the environment supplies the required settings.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	applyKeyAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file holds the share password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SMBConfig returns the connection configuration for smbupload.New.
func (c *Config) SMBConfig() *smbupload.Config {
	return &smbupload.Config{
		Host:        c.SMB.Host,
		Port:        c.SMB.Port,
		Share:       c.SMB.Share,
		Domain:      c.SMB.Domain,
		Username:    c.SMB.Username,
		Password:    c.SMB.Password,
		NTHash:      c.SMB.NTHash,
		FolderPath:  c.SMB.FolderPath,
		FileName:    c.SMB.FileName,
		ConnTimeout: c.SMB.ConnTimeout,
		OpTimeout:   c.SMB.OpTimeout,
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TelemetryConfig returns the tracing settings for the given build version.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "smbupload",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// setupViper configures environment variables, defaults and the config file.
func setupViper(v *viper.Viper, configPath string) {
	// Example: SMBUPLOAD_SMB_HOST=fileserver
	v.SetEnvPrefix("SMBUPLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees environment overrides for keys viper knows about,
	// so every key gets a default here.
	registerDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// keyAliases maps alternative spellings to config keys. The camelCase and
// kebab-case forms match Spring-style property files (smb.folderPath).
// Viper lowercases keys, so "folderPath" arrives as "folderpath".
var keyAliases = map[string]string{
	"smb.folderpath":  "smb.folder_path",
	"smb.folder-path": "smb.folder_path",
	"smb.filename":    "smb.file_name",
	"smb.file-name":   "smb.file_name",
}

// applyKeyAliases copies aliased values onto their canonical keys. The
// canonical key wins when it is set in the file or the environment.
func applyKeyAliases(v *viper.Viper) {
	for alias, key := range keyAliases {
		if v.InConfig(key) {
			continue
		}
		if _, ok := os.LookupEnv(envKey(key)); ok {
			continue
		}
		if val := v.Get(alias); val != nil {
			v.Set(key, val)
		}
	}
}

// envKey returns the environment variable viper reads for key.
func envKey(key string) string {
	return "SMBUPLOAD_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns the decode hooks for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s", "5m", "1h" and raw numbers
// (nanoseconds) to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/smbupload, ~/.config/smbupload, or
// "." when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "smbupload")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "smbupload")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
