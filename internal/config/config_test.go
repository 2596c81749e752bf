package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
  folder_path: "123456789"
  file_name: test.txt
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "fileserver", cfg.SMB.Host)
	assert.Equal(t, DefaultSMBPort, cfg.SMB.Port)
	assert.Equal(t, DefaultConnTimeout, cfg.SMB.ConnTimeout)
	assert.Equal(t, DefaultOpTimeout, cfg.SMB.OpTimeout)

	assert.True(t, cfg.Trigger.DatePrefix)
	assert.Equal(t, DefaultDateLayout, cfg.Trigger.DateLayout)
	assert.Equal(t, "Hello SMB!", cfg.Trigger.Content)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultShutdown, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
}

func TestLoad_ParsesDurationsAndOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
  port: 10445
  op_timeout: 5s
trigger:
  date_prefix: false
  content: "ping"
server:
  port: 9090
  shutdown_timeout: 1m
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 10445, cfg.SMB.Port)
	assert.Equal(t, 5*time.Second, cfg.SMB.OpTimeout)
	assert.False(t, cfg.Trigger.DatePrefix)
	assert.Equal(t, "ping", cfg.Trigger.Content)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("SMBUPLOAD_SMB_PASSWORD", "from-env")
	t.Setenv("SMBUPLOAD_SERVER_PORT", "8181")
	t.Setenv("SMBUPLOAD_TRIGGER_DATE_PREFIX", "false")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SMB.Password)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.False(t, cfg.Trigger.DatePrefix)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("SMBUPLOAD_SMB_HOST", "10.0.0.5")
	t.Setenv("SMBUPLOAD_SMB_SHARE", "data")
	t.Setenv("SMBUPLOAD_SMB_DOMAIN", "CORP")
	t.Setenv("SMBUPLOAD_SMB_USERNAME", "svc")
	t.Setenv("SMBUPLOAD_SMB_NT_HASH", "8846f7eaee8fb117ad06bdd830b7586c")
	t.Setenv("SMBUPLOAD_SMB_FOLDER_PATH", `reports\daily`)
	t.Setenv("SMBUPLOAD_SMB_FILE_NAME", "out.txt")
	t.Setenv("SMBUPLOAD_SMB_OP_TIMEOUT", "15s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.SMB.Host)
	assert.Equal(t, "8846f7eaee8fb117ad06bdd830b7586c", cfg.SMB.NTHash)
	assert.Empty(t, cfg.SMB.Password)
	assert.Equal(t, `reports\daily`, cfg.SMB.FolderPath)
	assert.Equal(t, 15*time.Second, cfg.SMB.OpTimeout)
}

func TestLoad_CamelCaseKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
  folderPath: 2024/06/01/123456789
  fileName: test.txt
`))
	require.NoError(t, err)

	assert.Equal(t, "2024/06/01/123456789", cfg.SMB.FolderPath)
	assert.Equal(t, "test.txt", cfg.SMB.FileName)
}

func TestLoad_KebabCaseKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
  folder-path: uploads
  file-name: out.txt
`))
	require.NoError(t, err)

	assert.Equal(t, "uploads", cfg.SMB.FolderPath)
	assert.Equal(t, "out.txt", cfg.SMB.FileName)
}

func TestLoad_CanonicalKeyWinsOverAlias(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
  folderPath: ignored
`))
	require.NoError(t, err)
	assert.Equal(t, "123456789", cfg.SMB.FolderPath)

	t.Setenv("SMBUPLOAD_SMB_FOLDER_PATH", "from-env")
	cfg, err = Load(writeConfig(t, `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
  folderPath: from-file
  fileName: test.txt
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SMB.FolderPath)
}

func TestLoad_CamelCaseEnvironment(t *testing.T) {
	t.Setenv("SMBUPLOAD_SMB_FOLDERPATH", "env/folder")
	t.Setenv("SMBUPLOAD_SMB_FILENAME", "env.txt")

	cfg, err := Load(writeConfig(t, `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
`))
	require.NoError(t, err)

	assert.Equal(t, "env/folder", cfg.SMB.FolderPath)
	assert.Equal(t, "env.txt", cfg.SMB.FileName)
}

func TestLoad_MissingKeysNamedAsWritten(t *testing.T) {
	_, err := Load(writeConfig(t, `
smb:
  host: fileserver
  share: data
  domain: CORP
  username: svc
  password: x
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smb.folder_path: is required")
	assert.Contains(t, err.Error(), "smb.file_name: is required")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "smb: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		errMsgs []string
	}{
		{
			name:    "missing host",
			modify:  func(c *Config) { c.SMB.Host = "" },
			errMsgs: []string{"smb.host: is required"},
		},
		{
			name:    "missing credentials",
			modify:  func(c *Config) { c.SMB.Password = "" },
			errMsgs: []string{"smb.password: is required when nt_hash is not set"},
		},
		{
			name:    "password and hash",
			modify:  func(c *Config) { c.SMB.NTHash = "8846f7eaee8fb117ad06bdd830b7586c" },
			errMsgs: []string{"smb.password: must not be set together with nt_hash"},
		},
		{
			name:    "bad NT hash",
			modify:  func(c *Config) { c.SMB.Password = ""; c.SMB.NTHash = "abc" },
			errMsgs: []string{"invalid configuration", "invalid NT hash"},
		},
		{
			name:    "escaping folder",
			modify:  func(c *Config) { c.SMB.FolderPath = "a/../../b" },
			errMsgs: []string{"invalid configuration", "folder path"},
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "TRACE" },
			errMsgs: []string{"logging.level: must be one of"},
		},
		{
			name:    "bad server port",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			errMsgs: []string{"server.port: must be at most 65535"},
		},
		{
			name:    "bad sample rate",
			modify:  func(c *Config) { c.Telemetry.SampleRate = 2 },
			errMsgs: []string{"telemetry.sample_rate"},
		},
		{
			name:    "missing folder path",
			modify:  func(c *Config) { c.SMB.FolderPath = "" },
			errMsgs: []string{"smb.folder_path: is required"},
		},
		{
			name:    "request timeout below operation timeout",
			modify:  func(c *Config) { c.Server.RequestTimeout = 30 * time.Second },
			errMsgs: []string{"server.request_timeout (30s) must be greater than smb.op_timeout (1m0s)"},
		},
		{
			name:    "metrics path",
			modify:  func(c *Config) { c.Metrics.Path = "metrics" },
			errMsgs: []string{"metrics.path"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			for _, msg := range tt.errMsgs {
				assert.Contains(t, err.Error(), msg)
			}
			assert.NotContains(t, err.Error(), "change-me")
		})
	}
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	original := GetDefaultConfig()
	original.SMB.OpTimeout = 42 * time.Second
	original.Trigger.DatePrefix = false

	require.NoError(t, SaveConfig(original, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSMBConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	smb := cfg.SMBConfig()

	assert.Equal(t, cfg.SMB.Host, smb.Host)
	assert.Equal(t, cfg.SMB.Port, smb.Port)
	assert.Equal(t, cfg.SMB.Share, smb.Share)
	assert.Equal(t, cfg.SMB.Domain, smb.Domain)
	assert.Equal(t, cfg.SMB.Username, smb.Username)
	assert.Equal(t, cfg.SMB.Password, smb.Password)
	assert.Equal(t, cfg.SMB.FolderPath, smb.FolderPath)
	assert.Equal(t, cfg.SMB.FileName, smb.FileName)
	assert.Equal(t, cfg.SMB.OpTimeout, smb.OpTimeout)
	assert.NoError(t, smb.Validate())
}

func TestLoggerAndTelemetryConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true

	lc := cfg.LoggerConfig()
	assert.Equal(t, "INFO", lc.Level)
	assert.Equal(t, "stdout", lc.Output)

	tc := cfg.TelemetryConfig("1.2.3")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "smbupload", tc.ServiceName)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, DefaultOTLPEndpoint, tc.Endpoint)
}

func TestDurationDecodeHook(t *testing.T) {
	hook := durationDecodeHook().(func(reflect.Type, reflect.Type, interface{}) (interface{}, error))
	durType := reflect.TypeOf(time.Duration(0))

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"string", "1m30s", 90 * time.Second},
		{"int", 1000, time.Duration(1000)},
		{"float", float64(2000), time.Duration(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hook(reflect.TypeOf(tt.in), durType, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := hook(reflect.TypeOf(""), durType, "soon")
	assert.Error(t, err)

	got, err := hook(reflect.TypeOf(""), reflect.TypeOf(""), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)
}
