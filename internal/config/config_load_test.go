package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"MODE", "HOST", "PORT", "DIR", "LOGLEVEL", "MAXFILESIZE",
	"MINWIDTH", "MINHEIGHT", "SENSITIVITY", "EXCLUDE", "EXPORTSCALE", "FONTSIZE",
}

// clearEnv blanks every MCP_OVERLAY_* variable for the test. Empty values
// are ignored by viper, so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(EnvPrefix+"_"+key, "")
	}
}

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	return Load(fs, viper.New(), args)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := load(t, "--dir="+dir)
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, dir, cfg.Directory)
	assert.Equal(t, 100.0, cfg.MinWidth)
	assert.Equal(t, 30.0, cfg.MinHeight)
	assert.Equal(t, 1.0, cfg.Sensitivity)
	assert.Equal(t, []string{"email"}, cfg.Exclude)
}

func TestLoad_Flags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ModeServer, cfg.Mode)
				assert.Equal(t, "0.0.0.0:9090", cfg.Address())
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=debug"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsDebug())
			},
		},
		{
			name: "editing limits",
			args: []string{"--minwidth=80", "--minheight=20", "--sensitivity=0.5"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 80.0, cfg.MinWidth)
				assert.Equal(t, 20.0, cfg.MinHeight)
				assert.Equal(t, 0.5, cfg.Sensitivity)
			},
		},
		{
			name: "excluded fields",
			args: []string{"--exclude=email,phone"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"email", "phone"}, cfg.Exclude)
			},
		},
		{
			name: "export settings",
			args: []string{"--exportscale=2", "--fontsize=11", "--maxfilesize=5000"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2.0, cfg.ExportScale)
				assert.Equal(t, 11.0, cfg.FontSize)
				assert.Equal(t, int64(5000), cfg.MaxFileSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := load(t, append(tt.args, "--dir="+t.TempDir())...)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("MCP_OVERLAY_MODE", "server")
	t.Setenv("MCP_OVERLAY_HOST", "192.168.1.1")
	t.Setenv("MCP_OVERLAY_PORT", "3000")
	t.Setenv("MCP_OVERLAY_DIR", dir)
	t.Setenv("MCP_OVERLAY_LOGLEVEL", "warn")
	t.Setenv("MCP_OVERLAY_SENSITIVITY", "2")
	t.Setenv("MCP_OVERLAY_EXCLUDE", "email,notes")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, "192.168.1.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, dir, cfg.Directory)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2.0, cfg.Sensitivity)
	assert.Equal(t, []string{"email", "notes"}, cfg.Exclude)
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_OVERLAY_MODE", "server")
	t.Setenv("MCP_OVERLAY_PORT", "3000")
	t.Setenv("MCP_OVERLAY_SENSITIVITY", "2")

	cfg, err := load(t, "--mode=stdio", "--port=8888", "--sensitivity=0.25", "--dir="+t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, 0.25, cfg.Sensitivity)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "port", args: []string{"--mode=server", "--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "log level", args: []string{"--loglevel=invalid"}, wantErr: "invalid log level"},
		{name: "sensitivity", args: []string{"--sensitivity=0"}, wantErr: "sensitivity must be positive"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := load(t, append(tt.args, "--dir="+t.TempDir())...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_VersionFlag(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		t.Run(arg, func(t *testing.T) {
			_, err := load(t, arg)
			assert.True(t, errors.Is(err, ErrVersionRequested))
		})
	}
}

func TestLoad_ExtraFlagsOnCallerFlagSet(t *testing.T) {
	clearEnv(t)
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	cell := fs.Int("cellwidth", 8, "")

	cfg, err := Load(fs, viper.New(), []string{"--cellwidth=10", "--dir=" + t.TempDir(), "cv.yaml"})
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 10, *cell)
	assert.Equal(t, []string{"cv.yaml"}, fs.Args())
}

func TestPrintUsage(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineCommandLineFlags(fs, DefaultConfig())

	var buf bytes.Buffer
	printUsage(&buf, fs)
	out := buf.String()
	assert.Contains(t, out, "--sensitivity")
	assert.Contains(t, out, "MCP_OVERLAY_MINWIDTH")
	assert.Contains(t, out, "MCP_OVERLAY_EXCLUDE")
}

func TestLoad_ExcludeKeepsEmail(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := load(t, "--dir="+dir, "--exclude=notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, cfg.Exclude)
	assert.Equal(t, []string{"email", "notes"}, cfg.WorkspaceOptions().Overlay.ExcludedFields)

	t.Setenv(EnvPrefix+"_EXCLUDE", "phone")
	cfg, err = load(t, "--dir="+dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.WorkspaceOptions().Overlay.ExcludedFields, "email")
}
