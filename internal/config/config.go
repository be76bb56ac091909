package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/export"
	"github.com/a3tai/mcp-form-overlay/internal/overlay"
	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB
	DefaultExportScale = 1.0
	DefaultFontSize    = 14.0

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. MCP_OVERLAY_DIR.
	EnvPrefix = "MCP_OVERLAY"
)

// ErrVersionRequested is returned when --version is on the command line.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the form overlay server and editor
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Template directory; every path is resolved inside it
	Directory string

	// Editing configuration
	MinWidth    float64
	MinHeight   float64
	Sensitivity float64
	Exclude     []string

	// Export configuration
	ExportScale float64
	FontSize    float64

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum template file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   currentDir,
		MinWidth:    editor.DefaultMinSize.Width,
		MinHeight:   editor.DefaultMinSize.Height,
		Sensitivity: 1,
		Exclude:     overlay.DefaultOptions().ExcludedFields,
		ExportScale: DefaultExportScale,
		FontSize:    DefaultFontSize,
		Version:     "1.0.0",
		ServerName:  "mcp-form-overlay",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses os.Args with the global flag set and viper instance.
func LoadFromFlags() (*Config, error) {
	return Load(pflag.CommandLine, viper.GetViper(), os.Args[1:])
}

// Load resolves configuration from defaults, MCP_OVERLAY_* environment
// variables and args, in increasing priority. Callers may define extra
// flags on fs before calling; they are parsed along with the shared ones.
func Load(fs *pflag.FlagSet, v *viper.Viper, args []string) (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	bindFlagsToViper(fs, v)
	setupUsageMessage(fs)

	if err := checkVersionFlag(args); err != nil {
		return nil, err
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.Directory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("minwidth", cfg.MinWidth)
	v.SetDefault("minheight", cfg.MinHeight)
	v.SetDefault("sensitivity", cfg.Sensitivity)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("exportscale", cfg.ExportScale)
	v.SetDefault("fontsize", cfg.FontSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.Directory, "Directory containing templates and exports")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template file size in bytes")
	fs.Float64("minwidth", cfg.MinWidth, "Minimum field width in pixels during resize")
	fs.Float64("minheight", cfg.MinHeight, "Minimum field height in pixels during resize")
	fs.Float64("sensitivity", cfg.Sensitivity, "Multiplier applied to pointer movement")
	fs.StringSlice("exclude", cfg.Exclude, "Field ids never drawn on the overlay, in addition to email")
	fs.Float64("exportscale", cfg.ExportScale, "Export page size as a multiple of the image size")
	fs.Float64("fontsize", cfg.FontSize, "Export text size in pixels at scale 1")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(fs *pflag.FlagSet, v *viper.Viper) {
	for _, key := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"minwidth", "minheight", "sensitivity", "exclude", "exportscale", "fontsize",
	} {
		_ = v.BindPFlag(key, fs.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet) {
	fs.Usage = func() {
		printUsage(os.Stderr, fs)
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage of %s:\n", name)
	fmt.Fprintf(w, "\nForm Overlay - position and fill form fields over template images\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s                                   # stdio mode, current directory\n", name)
	fmt.Fprintf(w, "  %s --dir=/path/to/templates          # custom template directory\n", name)
	fmt.Fprintf(w, "  %s --minwidth=80 --sensitivity=0.5   # finer editing\n", name)
	fmt.Fprintf(w, "  %s --mode=server --port=8081         # HTTP/SSE server\n", name)
	fmt.Fprintf(w, "\nEnvironment Variables:\n")
	for _, key := range []string{"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"minwidth", "minheight", "sensitivity", "exclude", "exportscale", "fontsize"} {
		fmt.Fprintf(w, "  %s_%s\n", EnvPrefix, strings.ToUpper(key))
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.Directory = v.GetString("dir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.MinWidth = v.GetFloat64("minwidth")
	cfg.MinHeight = v.GetFloat64("minheight")
	cfg.Sensitivity = v.GetFloat64("sensitivity")
	cfg.Exclude = splitList(v.GetStringSlice("exclude"))
	cfg.ExportScale = v.GetFloat64("exportscale")
	cfg.FontSize = v.GetFloat64("fontsize")
}

// splitList flattens comma-separated entries. Environment values arrive as
// a single string that viper only splits on whitespace.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("template directory cannot be empty")
	}

	// Create the directory if it doesn't exist
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create template directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.MinWidth <= 0 || c.MinHeight <= 0 {
		return fmt.Errorf("minimum size must be positive, got %gx%g", c.MinWidth, c.MinHeight)
	}

	if c.Sensitivity <= 0 {
		return fmt.Errorf("sensitivity must be positive, got %g", c.Sensitivity)
	}

	if c.ExportScale <= 0 {
		return fmt.Errorf("export scale must be positive, got %g", c.ExportScale)
	}

	if c.FontSize <= 0 {
		return fmt.Errorf("font size must be positive, got %g", c.FontSize)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"MinSize: %gx%g, Sensitivity: %g, Exclude: %v, ExportScale: %g, FontSize: %g}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize,
		c.MinWidth, c.MinHeight, c.Sensitivity, c.Exclude, c.ExportScale, c.FontSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// WorkspaceOptions maps the configuration onto the editing session.
func (c *Config) WorkspaceOptions() workspace.Options {
	ov := overlay.DefaultOptions()
	ov.ExcludedFields = excludedFields(ov.ExcludedFields, c.Exclude)

	ex := export.DefaultOptions()
	ex.Scale = c.ExportScale
	ex.FontSize = c.FontSize

	return workspace.Options{
		Directory:   c.Directory,
		MaxFileSize: c.MaxFileSize,
		Editor: editor.Options{
			MinSize:     editor.MinSize{Width: c.MinWidth, Height: c.MinHeight},
			Sensitivity: c.Sensitivity,
		},
		Overlay: ov,
		Export:  ex,
	}
}

// excludedFields adds the configured ids to the fields the overlay never
// draws. The fixed ones cannot be configured away.
func excludedFields(fixed, configured []string) []string {
	out := slices.Clone(fixed)
	for _, id := range configured {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
