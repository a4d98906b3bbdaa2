package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LogLevel defines the minimum severity for error logs.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Config is the top-level configuration structure for the server.
type Config struct {
	Server  *ServerConfig  `json:"server,omitempty" toml:"server,omitempty" yaml:"server,omitempty"`
	Serve   *ServeConfig   `json:"serve,omitempty" toml:"serve,omitempty" yaml:"serve,omitempty"`
	Logging *LoggingConfig `json:"logging,omitempty" toml:"logging,omitempty" yaml:"logging,omitempty"`
}

// ServerConfig holds general server settings.
type ServerConfig struct {
	Address                 string  `json:"address,omitempty" toml:"address,omitempty" yaml:"address,omitempty"`
	GracefulShutdownTimeout *string `json:"graceful_shutdown_timeout,omitempty" toml:"graceful_shutdown_timeout,omitempty" yaml:"graceful_shutdown_timeout,omitempty"` // e.g., "30s"
}

// RenderConfig carries template render options. The serve core does not
// interpret these beyond Style; they are passed through to the responder.
type RenderConfig struct {
	Format   string `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
	Engine   string `json:"engine,omitempty" toml:"engine,omitempty" yaml:"engine,omitempty"`
	Template string `json:"template,omitempty" toml:"template,omitempty" yaml:"template,omitempty"`
}

// ServeConfig configures the document root and listing behaviour.
type ServeConfig struct {
	DocumentRoot string `json:"document_root" toml:"document_root" yaml:"document_root"`

	// IndexFile and IndexFiles are alternative spellings of the ordered
	// index candidate list; a bare string is normalized to a one-element
	// list during validation. Absent or empty means no index substitution.
	IndexFile  string   `json:"index_file,omitempty" toml:"index_file,omitempty" yaml:"index_file,omitempty"`
	IndexFiles []string `json:"index_files,omitempty" toml:"index_files,omitempty" yaml:"index_files,omitempty"`

	EnableJSON *bool         `json:"enable_json,omitempty" toml:"enable_json,omitempty" yaml:"enable_json,omitempty"`
	Style      string        `json:"style,omitempty" toml:"style,omitempty" yaml:"style,omitempty"`
	Render     *RenderConfig `json:"render,omitempty" toml:"render,omitempty" yaml:"render,omitempty"`

	// MimeTypesMap holds inline extension-to-type overrides; MimeTypesPath
	// points to a JSON file of the same shape. File entries take precedence
	// over inline entries.
	MimeTypesMap  map[string]string `json:"mime_types,omitempty" toml:"mime_types,omitempty" yaml:"mime_types,omitempty"`
	MimeTypesPath *string           `json:"mime_types_path,omitempty" toml:"mime_types_path,omitempty" yaml:"mime_types_path,omitempty"`

	// RootIsFile is determined during validation: the document root was
	// configured as a single file, which short-circuits all resolution.
	RootIsFile bool `json:"-" toml:"-" yaml:"-"`
}

// LoggingConfig holds logging configurations.
type LoggingConfig struct {
	LogLevel  LogLevel         `json:"log_level,omitempty" toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	AccessLog *AccessLogConfig `json:"access_log,omitempty" toml:"access_log,omitempty" yaml:"access_log,omitempty"`
	ErrorLog  *ErrorLogConfig  `json:"error_log,omitempty" toml:"error_log,omitempty" yaml:"error_log,omitempty"`
}

// AccessLogConfig configures access logging.
type AccessLogConfig struct {
	Enabled        *bool    `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	Target         string   `json:"target,omitempty" toml:"target,omitempty" yaml:"target,omitempty"`
	TrustedProxies []string `json:"trusted_proxies,omitempty" toml:"trusted_proxies,omitempty" yaml:"trusted_proxies,omitempty"`
	RealIPHeader   *string  `json:"real_ip_header,omitempty" toml:"real_ip_header,omitempty" yaml:"real_ip_header,omitempty"`
}

// ErrorLogConfig configures error logging.
type ErrorLogConfig struct {
	Target string `json:"target,omitempty" toml:"target,omitempty" yaml:"target,omitempty"`
}

// ConfigError describes a configuration problem tied to a file.
type ConfigError struct {
	FilePath string
	Message  string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.FilePath, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.FilePath, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsFilePath reports whether a log target names a file rather than a
// standard stream.
func IsFilePath(target string) bool {
	return target != "" && target != "stdout" && target != "stderr"
}

// LoadConfig reads, parses and validates the configuration file at path.
// The format is auto-detected from the file extension: .toml, .json,
// .yaml/.yml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{FilePath: path, Message: "failed to read configuration file", Err: err}
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{FilePath: path, Message: "failed to parse TOML", Err: err}
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{FilePath: path, Message: "failed to parse JSON", Err: err}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{FilePath: path, Message: "failed to parse YAML", Err: err}
		}
	default:
		return nil, &ConfigError{FilePath: path, Message: "unsupported configuration format (want .toml, .json, .yaml)"}
	}

	if err := applyDefaultsAndValidate(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaultsAndValidate fills in defaults and checks invariants. It is
// also responsible for making the document root absolute and recording
// whether it is a single file.
func applyDefaultsAndValidate(cfg *Config, path string) error {
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.GracefulShutdownTimeout != nil {
		if _, err := time.ParseDuration(*cfg.Server.GracefulShutdownTimeout); err != nil {
			return &ConfigError{FilePath: path, Message: "invalid graceful_shutdown_timeout", Err: err}
		}
	}

	if cfg.Serve == nil {
		return &ConfigError{FilePath: path, Message: "serve section is required"}
	}
	if err := ValidateServeConfig(cfg.Serve, path); err != nil {
		return err
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.LogLevel == "" {
		cfg.Logging.LogLevel = LogLevelInfo
	}
	switch cfg.Logging.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return &ConfigError{FilePath: path,
			Message: fmt.Sprintf("invalid log_level %q (want DEBUG, INFO, WARNING or ERROR)", cfg.Logging.LogLevel)}
	}
	if cfg.Logging.ErrorLog == nil {
		cfg.Logging.ErrorLog = &ErrorLogConfig{Target: "stderr"}
	}
	if cfg.Logging.ErrorLog.Target == "" {
		cfg.Logging.ErrorLog.Target = "stderr"
	}
	if cfg.Logging.AccessLog != nil && cfg.Logging.AccessLog.Target == "" {
		cfg.Logging.AccessLog.Target = "stdout"
	}

	return nil
}

// ValidateServeConfig normalizes and validates a ServeConfig in place.
// configFilePath is used for error reporting and to resolve a relative
// MimeTypesPath; it may be empty in tests.
func ValidateServeConfig(sc *ServeConfig, configFilePath string) error {
	if sc.DocumentRoot == "" {
		return &ConfigError{FilePath: configFilePath, Message: "serve.document_root is required"}
	}

	absRoot, err := filepath.Abs(sc.DocumentRoot)
	if err != nil {
		return &ConfigError{FilePath: configFilePath, Message: "cannot make document_root absolute", Err: err}
	}
	sc.DocumentRoot = filepath.Clean(absRoot)

	fi, err := os.Stat(sc.DocumentRoot)
	if err != nil {
		return &ConfigError{FilePath: configFilePath,
			Message: fmt.Sprintf("document_root %s is not accessible", sc.DocumentRoot), Err: err}
	}
	sc.RootIsFile = !fi.IsDir()

	// Normalize the single-string index spelling into the list form.
	if sc.IndexFile != "" {
		sc.IndexFiles = append([]string{sc.IndexFile}, sc.IndexFiles...)
		sc.IndexFile = ""
	}
	for _, name := range sc.IndexFiles {
		if name == "" || strings.ContainsAny(name, "/\x00") {
			return &ConfigError{FilePath: configFilePath,
				Message: fmt.Sprintf("invalid index file name %q", name)}
		}
	}

	if sc.MimeTypesPath != nil && *sc.MimeTypesPath != "" && !filepath.IsAbs(*sc.MimeTypesPath) && configFilePath != "" {
		resolved := filepath.Join(filepath.Dir(configFilePath), *sc.MimeTypesPath)
		sc.MimeTypesPath = &resolved
	}

	return nil
}

// JSONEnabled reports whether JSON listing responses were requested.
func (sc *ServeConfig) JSONEnabled() bool {
	return sc.EnableJSON != nil && *sc.EnableJSON
}

// ShutdownTimeout returns the configured graceful shutdown timeout, or
// the given default.
func (s *ServerConfig) ShutdownTimeout(def time.Duration) time.Duration {
	if s == nil || s.GracefulShutdownTimeout == nil {
		return def
	}
	d, err := time.ParseDuration(*s.GracefulShutdownTimeout)
	if err != nil {
		return def
	}
	return d
}
