package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"remcli/pkg/contracts/domain"
)

// Config is the full server configuration. Values layer in order:
// built-in defaults, then a config.yaml when one is found, then REM_*
// environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Extraction ExtractionConfig `yaml:"extraction" envconfig:"EXTRACTION"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig tunes the HTTP listener. RunTimeout bounds one whole
// extraction run, not one request.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
}

// SecurityConfig holds the CORS origin allow-list and rate limiting.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig caps request throughput per client IP.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig selects level and destinations. Format is always JSON;
// validate coerces anything else back.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ExtractionConfig carries the batch run settings shared by the CLI
// flags and the POST /api/extraction/run request body.
type ExtractionConfig struct {
	SourceDir   string `yaml:"source_dir" envconfig:"SOURCE_DIR"`
	TestType    string `yaml:"test_type" envconfig:"TEST_TYPE"`
	Frequencies []int  `yaml:"frequencies" envconfig:"FREQUENCIES"`
	Workers     int    `yaml:"workers" envconfig:"WORKERS"`
	CSVBOM      bool   `yaml:"csv_bom" envconfig:"CSV_BOM"`
	Workbook    bool   `yaml:"workbook" envconfig:"WORKBOOK"`
}

// PathsConfig names the directory layout roots. Relative entries
// resolve against the executable directory; the session, report and
// cache directories always live under the data directory.
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig tunes hub connections.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration by layering sources. Defaults come
// first, a discovered config.yaml overrides them field by field, and
// environment variables override both. A file value therefore wins
// over a default but never over an explicitly set REM_* variable.
func Load() (*Config, error) {
	cfg := Default()

	if path := findConfigFile(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return finalize(cfg)
}

// LoadFrom layers the same sources as Load but reads the named config
// file instead of probing the conventional locations. Unlike the
// probed paths, the named file must exist.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// finalize applies the environment layer and validates the result.
func finalize(cfg *Config) (*Config, error) {
	if err := envconfig.Process("REM", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile probes the conventional config.yaml locations and
// returns the first hit, or "" when running on env vars alone.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// applyFile overlays one YAML file onto the receiver. Keys absent from
// the file leave the current values alone.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// validate rejects impossible settings and coerces the forgiving ones.
// Unset extraction fields pick up their documented fallbacks here so
// every later consumer sees a complete config.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	// Leaving the test type unset in both env and file selects on-ear
	if c.Extraction.TestType == "" {
		c.Extraction.TestType = string(domain.TestTypeOnEar)
	}
	if !domain.TestType(c.Extraction.TestType).Valid() {
		return fmt.Errorf("invalid test type: %q (want on-ear, test-box, or speechmap)", c.Extraction.TestType)
	}
	if c.Extraction.Workers < 0 {
		return fmt.Errorf("extraction workers must not be negative")
	}
	for _, f := range c.Extraction.Frequencies {
		if f <= 0 {
			return fmt.Errorf("invalid frequency in allow-list: %d", f)
		}
	}

	// Log output is JSON to console, file, or both
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// Default returns the built-in configuration, the base layer under
// file and environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Extraction: ExtractionConfig{
			TestType: string(domain.TestTypeOnEar),
			Workers:  0, // 0 selects runtime CPU count
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
