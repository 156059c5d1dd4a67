package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Compliance  ComplianceConfig `toml:"compliance"`
	Auth        AuthConfig       `toml:"auth"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Reports     ReportsConfig    `toml:"reports"`
}

type ServerConfig struct {
	Port     int    `toml:"port"`
	Host     string `toml:"host"`
	BasePath string `toml:"base_path"` // Optional routing prefix, e.g. "/scim-dashboard"
}

// ComplianceConfig locates the remote compliance test suite
type ComplianceConfig struct {
	ServiceURL string `toml:"service_url"` // Base URL of the test suite web application
	Path       string `toml:"path"`        // Appended to ServiceURL (default: "/ComplianceTestSuite")
	Timeout    string `toml:"timeout"`     // Transport timeout as duration string, "0s" disables
}

// AuthConfig holds the defaults the auth form starts with
type AuthConfig struct {
	DefaultEndpoint string `toml:"default_endpoint"`
	DefaultMode     string `toml:"default_mode"` // "basic" or "bearer"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	InMemory       bool   `toml:"in_memory"`        // Keep run history in memory only (default: true)
	Path           string `toml:"path"`             // Database directory path, used when in_memory = false
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// WebSocketConfig contains configuration for the dashboard event stream
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Minimum interval between run_progress broadcasts, e.g. "250ms". Empty disables throttling.
	ProgressThrottle string `toml:"progress_throttle"`
}

// SchedulerConfig controls unattended compliance runs
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule, seconds field optional
}

type ReportsConfig struct {
	Title   string   `toml:"title"`
	Formats []string `toml:"formats"` // Formats offered by the dashboard export menu
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Compliance: ComplianceConfig{
			ServiceURL: "http://127.0.0.1:8080/org.wso2.scim2.testsuite.endpoint",
			Path:       "/ComplianceTestSuite",
			Timeout:    "0s", // No client timeout, rely on the transport
		},
		Auth: AuthConfig{
			DefaultEndpoint: "https://localhost:9443/scim2",
			DefaultMode:     "basic",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				InMemory: true, // Results do not survive the session
				Path:     "./data/runs",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
				"Publishing event",
			},
			AllowedEvents:    []string{},
			ProgressThrottle: "250ms",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 0 */6 * * *", // Every 6 hours
		},
		Reports: ReportsConfig{
			Title:   "SCIM 2.0 Compliance Report",
			Formats: []string{"pdf", "xlsx", "yaml", "json", "md"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCIMDASH_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SCIMDASH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCIMDASH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if basePath := os.Getenv("SCIMDASH_BASE_PATH"); basePath != "" {
		config.Server.BasePath = basePath
	}

	// Compliance service
	if serviceURL := os.Getenv("SCIMDASH_SERVICE_URL"); serviceURL != "" {
		config.Compliance.ServiceURL = serviceURL
	}
	if timeout := os.Getenv("SCIMDASH_SERVICE_TIMEOUT"); timeout != "" {
		config.Compliance.Timeout = timeout
	}

	// Auth defaults
	if endpoint := os.Getenv("SCIMDASH_DEFAULT_ENDPOINT"); endpoint != "" {
		config.Auth.DefaultEndpoint = endpoint
	}

	// Storage configuration
	if badgerPath := os.Getenv("SCIMDASH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
		config.Storage.Badger.InMemory = false
	}

	// Logging configuration
	if level := os.Getenv("SCIMDASH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCIMDASH_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("SCIMDASH_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = b
		}
	}
	if schedule := os.Getenv("SCIMDASH_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Compliance.ServiceURL) == "" {
		return fmt.Errorf("compliance.service_url is required")
	}
	if _, err := c.ComplianceTimeout(); err != nil {
		return err
	}
	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("scheduler.schedule: %w", err)
		}
	}
	return nil
}

// ComplianceTimeout parses the configured transport timeout. Zero means none.
func (c *Config) ComplianceTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Compliance.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Compliance.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid compliance.timeout %q: %w", c.Compliance.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("compliance.timeout must not be negative")
	}
	return d, nil
}

// ComplianceURL joins the service base URL and path
func (c *Config) ComplianceURL() string {
	path := c.Compliance.Path
	if path == "" {
		path = "/ComplianceTestSuite"
	}
	return JoinURLPath(c.Compliance.ServiceURL, path)
}

// NormalizedBasePath returns the routing prefix with a leading slash and no trailing slash.
// An empty or "/" base path yields "".
func (c *Config) NormalizedBasePath() string {
	p := strings.TrimSpace(c.Server.BasePath)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// CronParser returns the parser used for every schedule in the application
func CronParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ValidateSchedule validates a cron expression. Both 5-field and 6-field (with seconds) forms are accepted.
func ValidateSchedule(schedule string) error {
	if _, err := CronParser().Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.WebSocket.ExcludePatterns) > 0 {
		clone.WebSocket.ExcludePatterns = make([]string, len(c.WebSocket.ExcludePatterns))
		copy(clone.WebSocket.ExcludePatterns, c.WebSocket.ExcludePatterns)
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	if len(c.Reports.Formats) > 0 {
		clone.Reports.Formats = make([]string, len(c.Reports.Formats))
		copy(clone.Reports.Formats, c.Reports.Formats)
	}

	return &clone
}
