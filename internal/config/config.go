package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".taskcore"
	fileName = "config.yaml"
)

// Config holds client settings
type Config struct {
	// Backend
	APIURL         string        `yaml:"api_url" json:"api_url"`                 // Base URL of the task API
	PushHost       string        `yaml:"push_host" json:"push_host"`             // Overrides the push endpoint host
	PushPort       int           `yaml:"push_port" json:"push_port"`             // Overrides the push endpoint port
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"` // Per request HTTP timeout

	// Mock mode runs fully in process with a fixed user id
	Mock       bool  `yaml:"mock" json:"mock"`
	MockUserID int64 `yaml:"mock_user_id" json:"mock_user_id"`

	// Push reconnect policy
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`
	ReconnectJitter time.Duration `yaml:"reconnect_jitter" json:"reconnect_jitter"`

	// DataDir holds the session file and the local lists database
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	dir string
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return defaultsFor(filepath.Join(home, dirName))
}

func defaultsFor(dir string) *Config {
	return &Config{
		APIURL:          "http://localhost:8080",
		RequestTimeout:  15 * time.Second,
		MockUserID:      1,
		ReconnectDelay:  5 * time.Second,
		ReconnectJitter: 0,
		DataDir:         dir,
		LogLevel:        "INFO",
		LogFile:         filepath.Join(dir, "logs", "taskcore.log"),
		dir:             dir,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// applyEnv lets TASKCORE_* variables override file values
func (c *Config) applyEnv() {
	c.APIURL = getEnv("TASKCORE_API_URL", c.APIURL)
	c.PushHost = getEnv("TASKCORE_PUSH_HOST", c.PushHost)
	c.PushPort = int(getEnvAsInt("TASKCORE_PUSH_PORT", int64(c.PushPort)))
	c.RequestTimeout = getEnvAsDuration("TASKCORE_REQUEST_TIMEOUT", c.RequestTimeout)
	c.Mock = getEnvAsBool("TASKCORE_MOCK", c.Mock)
	c.MockUserID = getEnvAsInt("TASKCORE_MOCK_USER_ID", c.MockUserID)
	c.ReconnectDelay = getEnvAsDuration("TASKCORE_RECONNECT_DELAY", c.ReconnectDelay)
	c.ReconnectJitter = getEnvAsDuration("TASKCORE_RECONNECT_JITTER", c.ReconnectJitter)
	c.DataDir = getEnv("TASKCORE_DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("TASKCORE_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("TASKCORE_LOG_FILE", c.LogFile)
	c.LogConsole = getEnvAsBool("TASKCORE_LOG_CONSOLE", c.LogConsole)
}

// Load loads config from ~/.taskcore/config.yaml
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(home, dirName))
}

// LoadFrom loads config.yaml from dir. A missing file yields defaults.
func LoadFrom(dir string) (*Config, error) {
	cfg := defaultsFor(dir)
	configPath := filepath.Join(dir, fileName)

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail much later
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: expected http(s)://host[:port]", c.APIURL)
	}
	if c.PushPort < 0 || c.PushPort > 65535 {
		return fmt.Errorf("invalid push_port %d", c.PushPort)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive")
	}
	if c.ReconnectJitter < 0 {
		return fmt.Errorf("reconnect_jitter must not be negative")
	}
	return nil
}

// PushURL derives the WebSocket endpoint from the API URL: http becomes ws,
// https becomes wss, push_host/push_port replace the host part when set.
func (c *Config) PushURL() (string, error) {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid api_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	host, port := u.Hostname(), u.Port()
	if c.PushHost != "" {
		host = c.PushHost
	}
	if c.PushPort != 0 {
		port = strconv.Itoa(c.PushPort)
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Dir returns the directory config.yaml is read from and saved to
func (c *Config) Dir() string {
	return c.dir
}

// SessionPath is where the persisted session lives
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// DBPath is the local lists database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "taskcore.db")
}

// Save saves config to config.yaml in its directory
func (c *Config) Save() error {
	if c.dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(c.dir, fileName)
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
