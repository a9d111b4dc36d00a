package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the poseassist API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Chat      ChatConfig      `yaml:"chat"`
	Poses     PosesConfig     `yaml:"poses"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds feedback/cache store settings.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ExtractorConfig holds pose-landmark extractor settings.
type ExtractorConfig struct {
	Driver     string           `yaml:"driver"` // landmarker, gemini (default: landmarker)
	TimeoutSec int              `yaml:"timeout_sec"`
	Landmarker LandmarkerConfig `yaml:"landmarker"`
	Gemini     GeminiConfig     `yaml:"gemini"`
}

// LandmarkerConfig holds the pose-landmark sidecar settings.
type LandmarkerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds the Gemini vision extractor settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ChatConfig holds chat upstream settings.
type ChatConfig struct {
	APIKey      string            `yaml:"api_key"`
	BaseURL     string            `yaml:"base_url"`
	Model       string            `yaml:"model"`
	TimeoutSec  int               `yaml:"timeout_sec"`
	TopicFilter TopicFilterConfig `yaml:"topic_filter"`
}

// TopicFilterConfig holds the optional keyword pre-filter settings.
type TopicFilterConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
}

// PosesConfig holds reference pose catalog settings.
type PosesConfig struct {
	Dir           string  `yaml:"dir"`
	Threshold     float64 `yaml:"threshold"`
	MaxReferences int     `yaml:"max_references"`
	PublicPath    string  `yaml:"public_path"`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTLHours   int    `yaml:"ttl_hours"` // feedback retention, redis driver only
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Extractor.Driver == "" {
		c.Extractor.Driver = "landmarker"
	}
	if c.Extractor.TimeoutSec <= 0 {
		c.Extractor.TimeoutSec = 30
	}
	if c.Extractor.Gemini.Model == "" {
		c.Extractor.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "openai/gpt-3.5-turbo"
	}
	if c.Chat.TimeoutSec <= 0 {
		c.Chat.TimeoutSec = 30
	}
	if c.Poses.Dir == "" {
		c.Poses.Dir = "poses"
	}
	if c.Poses.Threshold <= 0 {
		c.Poses.Threshold = 0.1
	}
	if c.Poses.MaxReferences <= 0 {
		c.Poses.MaxReferences = 10
	}
	if c.Poses.PublicPath == "" {
		c.Poses.PublicPath = "/poses"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session_id"
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be \"memory\" or \"redis\", got %q", c.Store.Driver)
	}
	switch c.Extractor.Driver {
	case "landmarker":
		if c.Extractor.Landmarker.BaseURL == "" {
			return fmt.Errorf("extractor.landmarker.base_url is required for the landmarker driver")
		}
	case "gemini":
		if c.Extractor.Gemini.APIKey == "" {
			return fmt.Errorf("extractor.gemini.api_key is required for the gemini driver")
		}
	default:
		return fmt.Errorf("extractor.driver must be \"landmarker\" or \"gemini\", got %q", c.Extractor.Driver)
	}
	if c.Chat.APIKey == "" {
		return fmt.Errorf("chat.api_key is required")
	}
	if c.Chat.TopicFilter.Enabled && len(c.Chat.TopicFilter.Keywords) == 0 {
		return fmt.Errorf("chat.topic_filter.keywords is required when the filter is enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
