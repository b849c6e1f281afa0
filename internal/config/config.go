package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/plantpal/internal/retry"
)

type Config struct {
	ListenAddr    string
	DBPath        string
	PhotoPath     string
	ReminderHour  int
	ReminderTZ    string
	NotifyBackend string
	SeedOnStart   bool
	RetryMax      int
	RetryInitial  time.Duration
	RetryMaxWait  time.Duration
	RetryMode     string
	VisionBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string
	LogLevel      string
	LogFormat     string
	LogFile       string
}

func Load() *Config {
	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/plantpal.db"),
		PhotoPath:     getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		ReminderHour:  getEnvInt("REMINDER_HOUR", 9),
		ReminderTZ:    getEnv("REMINDER_TZ", "Local"),
		NotifyBackend: getEnv("NOTIFY_BACKEND", "inbox"),
		SeedOnStart:   getEnvBool("SEED_ON_START", false),
		RetryMax:      getEnvInt("RETRY_MAX", 2),
		RetryInitial:  getEnvDuration("RETRY_INITIAL", time.Second),
		RetryMaxWait:  getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
		RetryMode:     getEnv("RETRY_MODE", "linear"),
		VisionBackend: getEnv("VISION_BACKEND", ""),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

// Validate rejects values the scheduler and notifier cannot work with.
func (c *Config) Validate() error {
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23, got %d", c.ReminderHour)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid REMINDER_TZ %q: %w", c.ReminderTZ, err)
	}
	switch c.NotifyBackend {
	case "inbox", "log", "both":
	default:
		return fmt.Errorf("NOTIFY_BACKEND must be inbox, log or both, got %q", c.NotifyBackend)
	}
	switch c.VisionBackend {
	case "", "ollama":
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
	default:
		return fmt.Errorf("VISION_BACKEND must be claude, ollama or empty, got %q", c.VisionBackend)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("RETRY_MAX cannot be negative")
	}
	if _, err := retry.ParseMode(c.RetryMode); err != nil {
		return fmt.Errorf("invalid RETRY_MODE: %w", err)
	}
	return nil
}

// RetryPolicy is the backoff used for failed reminder sweeps.
func (c *Config) RetryPolicy() retry.Policy {
	mode, err := retry.ParseMode(c.RetryMode)
	if err != nil {
		mode = retry.ModeLinear
	}
	return retry.NewPolicy(mode, c.RetryInitial, c.RetryMaxWait, c.RetryMax)
}

// Location resolves ReminderTZ. "Local" and "" mean the process timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.ReminderTZ == "" || strings.EqualFold(c.ReminderTZ, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.ReminderTZ)
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return d
}
