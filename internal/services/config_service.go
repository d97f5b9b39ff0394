package services

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigService loads API keys and runtime tunables with precedence
// (highest wins): process environment > .env file under SYNERGY_ROOT >
// built-in defaults, loading its .env file with godotenv.
type ConfigService struct {
	initialized bool
	root        string
	values      map[string]string
}

// NewConfigService creates a new, uninitialized ConfigService.
func NewConfigService(root string) *ConfigService {
	return &ConfigService{root: root, values: make(map[string]string)}
}

// Name returns the service name for registration.
func (c *ConfigService) Name() string { return "config" }

// Initialize loads defaults, then the .env file (if present) under SYNERGY_ROOT.
// It does not read process environment variables eagerly — Get always
// checks the OS environment first, so a live env var override always wins.
func (c *ConfigService) Initialize() error {
	c.values["SYNERGY_MAX_RETRIES"] = "3"
	c.values["SYNERGY_OFFLINE_RESPONSE"] = "This is a canned offline response."

	envPath := filepath.Join(c.root, ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		if parsed, perr := godotenv.Unmarshal(string(data)); perr == nil {
			for k, v := range parsed {
				c.values[k] = v
			}
		}
	}

	c.initialized = true
	return nil
}

// Get returns a configuration value, preferring a live OS environment
// variable over anything loaded from the .env file or defaults.
func (c *ConfigService) Get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return c.values[key]
}

// Set overrides a configuration value at runtime, used when a session load
// (,load) adopts a dumped system prompt. It does not touch the OS
// environment, so a live env var still takes precedence over it.
func (c *ConfigService) Set(key, value string) {
	c.values[key] = value
}

// GetInt parses a configuration value as an integer, falling back to def on any error.
func (c *ConfigService) GetInt(key string, def int) int {
	v := c.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool reports whether a configuration value is truthy ("1", "true", "yes", case-insensitively).
func (c *ConfigService) GetBool(key string) bool {
	switch strings.ToLower(c.Get(key)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Root returns the configured SYNERGY_ROOT directory.
func (c *ConfigService) Root() string { return c.root }

// RequestTimeout returns the configured HTTP transport deadline, defaulting
// to 60 seconds.
func (c *ConfigService) RequestTimeout() time.Duration {
	seconds := c.GetInt("SYNERGY_TIMEOUT_SECONDS", 60)
	return time.Duration(seconds) * time.Second
}

// SystemPrompt returns the system prompt held apart from the conversation
// log, overridable via SYNERGY_SYSTEM_PROMPT.
func (c *ConfigService) SystemPrompt() string {
	if v := c.Get("SYNERGY_SYSTEM_PROMPT"); v != "" {
		return v
	}
	return "You are a helpful assistant accessed through a terminal client."
}
