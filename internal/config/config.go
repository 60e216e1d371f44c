package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported conversion engines.
const (
	EngineDocling = "docling"
	EngineNative  = "native"
)

// Config holds all configuration for the application.
// It is built once at startup and passed to constructors; nothing mutates it afterwards.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
	TempDir   string

	ConverterEngine string
	DoclingURL      string

	// Picture description service
	LLMDescriptionURL      string
	LLMModel               string
	LLMBearerToken         string
	LLMMaxCompletionTokens int
	LLMTimeout             time.Duration

	ChunkerMaxTokens int

	SSHHost       string
	SSHPort       int
	SSHUser       string
	SSHPassword   string
	SSHPrivateKey string
	SSHKnownHosts string
	SSHTargetPath string
}

// Load reads configuration from environment variables and returns a Config struct.
// If a .env file exists in the current directory or a parent directory, it is loaded first.
// Environment variables already set take precedence over .env file values.
//
// Missing required values do not fail Load; call Missing to report them.
// Malformed values (numbers, durations, engine names) do.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:           getEnv("API_PORT", "8000"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		TempDir:           getEnv("TEMP_DIR", os.TempDir()),
		ConverterEngine:   strings.ToLower(getEnv("CONVERTER_ENGINE", EngineDocling)),
		DoclingURL:        strings.TrimRight(getEnv("DOCLING_URL", "http://localhost:5001"), "/"),
		LLMDescriptionURL: getEnv("LLM_DESCRIPTION_URL", "http://localhost:8080/v1/chat/completions"),
		LLMModel:          getEnv("LLM_MODEL", ""),
		LLMBearerToken:    getEnv("LLM_BEARER_TOKEN", ""),
		SSHHost:           getEnv("SSH_HOST", ""),
		SSHUser:           getEnv("SSH_USER", ""),
		SSHPassword:       getEnv("SSH_PASSWORD", ""),
		SSHPrivateKey:     getEnv("SSH_PRIVATE_KEY", ""),
		SSHKnownHosts:     getEnv("SSH_KNOWN_HOSTS", ""),
		SSHTargetPath:     getEnv("SSH_TARGET_PATH", ""),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.ConverterEngine != EngineDocling && cfg.ConverterEngine != EngineNative {
		return nil, fmt.Errorf("CONVERTER_ENGINE must be %s or %s, got %q", EngineDocling, EngineNative, cfg.ConverterEngine)
	}

	if cfg.LLMMaxCompletionTokens, err = getPositiveInt("LLM_MAX_COMPLETION_TOKENS", 2000); err != nil {
		return nil, err
	}
	if cfg.ChunkerMaxTokens, err = getPositiveInt("HYBRID_CHUNKER_MAX_TOKENS", 3000); err != nil {
		return nil, err
	}
	if cfg.SSHPort, err = getPositiveInt("SSH_PORT", 22); err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getEnv("LLM_TIMEOUT", "600s"))
	if err != nil {
		return nil, fmt.Errorf("LLM_TIMEOUT must be a valid duration: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be greater than 0")
	}
	cfg.LLMTimeout = timeout

	return cfg, nil
}

// Missing returns the names of required variables that are unset.
// The service still starts without them; requests that need them fail.
func (c *Config) Missing() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"LLM_MODEL", c.LLMModel},
		{"LLM_BEARER_TOKEN", c.LLMBearerToken},
		{"SSH_HOST", c.SSHHost},
		{"SSH_USER", c.SSHUser},
		{"SSH_TARGET_PATH", c.SSHTargetPath},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if c.SSHPassword == "" && c.SSHPrivateKey == "" {
		missing = append(missing, "SSH_PASSWORD or SSH_PRIVATE_KEY")
	}
	return missing
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}
