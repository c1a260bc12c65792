package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all tabmemory settings. Values come from the environment,
// optionally seeded from a .env file in the working directory.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Tab matching and probing
	TabURLFilter     string
	EvalTimeoutMS    int
	ProbeConcurrency int

	// HTTP control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Cache store
	StoreBackend string
	StorePath    string

	// Browser launch
	ProfileDir string
	StartURL   string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		TabURLFilter:     getEnvOrDefault("TABMEMORY_TAB_URL_FILTER", "youtube.com"),
		EvalTimeoutMS:    getEnvIntOrDefault("TABMEMORY_EVAL_TIMEOUT_MS", 5000),
		ProbeConcurrency: getEnvIntOrDefault("TABMEMORY_PROBE_CONCURRENCY", 0),
		BindAddr:         getEnvOrDefault("TABMEMORY_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("TABMEMORY_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback: getEnvBoolOrDefault("TABMEMORY_PORT_AUTO_FALLBACK", true),
		StoreBackend:     strings.ToLower(getEnvOrDefault("TABMEMORY_STORE_BACKEND", "json")),
		StorePath:        getEnvOrDefault("TABMEMORY_STORE_PATH", ""),
		ProfileDir:       getEnvOrDefault("TABMEMORY_PROFILE_DIR", "./chromium_profile"),
		StartURL:         getEnvOrDefault("TABMEMORY_START_URL", "https://www.youtube.com/"),
		LogLevel:         strings.ToLower(getEnvOrDefault("TABMEMORY_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("TABMEMORY_LOG_FILE", "logs/tabmemory.log"),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.ProbeConcurrency < 0 {
		cfg.ProbeConcurrency = 0
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath(cfg.StoreBackend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "json", "bolt":
	default:
		return fmt.Errorf("unknown store backend %q (want json or bolt)", c.StoreBackend)
	}
	if c.CDPPort <= 0 || c.CDPPort > 65535 {
		return fmt.Errorf("invalid CDP port %d", c.CDPPort)
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("store path is required")
	}
	return nil
}

// CDPURL returns the CDP HTTP endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// DefaultStorePath is the store file used when none is configured.
func DefaultStorePath(backend string) string {
	name := "tabmemory.json"
	if backend == "bolt" {
		name = "tabmemory.db"
	}
	return filepath.Join("data", name)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma separated value, dropping blanks.
func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
