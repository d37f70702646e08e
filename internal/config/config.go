package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the SGP bridge daemon.
type Config struct {
	// SGP endpoints
	PrimaryBaseURL  string
	FallbackBaseURL string
	ProbeTimeoutMS  int
	FormCacheTTLMin int

	// CDP connection settings
	CDPAddress    string
	CDPPort       int
	EvalTimeoutMS int

	// HTTP API settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Local state and logging
	StateDir string
	LogLevel string
	LogFile  string

	// Optional operator alerts
	NtfyEndpoint string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		PrimaryBaseURL:   getEnvOrDefault("SGP_BRIDGE_PRIMARY_URL", "https://sgp.atiinternet.com.br"),
		FallbackBaseURL:  getEnvOrDefault("SGP_BRIDGE_FALLBACK_URL", "http://201.158.20.35:8000"),
		ProbeTimeoutMS:   getEnvIntOrDefault("SGP_BRIDGE_PROBE_TIMEOUT_MS", 4000),
		FormCacheTTLMin:  getEnvIntOrDefault("SGP_BRIDGE_FORM_CACHE_TTL_MIN", 30),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		EvalTimeoutMS:    getEnvIntOrDefault("SGP_BRIDGE_EVAL_TIMEOUT_MS", 10000),
		BindAddr:         getEnvOrDefault("SGP_BRIDGE_BIND_ADDR", "127.0.0.1:8722"),
		PortCandidates:   splitList(getEnvOrDefault("SGP_BRIDGE_PORT_CANDIDATES", "127.0.0.1:8723,127.0.0.1:8724")),
		PortAutoFallback: getEnvBoolOrDefault("SGP_BRIDGE_PORT_AUTO_FALLBACK", true),
		StateDir:         getEnvOrDefault("SGP_BRIDGE_STATE_DIR", "./state"),
		LogLevel:         strings.ToLower(getEnvOrDefault("SGP_BRIDGE_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("SGP_BRIDGE_LOG_FILE", "logs/sgp_bridge.log"),
		NtfyEndpoint:     os.Getenv("SGP_BRIDGE_NTFY_ENDPOINT"),
	}

	if cfg.PrimaryBaseURL == "" {
		return nil, fmt.Errorf("SGP_BRIDGE_PRIMARY_URL must not be empty")
	}
	if cfg.ProbeTimeoutMS < 1000 {
		cfg.ProbeTimeoutMS = 1000
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}

	return cfg, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// Origins lists the SGP base URLs whose cookies the bridge mirrors.
func (c *Config) Origins() []string {
	origins := []string{c.PrimaryBaseURL}
	if c.FallbackBaseURL != "" {
		origins = append(origins, c.FallbackBaseURL)
	}
	return origins
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
