package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         string
	LogLevel     string
	Timezone     *time.Location
	DBConn       string
	RedisURL     string
	FlowTTL      time.Duration
	ShutdownWait time.Duration

	BackendURL          string
	BackendTimeout      time.Duration
	BackendServiceToken string

	GeoIPPath  string
	GeoTimeout time.Duration

	RDMantraURL string
	RDMorphoURL string
	RDWadh      string
	RDTimeout   time.Duration

	MPINSealKey []byte

	ExportLimit    int
	SearchDebounce time.Duration

	SummaryCron       string
	SummaryRecipients []string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SenderEmail       string
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DBConn:              getEnv("DB_CONN", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
		BackendServiceToken: getEnv("BACKEND_SERVICE_TOKEN", ""),
		GeoIPPath:           getEnv("GEOIP_DB_PATH", ""),
		RDMantraURL:         getEnv("RD_MANTRA_URL", "https://127.0.0.1:11100/rd/capture"),
		RDMorphoURL:         getEnv("RD_MORPHO_URL", "https://localhost:11100/capture"),
		RDWadh:              getEnv("RD_WADH", ""),
		SummaryCron:         getEnv("SUMMARY_CRON", ""),
		SummaryRecipients:   splitList(getEnv("SUMMARY_RECIPIENTS", "")),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnv("SMTP_PORT", "587"),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		SenderEmail:         getEnv("SENDER_EMAIL", "noreply@paybazaar.in"),
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"BACKEND_TIMEOUT", 30 * time.Second, &cfg.BackendTimeout},
		{"GEO_TIMEOUT", 15 * time.Second, &cfg.GeoTimeout},
		{"RD_TIMEOUT", 30 * time.Second, &cfg.RDTimeout},
		{"FLOW_TTL", 30 * time.Minute, &cfg.FlowTTL},
		{"SEARCH_DEBOUNCE", 400 * time.Millisecond, &cfg.SearchDebounce},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownWait},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.ExportLimit, err = getInt("EXPORT_LIMIT", 100000); err != nil {
		return nil, err
	}
	if cfg.ExportLimit <= 0 {
		return nil, fmt.Errorf("EXPORT_LIMIT must be positive")
	}

	tz := getEnv("TIMEZONE", "Asia/Kolkata")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if raw := getEnv("MPIN_SEAL_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MPIN_SEAL_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("MPIN_SEAL_KEY must be 32 bytes, got %d", len(key))
		}
		cfg.MPINSealKey = key
	}

	return cfg, nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
