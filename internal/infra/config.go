package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"logobatch/internal/domain"
)

const (
	defaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"
	// Leonardo Lightning XL.
	defaultModelID = "b24e16ff-06e3-43eb-8d33-4416c2d75876"
)

// Config represents the run configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	LogLevel       string
	APIKey         string
	BaseURL        string
	ModelID        string
	ReferenceImage string
	OutputDir      string
	ClubsFile      string
	HTTPTimeout    time.Duration
	PollInterval   time.Duration
	PollAttempts   int
	ClubDelay      time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "production"),
		LogLevel:       strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		APIKey:         strings.TrimSpace(os.Getenv("LEO_API_KEY")),
		BaseURL:        strings.TrimRight(getEnv("LEO_BASE_URL", defaultBaseURL), "/"),
		ModelID:        getEnv("LEO_MODEL_ID", defaultModelID),
		ReferenceImage: getEnv("REFERENCE_IMAGE", "reference.png"),
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		ClubsFile:      strings.TrimSpace(os.Getenv("CLUBS_FILE")),
		HTTPTimeout:    time.Second * time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)),
		PollInterval:   time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)),
		PollAttempts:   getEnvInt("POLL_MAX_ATTEMPTS", 10),
		ClubDelay:      time.Second * time.Duration(getEnvInt("CLUB_DELAY_SECONDS", 2)),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: LEO_API_KEY is required", domain.ErrConfig)
	}
	if cfg.PollAttempts < 1 {
		return nil, fmt.Errorf("%w: POLL_MAX_ATTEMPTS must be at least 1", domain.ErrConfig)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("%w: HTTP_TIMEOUT_SECONDS must be positive", domain.ErrConfig)
	}
	if cfg.PollInterval < 0 || cfg.ClubDelay < 0 {
		return nil, fmt.Errorf("%w: delays must not be negative", domain.ErrConfig)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}
