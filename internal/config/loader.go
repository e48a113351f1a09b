package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the exam
// scheduler service.
type Config struct {
	HTTPPort          int
	SQLitePath        string
	SessionSecret     string
	SessionTTL        time.Duration
	Timezone          string
	FederationBaseURL string
	FederationAPIKey  string
	FederationTimeout time.Duration
	NotifyDelay       time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLitePath:        "examscheduler.db",
		SessionTTL:        24 * time.Hour,
		Timezone:          "UTC",
		FederationTimeout: 5 * time.Second,
		NotifyDelay:       2 * time.Minute,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("EXAMSCHED_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "EXAMSCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("EXAMSCHED_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if secret := strings.TrimSpace(os.Getenv("EXAMSCHED_SESSION_SECRET")); secret == "" {
		missing = append(missing, "EXAMSCHED_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("EXAMSCHED_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "EXAMSCHED_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if tz := strings.TrimSpace(os.Getenv("EXAMSCHED_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "EXAMSCHED_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if baseURL := strings.TrimSpace(os.Getenv("EXAMSCHED_FEDERATION_BASE_URL")); baseURL != "" {
		cfg.FederationBaseURL = baseURL
	}
	if apiKey := strings.TrimSpace(os.Getenv("EXAMSCHED_FEDERATION_API_KEY")); apiKey != "" {
		cfg.FederationAPIKey = apiKey
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("EXAMSCHED_FEDERATION_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "EXAMSCHED_FEDERATION_TIMEOUT")
		} else {
			cfg.FederationTimeout = timeout
		}
	}

	if delayValue := strings.TrimSpace(os.Getenv("EXAMSCHED_NOTIFY_DELAY")); delayValue != "" {
		delay, err := time.ParseDuration(delayValue)
		if err != nil || delay < 0 {
			invalid = append(invalid, "EXAMSCHED_NOTIFY_DELAY")
		} else {
			cfg.NotifyDelay = delay
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
