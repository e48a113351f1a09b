package config

import (
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"EXAMSCHED_HTTP_PORT",
			"EXAMSCHED_SQLITE_PATH",
			"EXAMSCHED_SESSION_TTL",
			"EXAMSCHED_TIMEZONE",
			"EXAMSCHED_FEDERATION_BASE_URL",
			"EXAMSCHED_FEDERATION_API_KEY",
			"EXAMSCHED_FEDERATION_TIMEOUT",
			"EXAMSCHED_NOTIFY_DELAY",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		const secret = "super-secret"
		t.Setenv("EXAMSCHED_SESSION_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "examscheduler.db" {
			t.Fatalf("unexpected default database path: %q", cfg.SQLitePath)
		}
		if cfg.SessionSecret != secret {
			t.Fatalf("expected session secret to be %q, got %q", secret, cfg.SessionSecret)
		}
		if cfg.Timezone != "UTC" {
			t.Fatalf("expected default timezone UTC, got %q", cfg.Timezone)
		}
		if cfg.NotifyDelay != 2*time.Minute {
			t.Fatalf("expected default notify delay 2m, got %s", cfg.NotifyDelay)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		for _, key := range []string{
			"EXAMSCHED_SESSION_SECRET",
			"EXAMSCHED_HTTP_PORT",
			"EXAMSCHED_SQLITE_PATH",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: EXAMSCHED_SESSION_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		t.Setenv("EXAMSCHED_SESSION_SECRET", "secret-value")
		t.Setenv("EXAMSCHED_HTTP_PORT", "9090")
		t.Setenv("EXAMSCHED_SQLITE_PATH", "/tmp/examscheduler.db")
		t.Setenv("EXAMSCHED_SESSION_TTL", "12h")
		t.Setenv("EXAMSCHED_TIMEZONE", "UTC")
		t.Setenv("EXAMSCHED_FEDERATION_TIMEOUT", "10s")
		t.Setenv("EXAMSCHED_NOTIFY_DELAY", "30s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.SessionTTL != 12*time.Hour {
			t.Fatalf("expected session TTL 12h, got %s", cfg.SessionTTL)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "/tmp/examscheduler.db" {
			t.Fatalf("unexpected database path: %q", cfg.SQLitePath)
		}
		if cfg.FederationTimeout != 10*time.Second {
			t.Fatalf("expected federation timeout 10s, got %s", cfg.FederationTimeout)
		}
		if cfg.NotifyDelay != 30*time.Second {
			t.Fatalf("expected notify delay 30s, got %s", cfg.NotifyDelay)
		}
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		t.Setenv("EXAMSCHED_SESSION_SECRET", "secret-value")
		t.Setenv("EXAMSCHED_HTTP_PORT", "not-a-port")
		t.Setenv("EXAMSCHED_SESSION_TTL", "-1h")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for malformed values")
		}
	})
}
