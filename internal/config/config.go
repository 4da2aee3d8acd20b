package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	DB struct {
		DSN string
	}

	OAuth struct {
		ClientID     string
		ClientSecret string
		IssuerURL    string
		RedirectPath string
	}

	Session struct {
		Secret string
	}

	Feed struct {
		RefreshSpec string
		ExpandPast  time.Duration
		ExpandAhead time.Duration
	}

	Export struct {
		TTLMinutes int
	}

	GroupSeedPath string

	PrometheusEnabled bool
	TrustedProxies    []string
}

func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("CALSIFT_LISTEN_ADDR", ":8080")
	cfg.BaseURL = getenvDefault("CALSIFT_BASE_URL", "http://localhost:8080")
	cfg.DB.DSN = os.Getenv("CALSIFT_DB_DSN")

	if cfg.DB.DSN == "" {
		host := os.Getenv("CALSIFT_DB_HOST")
		name := os.Getenv("CALSIFT_DB_NAME")
		user := os.Getenv("CALSIFT_DB_USER")
		password := os.Getenv("CALSIFT_DB_PASSWORD")
		port := getenvDefault("CALSIFT_DB_PORT", "5432")
		sslmode := getenvDefault("CALSIFT_DB_SSLMODE", "disable")

		var missing []string
		if host == "" {
			missing = append(missing, "CALSIFT_DB_HOST")
		}
		if name == "" {
			missing = append(missing, "CALSIFT_DB_NAME")
		}
		if user == "" {
			missing = append(missing, "CALSIFT_DB_USER")
		}
		if password == "" {
			missing = append(missing, "CALSIFT_DB_PASSWORD")
		}

		if len(missing) == 0 {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}

	cfg.OAuth.ClientID = os.Getenv("CALSIFT_OAUTH_CLIENT_ID")
	cfg.OAuth.ClientSecret = os.Getenv("CALSIFT_OAUTH_CLIENT_SECRET")
	cfg.OAuth.IssuerURL = os.Getenv("CALSIFT_OAUTH_ISSUER_URL")
	cfg.OAuth.RedirectPath = getenvDefault("CALSIFT_OAUTH_REDIRECT_PATH", "/auth/callback")
	cfg.Session.Secret = os.Getenv("CALSIFT_SESSION_SECRET")

	cfg.Feed.RefreshSpec = getenvDefault("CALSIFT_FEED_REFRESH_SPEC", "@every 15m")
	var err error
	cfg.Feed.ExpandPast, err = getenvDuration("CALSIFT_FEED_EXPAND_PAST", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.Feed.ExpandAhead, err = getenvDuration("CALSIFT_FEED_EXPAND_AHEAD", 365*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.Export.TTLMinutes, err = getenvInt("CALSIFT_EXPORT_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	cfg.GroupSeedPath = os.Getenv("CALSIFT_GROUP_SEED_PATH")
	cfg.PrometheusEnabled = getenvBool("CALSIFT_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("CALSIFT_TRUSTED_PROXIES")

	if cfg.DB.DSN == "" {
		return nil, errors.New("CALSIFT_DB_DSN is required (or set CALSIFT_DB_HOST, CALSIFT_DB_NAME, CALSIFT_DB_USER, and CALSIFT_DB_PASSWORD)")
	}
	if cfg.OAuth.ClientID == "" || cfg.OAuth.ClientSecret == "" {
		return nil, fmt.Errorf("oauth configuration is required: client id and secret")
	}
	if cfg.OAuth.IssuerURL == "" {
		return nil, errors.New("CALSIFT_OAUTH_ISSUER_URL is required")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("CALSIFT_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("CALSIFT_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}

	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No CALSIFT_TRUSTED_PROXIES configured. CalSift will trust all proxies - Not recommended for public environments.")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
