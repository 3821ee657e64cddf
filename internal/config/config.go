package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Catalog Lookup
	LookupTimeout      time.Duration
	TMDBAPIKey         string
	TMDBBaseURL        string
	JikanBaseURL       string
	OpenLibraryBaseURL string
	RAWGAPIKey         string
	RAWGBaseURL        string
	ITunesBaseURL      string

	// Rate Limit
	RateLimitGeneral int
	RateLimitSearch  int

	// Cover Enrichment
	EnrichInterval         time.Duration
	EnrichAPIInterval      time.Duration
	EnrichMaxCallsPerCycle int
	EnrichMaxConcurrent    int

	// Avatar
	AvatarDir     string
	AvatarMaxSize int64

	// Session Cleanup
	SessionCleanupInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.LookupTimeout = getEnvDuration("LOOKUP_TIMEOUT", 10*time.Second)
	cfg.TMDBAPIKey = getEnvString("TMDB_API_KEY", "")
	cfg.TMDBBaseURL = getEnvString("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	cfg.JikanBaseURL = getEnvString("JIKAN_BASE_URL", "https://api.jikan.moe/v4")
	cfg.OpenLibraryBaseURL = getEnvString("OPENLIBRARY_BASE_URL", "https://openlibrary.org")
	cfg.RAWGAPIKey = getEnvString("RAWG_API_KEY", "")
	cfg.RAWGBaseURL = getEnvString("RAWG_BASE_URL", "https://api.rawg.io/api")
	cfg.ITunesBaseURL = getEnvString("ITUNES_BASE_URL", "https://itunes.apple.com")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSearch = getEnvInt("RATE_LIMIT_SEARCH", 30)
	cfg.EnrichInterval = getEnvDuration("ENRICH_INTERVAL", 10*time.Minute)
	cfg.EnrichAPIInterval = getEnvDuration("ENRICH_API_INTERVAL", 2*time.Second)
	cfg.EnrichMaxCallsPerCycle = getEnvInt("ENRICH_MAX_CALLS_PER_CYCLE", 50)
	cfg.EnrichMaxConcurrent = getEnvInt("ENRICH_MAX_CONCURRENT", 4)
	cfg.AvatarDir = getEnvString("AVATAR_DIR", "./data/avatars")
	cfg.AvatarMaxSize = getEnvInt64("AVATAR_MAX_SIZE", 5242880)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", 1*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
