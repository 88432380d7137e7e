package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthProvider は認証プロバイダーの種別。
type AuthProvider string

const (
	// AuthProviderLocal はcredentialsテーブルとbcryptによるローカル認証。
	AuthProviderLocal AuthProvider = "local"
	// AuthProviderSupabase はSupabase Auth（GoTrue）による外部認証。
	AuthProviderSupabase AuthProvider = "supabase"
)

// SessionBackend はローカル認証プロバイダーのセッション保存先。
type SessionBackend string

const (
	SessionBackendPostgres SessionBackend = "postgres"
	SessionBackendRedis    SessionBackend = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	AuthProvider      AuthProvider
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	BcryptCost        int

	// Session
	SessionBackend         SessionBackend
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	RedisAddr              string
	RedisPassword          string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSignIn  int

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
// 必須環境変数が未設定の場合や、列挙値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.AuthProvider = AuthProvider(getEnvString("AUTH_PROVIDER", string(AuthProviderLocal)))
	switch cfg.AuthProvider {
	case AuthProviderLocal:
	case AuthProviderSupabase:
		cfg.SupabaseURL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
		if cfg.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
		if cfg.SupabaseAnonKey == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
		cfg.SupabaseJWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	default:
		return nil, fmt.Errorf("unsupported AUTH_PROVIDER %q (want local or supabase)", cfg.AuthProvider)
	}

	cfg.SessionBackend = SessionBackend(getEnvString("SESSION_BACKEND", string(SessionBackendPostgres)))
	switch cfg.SessionBackend {
	case SessionBackendPostgres:
	case SessionBackendRedis:
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND %q (want postgres or redis)", cfg.SessionBackend)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignIn = getEnvInt("RATE_LIMIT_SIGNIN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// UsesLocalSessions はセッションをこのサービスが保存するかどうかを返す。
func (c *Config) UsesLocalSessions() bool {
	return c.AuthProvider == AuthProviderLocal
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
	if err != nil || i <= 0 {
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
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
