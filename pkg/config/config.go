package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Password   PasswordConfig
	Lockout    LockoutConfig
	Upload     UploadConfig
	Storage    StorageConfig
	AI         AIConfig
	Email      EmailConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// friends. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

type DatabaseConfig struct {
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type SessionConfig struct {
	Secret       string
	MaxAgeSecs   int
	CookieSecure bool
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	MaxRequests int
	WindowMs    int
	Store       string // memory or redis
}

type PasswordConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSymbols   bool
}

type LockoutConfig struct {
	MaxAttempts int
	LockoutMs   int
}

type UploadConfig struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type StorageConfig struct {
	Backend         string // memory, s3, gcs or none
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type AIConfig struct {
	GeminiAPIKey string
	Model        string
}

type EmailConfig struct {
	From     string
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

type WorkerConfig struct {
	Concurrency  int
	FollowUpCron string
}

func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *SessionConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeSecs) * time.Second
}

func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMs) * time.Millisecond
}

func (l *LockoutConfig) Duration() time.Duration {
	return time.Duration(l.LockoutMs) * time.Millisecond
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// SMTPEnabled reports whether outgoing mail can be delivered.
func (e *EmailConfig) SMTPEnabled() bool {
	return e.SMTPHost != "" && e.SMTPUser != ""
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "crm")
	v.SetDefault("DATABASE_PASSWORD", "crm_secret")
	v.SetDefault("DATABASE_NAME", "crm")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("SESSION_MAX_AGE", 86400)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_MS", 900000)
	v.SetDefault("RATE_LIMIT_STORE", "memory")
	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("PASSWORD_REQUIRE_UPPERCASE", false)
	v.SetDefault("PASSWORD_REQUIRE_LOWERCASE", false)
	v.SetDefault("PASSWORD_REQUIRE_NUMBERS", false)
	v.SetDefault("PASSWORD_REQUIRE_SYMBOLS", false)
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 5)
	v.SetDefault("LOCKOUT_TIME_MS", 1800000)
	v.SetDefault("MAX_FILE_SIZE", 5242880)
	v.SetDefault("ALLOWED_FILE_TYPES", "jpg,jpeg,png,pdf,doc,docx")
	v.SetDefault("ATTACHMENT_STORAGE", "memory")
	v.SetDefault("ATTACHMENT_BUCKET", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("EMAIL_FROM", "noreply@yourcrm.com")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("FOLLOWUP_CRON", "*/15 * * * *")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

			TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("DATABASE_URL"),
			Host:        v.GetString("DATABASE_HOST"),
			Port:        v.GetInt("DATABASE_PORT"),
			User:        v.GetString("DATABASE_USER"),
			Password:    v.GetString("DATABASE_PASSWORD"),
			Name:        v.GetString("DATABASE_NAME"),
			SSLMode:     v.GetString("DATABASE_SSLMODE"),
			AutoMigrate: v.GetBool("DATABASE_AUTO_MIGRATE"),

			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Session: SessionConfig{
			Secret:       v.GetString("JWT_SECRET"),
			MaxAgeSecs:   v.GetInt("SESSION_MAX_AGE"),
			CookieSecure: v.GetBool("COOKIE_SECURE"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			WindowMs:    v.GetInt("RATE_LIMIT_WINDOW_MS"),
			Store:       strings.ToLower(v.GetString("RATE_LIMIT_STORE")),
		},
		Password: PasswordConfig{
			MinLength:        v.GetInt("PASSWORD_MIN_LENGTH"),
			RequireUppercase: v.GetBool("PASSWORD_REQUIRE_UPPERCASE"),
			RequireLowercase: v.GetBool("PASSWORD_REQUIRE_LOWERCASE"),
			RequireNumbers:   v.GetBool("PASSWORD_REQUIRE_NUMBERS"),
			RequireSymbols:   v.GetBool("PASSWORD_REQUIRE_SYMBOLS"),
		},
		Lockout: LockoutConfig{
			MaxAttempts: v.GetInt("MAX_LOGIN_ATTEMPTS"),
			LockoutMs:   v.GetInt("LOCKOUT_TIME_MS"),
		},
		Upload: UploadConfig{
			MaxFileSize:  v.GetInt64("MAX_FILE_SIZE"),
			AllowedTypes: splitList(strings.ToLower(v.GetString("ALLOWED_FILE_TYPES"))),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(v.GetString("ATTACHMENT_STORAGE")),
			Bucket:          v.GetString("ATTACHMENT_BUCKET"),
			Region:          v.GetString("AWS_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		AI: AIConfig{
			GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
			Model:        v.GetString("GEMINI_MODEL"),
		},
		Email: EmailConfig{
			From:     v.GetString("EMAIL_FROM"),
			SMTPHost: v.GetString("SMTP_HOST"),
			SMTPPort: v.GetInt("SMTP_PORT"),
			SMTPUser: v.GetString("SMTP_USER"),
			SMTPPass: v.GetString("SMTP_PASS"),
		},
		Worker: WorkerConfig{
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
			FollowUpCron: v.GetString("FOLLOWUP_CRON"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
