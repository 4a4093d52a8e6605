package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort           string
	ServiceApiPort    string
	PublicBaseURL     string
	CorsAllowedOrigin string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool   // store emails in Redis instead of sending them
	EmailLogPath    string // optional file copy of every outgoing email

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	AwsS3Endpoint      string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// App Defaults
	AppName           string
	PasswordMinLength int
	ViewDedupTTL      time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Rate Limiting Defaults
	RateLimitGuestBucketSize int
	RateLimitGuestRefillRate int // tokens per second
	RateLimitUserBucketSize  int
	RateLimitUserRefillRate  int // tokens per second

	// Seed (cmd/seed only)
	Seed SeedConfig
}

// SeedConfig holds the bootstrap values used by the seed command.
type SeedConfig struct {
	AdminEmail        string
	AdminPassword     string
	AdminName         string
	BankName          string
	BankAccountTitle  string
	BankAccountNumber string
	BankIBAN          string
	BankBranch        string
	BankInstructions  string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "marketplace")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/")
	cfg.CorsAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@market.example.com")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.EmailLogPath = getEnv("LOG_EMAILS", "")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AwsS3Endpoint = getEnv("AWS_S3_ENDPOINT", "")
	cfg.ImageBaseS3URL = strings.TrimRight(getEnv("IMAGE_BASE_S3_URL", ""), "/")
	cfg.AppName = getEnv("APP_NAME", "Market")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "86400"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "1600"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.PasswordMinLength, err = getInt("PASSWORD_MIN_LENGTH", "8"); err != nil {
		return nil, err
	}

	viewDedupSeconds, err := strconv.ParseInt(getEnv("VIEW_DEDUP_TTL_SECONDS", "21600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_DEDUP_TTL_SECONDS: %w", err)
	}
	cfg.ViewDedupTTL = time.Duration(viewDedupSeconds) * time.Second

	// Rate Limiting
	if cfg.RateLimitGuestBucketSize, err = getInt("RATE_LIMIT_GUEST_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitGuestRefillRate, err = getInt("RATE_LIMIT_GUEST_REFILL_RATE", "5"); err != nil {
		return nil, err
	}
	if cfg.RateLimitUserBucketSize, err = getInt("RATE_LIMIT_USER_BUCKET_SIZE", "40"); err != nil {
		return nil, err
	}
	if cfg.RateLimitUserRefillRate, err = getInt("RATE_LIMIT_USER_REFILL_RATE", "10"); err != nil {
		return nil, err
	}

	cfg.Seed = SeedConfig{
		AdminEmail:        getEnv("SEED_ADMIN_EMAIL", ""),
		AdminPassword:     getEnv("SEED_ADMIN_PASSWORD", ""),
		AdminName:         getEnv("SEED_ADMIN_NAME", "Administrator"),
		BankName:          getEnv("SEED_BANK_NAME", ""),
		BankAccountTitle:  getEnv("SEED_BANK_ACCOUNT_TITLE", ""),
		BankAccountNumber: getEnv("SEED_BANK_ACCOUNT_NUMBER", ""),
		BankIBAN:          getEnv("SEED_BANK_IBAN", ""),
		BankBranch:        getEnv("SEED_BANK_BRANCH", ""),
		BankInstructions:  getEnv("SEED_BANK_INSTRUCTIONS", ""),
	}

	return cfg, nil
}

// ImageMaxSizeBytes is the upload size limit in bytes.
func (c *Config) ImageMaxSizeBytes() int64 {
	return int64(c.ImageMaxSizeMB) * 1024 * 1024
}
