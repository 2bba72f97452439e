package config

import (
	"fmt"
	"os"
	"strconv"
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

	// Server
	ApiPort        string
	ServiceApiPort string

	// Rent collection
	PeriodStaleAfter            time.Duration
	LateFeeGraceDays            int
	ProblemTenantMinAvgDaysLate float64
	ProblemTenantLimit          int
	AnalyticsRatePolicy         string
	AnalyticsCacheTTL           time.Duration
	RiskWindowMonths            int

	// Exports
	ExportStorage         string // local | s3
	ExportDir             string
	ExportTTL             time.Duration
	ExportTimeout         time.Duration
	ExportPdfRowsPerPage  int
	ExportCleanupCron     string
	PeriodSyncCron        string
	ExportRateLimitPerMin int
	ExportRateLimitBurst  int

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string // stdout | file | both
	LogPath   string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

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
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "rentcollection")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AnalyticsRatePolicy = getEnv("ANALYTICS_RATE_POLICY", "mean")
	if cfg.AnalyticsRatePolicy != "mean" && cfg.AnalyticsRatePolicy != "weighted" {
		return nil, fmt.Errorf("invalid ANALYTICS_RATE_POLICY: %q (want mean or weighted)", cfg.AnalyticsRatePolicy)
	}
	cfg.ExportStorage = getEnv("EXPORT_STORAGE", "local")
	if cfg.ExportStorage != "local" && cfg.ExportStorage != "s3" {
		return nil, fmt.Errorf("invalid EXPORT_STORAGE: %q (want local or s3)", cfg.ExportStorage)
	}
	cfg.ExportDir = getEnv("EXPORT_DIR", "uploads/exports")
	cfg.ExportCleanupCron = getEnv("EXPORT_CLEANUP_CRON", "@hourly")
	cfg.PeriodSyncCron = getEnv("PERIOD_SYNC_CRON", "@every 1h")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	if cfg.ExportStorage == "s3" && cfg.AwsS3Bucket == "" {
		return nil, fmt.Errorf("missing required environment variable: AWS_S3_BUCKET (EXPORT_STORAGE=s3)")
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.LogOutput = getEnv("LOG_OUTPUT", "stdout")
	cfg.LogPath = getEnv("LOG_PATH", "./logs")

	// Load numeric and time duration values with defaults and parsing
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.PeriodStaleAfter, err = getSeconds("PERIOD_STALE_AFTER_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.LateFeeGraceDays, err = getInt("LATE_FEE_GRACE_DAYS", "5"); err != nil {
		return nil, err
	}
	cfg.ProblemTenantMinAvgDaysLate, err = strconv.ParseFloat(getEnv("PROBLEM_TENANT_MIN_AVG_DAYS_LATE", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROBLEM_TENANT_MIN_AVG_DAYS_LATE: %w", err)
	}
	if cfg.ProblemTenantLimit, err = getInt("PROBLEM_TENANT_LIMIT", "10"); err != nil {
		return nil, err
	}
	if cfg.AnalyticsCacheTTL, err = getSeconds("ANALYTICS_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}
	if cfg.RiskWindowMonths, err = getInt("RISK_WINDOW_MONTHS", "6"); err != nil {
		return nil, err
	}

	exportTTLHours, err := strconv.ParseInt(getEnv("EXPORT_TTL_HOURS", "168"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPORT_TTL_HOURS: %w", err)
	}
	cfg.ExportTTL = time.Duration(exportTTLHours) * time.Hour

	if cfg.ExportTimeout, err = getSeconds("EXPORT_TIMEOUT_SECONDS", "600"); err != nil {
		return nil, err
	}
	if cfg.ExportPdfRowsPerPage, err = getInt("EXPORT_PDF_ROWS_PER_PAGE", "25"); err != nil {
		return nil, err
	}
	if cfg.ExportPdfRowsPerPage <= 0 {
		return nil, fmt.Errorf("invalid EXPORT_PDF_ROWS_PER_PAGE: must be positive")
	}
	if cfg.ExportRateLimitPerMin, err = getInt("EXPORT_RATE_LIMIT_PER_MINUTE", "10"); err != nil {
		return nil, err
	}
	if cfg.ExportRateLimitBurst, err = getInt("EXPORT_RATE_LIMIT_BURST", "5"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns a Config with every tunable at its default value and no
// connection settings. Used by tests and tools that don't read the environment.
func Defaults() *Config {
	return &Config{
		RunMode:                     "all",
		MongoDbName:                 "rentcollection",
		PeriodStaleAfter:            time.Hour,
		LateFeeGraceDays:            5,
		ProblemTenantMinAvgDaysLate: 5,
		ProblemTenantLimit:          10,
		AnalyticsRatePolicy:         "mean",
		AnalyticsCacheTTL:           time.Minute,
		RiskWindowMonths:            6,
		ExportStorage:               "local",
		ExportDir:                   "uploads/exports",
		ExportTTL:                   7 * 24 * time.Hour,
		ExportTimeout:               10 * time.Minute,
		ExportPdfRowsPerPage:        25,
		ExportCleanupCron:           "@hourly",
		PeriodSyncCron:              "@every 1h",
		ExportRateLimitPerMin:       10,
		ExportRateLimitBurst:        5,
		LogLevel:                    "info",
		LogFormat:                   "text",
		LogOutput:                   "stdout",
		LogPath:                     "./logs",
	}
}
