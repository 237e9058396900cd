// Package config reads rentledger settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvStorageDriver   = "RENTLEDGER_STORAGE_DRIVER"
	EnvSQLitePath      = "RENTLEDGER_SQLITE_PATH"
	EnvPostgresDSN     = "RENTLEDGER_POSTGRES_DSN"
	EnvSessionDriver   = "RENTLEDGER_SESSION_DRIVER"
	EnvSessionFile     = "RENTLEDGER_SESSION_FILE"
	EnvRedisAddr       = "RENTLEDGER_REDIS_ADDR"
	EnvRedisPassword   = "RENTLEDGER_REDIS_PASSWORD"
	EnvRedisDB         = "RENTLEDGER_REDIS_DB"
	EnvSessionTTL      = "RENTLEDGER_SESSION_TTL"
	EnvMetrics         = "RENTLEDGER_METRICS"
	EnvCurrency        = "RENTLEDGER_CURRENCY"
	EnvLogLevel        = "RENTLEDGER_LOG_LEVEL"
	EnvEnvFile         = "RENTLEDGER_ENV_FILE"
	EnvBlobDriver      = "RENTLEDGER_BLOB_DRIVER"
	EnvBlobFSRoot      = "RENTLEDGER_BLOB_FS_ROOT"
	EnvS3Bucket        = "RENTLEDGER_BLOB_S3_BUCKET"
	EnvS3Region        = "RENTLEDGER_BLOB_S3_REGION"
	EnvS3Endpoint      = "RENTLEDGER_BLOB_S3_ENDPOINT"
	EnvS3Prefix        = "RENTLEDGER_BLOB_S3_PREFIX"
	EnvS3PathStyle     = "RENTLEDGER_BLOB_S3_PATH_STYLE"
	defaultSessionFile = ".rentledger-session"
	defaultRedisAddr   = "localhost:6379"
	defaultCurrency    = "USD"
	defaultSessionTTL  = 7 * 24 * time.Hour
)

// Config holds every runtime setting.
type Config struct {
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string

	SessionDriver string
	SessionFile   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	BlobDriver   string
	BlobFSRoot   string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3Prefix     string
	S3PathStyle  bool
	S3AccessKey  string
	S3SecretKey  string
	S3SessionTok string

	Metrics  string
	Currency string
	LogLevel string
}

// Load reads the optional .env file (RENTLEDGER_ENV_FILE or ./.env) and then
// builds a Config from the environment. Values already present in the
// environment win over the file.
func Load() (Config, error) {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		StorageDriver: strings.ToLower(getenv(EnvStorageDriver, "sqlite")),
		SQLitePath:    os.Getenv(EnvSQLitePath),
		PostgresDSN:   os.Getenv(EnvPostgresDSN),
		SessionDriver: strings.ToLower(getenv(EnvSessionDriver, "file")),
		SessionFile:   getenv(EnvSessionFile, defaultSessionPath()),
		RedisAddr:     getenv(EnvRedisAddr, defaultRedisAddr),
		RedisPassword: os.Getenv(EnvRedisPassword),
		SessionTTL:    defaultSessionTTL,
		BlobDriver:    strings.ToLower(getenv(EnvBlobDriver, "fs")),
		BlobFSRoot:    os.Getenv(EnvBlobFSRoot),
		S3Bucket:      os.Getenv(EnvS3Bucket),
		S3Region:      os.Getenv(EnvS3Region),
		S3Endpoint:    os.Getenv(EnvS3Endpoint),
		S3Prefix:      os.Getenv(EnvS3Prefix),
		S3PathStyle:   strings.EqualFold(os.Getenv(EnvS3PathStyle), "true"),
		S3AccessKey:   os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3SessionTok:  os.Getenv("AWS_SESSION_TOKEN"),
		Metrics:       strings.ToLower(os.Getenv(EnvMetrics)),
		Currency:      strings.ToUpper(getenv(EnvCurrency, defaultCurrency)),
		LogLevel:      os.Getenv(EnvLogLevel),
	}
	if raw := os.Getenv(EnvRedisDB); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		cfg.RedisDB = db
	}
	if raw := os.Getenv(EnvSessionTTL); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		cfg.SessionTTL = ttl
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return defaultSessionFile
	}
	return filepath.Join(home, defaultSessionFile)
}
