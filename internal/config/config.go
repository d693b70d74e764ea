/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
	DatabaseFile     DatabaseBackend = "file"
)

// Archive backend selection.
type ArchiveBackend string

const (
	ArchiveNone ArchiveBackend = "none"
	ArchiveFS   ArchiveBackend = "fs"
	ArchiveS3   ArchiveBackend = "s3"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend        DatabaseBackend
	DBDSN            string
	ScheduleFilePath string // used when DBBackend is "file"

	// Engine
	BufferMinutes int // mandatory gap between consecutive blocks

	// Predictor gateway
	PredictorURL          string
	PredictorTimeout      time.Duration
	PredictorFeaturesPath string

	// Redis (schedule cache + cross-instance event relay)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	InstanceID    string

	// Snapshot archive
	ArchiveBackend ArchiveBackend
	ArchiveDir     string

	// S3 Object Storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"EIR_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"EIR_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"EIR_HTTP_PORT"}, 8080),
		MetricsBind: getEnvAny([]string{"EIR_METRICS_BIND"}, "127.0.0.1:9000"),

		DBBackend:        DatabaseBackend(getEnvAny([]string{"EIR_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:            getEnvAny([]string{"EIR_DB_DSN"}, "eir_schedule.db"),
		ScheduleFilePath: getEnvAny([]string{"EIR_SCHEDULE_FILE"}, "./data/schedule.json"),

		BufferMinutes: getEnvIntAny([]string{"EIR_SCHEDULE_BUFFER_MINUTES"}, 10),

		PredictorURL:          getEnvAny([]string{"EIR_PREDICTOR_URL"}, ""),
		PredictorTimeout:      time.Duration(getEnvIntAny([]string{"EIR_PREDICTOR_TIMEOUT_MS"}, 3000)) * time.Millisecond,
		PredictorFeaturesPath: getEnvAny([]string{"EIR_PREDICTOR_FEATURES_PATH"}, ""),

		RedisAddr:     getEnvAny([]string{"EIR_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"EIR_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"EIR_REDIS_DB"}, 0),
		CacheTTL:      time.Duration(getEnvIntAny([]string{"EIR_CACHE_TTL_SECONDS"}, 300)) * time.Second,
		InstanceID:    getEnvAny([]string{"EIR_INSTANCE_ID"}, ""),

		ArchiveBackend: ArchiveBackend(getEnvAny([]string{"EIR_ARCHIVE_BACKEND"}, string(ArchiveNone))),
		ArchiveDir:     getEnvAny([]string{"EIR_ARCHIVE_DIR"}, "./data/archive"),

		// S3 Object Storage configuration
		S3AccessKeyID:     getEnvAny([]string{"EIR_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"EIR_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"EIR_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"EIR_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"EIR_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"EIR_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"EIR_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"EIR_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"EIR_TRACING_SAMPLE_RATE"}, 1.0),
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite, DatabaseFile:
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBBackend != DatabaseFile && cfg.DBDSN == "" {
		return nil, fmt.Errorf("EIR_DB_DSN must be provided for backend %q", cfg.DBBackend)
	}

	if cfg.DBBackend == DatabaseFile && cfg.ScheduleFilePath == "" {
		return nil, fmt.Errorf("EIR_SCHEDULE_FILE must be provided for the file backend")
	}

	if cfg.BufferMinutes < 0 {
		return nil, fmt.Errorf("EIR_SCHEDULE_BUFFER_MINUTES must not be negative")
	}

	switch cfg.ArchiveBackend {
	case ArchiveNone, ArchiveFS, ArchiveS3:
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.ArchiveBackend)
	}

	if cfg.ArchiveBackend == ArchiveS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("EIR_S3_BUCKET must be provided for the s3 archive backend")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use EIR_ENV",
		"PREDICTOR_URL":       "use EIR_PREDICTOR_URL",
		"TRACING_ENABLED":     "use EIR_TRACING_ENABLED",
		"OTLP_ENDPOINT":       "use EIR_OTLP_ENDPOINT",
		"TRACING_SAMPLE_RATE": "use EIR_TRACING_SAMPLE_RATE",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
