package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	// Empty values fall back to in-memory idempotency and no archive.
	RedisAddr string
	MySQLDSN  string

	WorkerCount     int
	QueueSize       int
	ShutdownTimeout time.Duration

	AdminUsername string
	AdminName     string

	LogFormat         string
	SeedCatalog       bool
	StrictTransitions bool
}

func Load() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),

		RedisAddr: getenv("REDIS_ADDR", ""),
		MySQLDSN:  getenv("MYSQL_DSN", ""),

		WorkerCount:     parseInt(getenv("WORKER_COUNT", "4"), 4),
		QueueSize:       parseInt(getenv("QUEUE_SIZE", "1024"), 1024),
		ShutdownTimeout: parseDuration(getenv("SHUTDOWN_TIMEOUT", "5s"), 5*time.Second),

		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminName:     getenv("ADMIN_NAME", "Administrator"),

		LogFormat:         getenv("LOG_FORMAT", "json"),
		SeedCatalog:       parseBool(getenv("SEED_CATALOG", "true"), true),
		StrictTransitions: parseBool(getenv("STRICT_TRANSITIONS", "false"), false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
