package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                string
	DBDriver            string
	DBURL               string
	DBPath              string
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int
	DBMaxConns          int
	DBMinConns          int
	DBMaxIdleSecs       int
	DBMaxLifeSecs       int
	DBConnTimeoutSecs   int
	DBStatementCache    int
	CORSTrustedOrigins  []string
	LegacyPartialUpdate bool
	LogFile             string
	LogMaxSizeMB        int
	LogMaxBackups       int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "5000"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBURL:               os.Getenv("DB_URL"),
		DBPath:              getEnv("DB_PATH", "watchlist.db"),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:          getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:       getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:       getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:   getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:    getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		CORSTrustedOrigins:  getEnvList("CORS_TRUSTED_ORIGINS", []string{"*"}),
		LegacyPartialUpdate: getEnvBool("LEGACY_PARTIAL_UPDATE", false),
		LogFile:             os.Getenv("LOG_FILE"),
		LogMaxSizeMB:        getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 3),
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when DB_DRIVER is %s", DriverPostgres)
		}
	case DriverSQLite:
		if cfg.DBPath == "" {
			return Config{}, fmt.Errorf("DB_PATH is required when DB_DRIVER is %s", DriverSQLite)
		}
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverPostgres, DriverSQLite, cfg.DBDriver)
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.LogMaxSizeMB <= 0 {
		return Config{}, fmt.Errorf("LOG_MAX_SIZE_MB must be positive")
	}
	if cfg.LogMaxBackups < 0 {
		return Config{}, fmt.Errorf("LOG_MAX_BACKUPS must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvList splits on commas and whitespace.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	fields := strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return fallback
	}
	return fields
}
