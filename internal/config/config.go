package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string
	Env  string

	StoreDriver string
	StorePath   string
	DBSource    string

	CORSOrigins []string

	ImportAliasesFile string
	ImportRequireCNI  bool

	PeriodsCron string

	BusinessName string
	Currency     string
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	requireCNI, err := boolEnv("IMPORT_REQUIRE_CNI", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              env("SERVER_PORT", "8080"),
		Env:               env("ENVIRONMENT", "development"),
		StoreDriver:       strings.ToLower(env("STORE_DRIVER", DriverJSON)),
		StorePath:         env("STORE_PATH", "data/db.json"),
		DBSource:          os.Getenv("DB_SOURCE"),
		CORSOrigins:       splitList(env("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		ImportAliasesFile: os.Getenv("IMPORT_ALIASES_FILE"),
		ImportRequireCNI:  requireCNI,
		PeriodsCron:       env("PERIODS_CRON", "0 2 * * *"),
		BusinessName:      env("BUSINESS_NAME", "Gestion Locative"),
		Currency:          env("CURRENCY", "FCFA"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver-specific requirements.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverJSON, DriverSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for the %s store", c.StoreDriver)
		}
	case DriverPostgres:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE environment variable is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
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
