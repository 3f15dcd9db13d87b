package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"SERVER_PORT", "ENVIRONMENT", "STORE_DRIVER", "STORE_PATH", "DB_SOURCE", "CORS_ORIGINS", "IMPORT_REQUIRE_CNI", "PERIODS_CRON", "CURRENCY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverJSON, cfg.StoreDriver)
	assert.Equal(t, "data/db.json", cfg.StorePath)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.ImportRequireCNI)
	assert.Equal(t, "0 2 * * *", cfg.PeriodsCron)
	assert.Equal(t, "FCFA", cfg.Currency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("STORE_PATH", "/tmp/rent.db")
	t.Setenv("CORS_ORIGINS", " https://app.example.sn , ")
	t.Setenv("IMPORT_REQUIRE_CNI", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/rent.db", cfg.StorePath)
	assert.Equal(t, []string{"https://app.example.sn"}, cfg.CORSOrigins)
	assert.True(t, cfg.ImportRequireCNI)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_SOURCE", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DB_SOURCE")

	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "json")
	t.Setenv("IMPORT_REQUIRE_CNI", "maybe")
	_, err = Load()
	assert.ErrorContains(t, err, "IMPORT_REQUIRE_CNI")
}
