// Package config reads loader settings from the environment.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BETTERREAD"

const (
	DefaultAuthorsDump = "ol_dump_authors_latest.txt.gz"
	DefaultWorksDump   = "ol_dump_works_latest.txt.gz"
	DefaultStoreDSN    = "betterread.db"
)

type (
	Config struct {
		Authors  Dump
		Works    Dump
		StoreDSN string // SQLite path, or a postgres:// URL
		LogLevel string
	}

	// Dump configures one pipeline.
	Dump struct {
		Enabled bool
		Path    string
		URL     string // optional download source used when Path is missing
		Skip    int
		Limit   int // 0 means no limit
	}
)

// LoadEnvFiles loads .env and .env.local from the working directory. Values
// already present in the environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds a Config from BETTERREAD_* environment variables.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("authors_dump", DefaultAuthorsDump)
	v.SetDefault("authors_dump_url", "")
	v.SetDefault("authors_skip", 0)
	v.SetDefault("authors_limit", 0)
	v.SetDefault("load_authors", true)

	v.SetDefault("works_dump", DefaultWorksDump)
	v.SetDefault("works_dump_url", "")
	v.SetDefault("works_skip", 0)
	v.SetDefault("works_limit", 0)
	v.SetDefault("load_works", true)

	v.SetDefault("store_dsn", DefaultStoreDSN)
	v.SetDefault("log_level", "info")

	return &Config{
		Authors: Dump{
			Enabled: v.GetBool("LOAD_AUTHORS"),
			Path:    v.GetString("AUTHORS_DUMP"),
			URL:     v.GetString("AUTHORS_DUMP_URL"),
			Skip:    v.GetInt("AUTHORS_SKIP"),
			Limit:   v.GetInt("AUTHORS_LIMIT"),
		},
		Works: Dump{
			Enabled: v.GetBool("LOAD_WORKS"),
			Path:    v.GetString("WORKS_DUMP"),
			URL:     v.GetString("WORKS_DUMP_URL"),
			Skip:    v.GetInt("WORKS_SKIP"),
			Limit:   v.GetInt("WORKS_LIMIT"),
		},
		StoreDSN: v.GetString("STORE_DSN"),
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

// IsPostgres reports whether StoreDSN selects the PostgreSQL store.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.StoreDSN, "postgres://") || strings.HasPrefix(c.StoreDSN, "postgresql://")
}
