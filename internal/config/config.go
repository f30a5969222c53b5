// Package config reads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/storefront/internal/logging"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	APIURL     string
	Timeout    time.Duration
	DBPath     string
	EntryRoute string

	Log logging.Config
}

// Defaults.
const (
	DefaultAPIURL     = "http://localhost:3000/api/v1"
	DefaultTimeoutMS  = 10000
	DefaultDBPath     = "storefront.db"
	DefaultEntryRoute = "/login"
)

// LoadDotEnv loads .env from the working directory if there is one. Values
// already in the environment win. Reports whether a file was loaded.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load reads configuration from the environment and performs minimal
// validation.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is Load with an injectable environment.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	cfg := Config{
		APIURL:     strings.TrimRight(fallback(get("STOREFRONT_API_URL"), DefaultAPIURL), "/"),
		DBPath:     fallback(get("STOREFRONT_DB"), DefaultDBPath),
		EntryRoute: fallback(get("STOREFRONT_ENTRY_ROUTE"), DefaultEntryRoute),
		Log: logging.Config{
			Level: strings.ToLower(strings.TrimSpace(get("LOG_LEVEL"))),
			Dev:   get("LOG_DEV") == "1",
			File:  strings.TrimSpace(get("LOG_FILE")),
		},
	}

	ms := fallback(get("STOREFRONT_TIMEOUT_MS"), strconv.Itoa(DefaultTimeoutMS))
	n, err := strconv.Atoi(ms)
	if err != nil || n <= 0 {
		return Config{}, fmt.Errorf("STOREFRONT_TIMEOUT_MS must be a positive integer, got %q", ms)
	}
	cfg.Timeout = time.Duration(n) * time.Millisecond

	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return Config{}, fmt.Errorf("STOREFRONT_API_URL must be an http(s) URL, got %q", cfg.APIURL)
	}
	if !strings.HasPrefix(cfg.EntryRoute, "/") {
		return Config{}, errors.New("STOREFRONT_ENTRY_ROUTE must start with /")
	}

	return cfg, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
