// Package config holds the explicit configuration record for the Carbon
// Portal client. Nothing in the module probes the environment or the
// filesystem at import time; applications build a Config (usually via
// FromEnv) and pass it down.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects between the server-side filesystem layout and local test
// fixtures.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

// Production filesystem roots as mounted on the portal's Jupyter hosts.
const (
	productionLocalDataRoot = "/data/dataAppStorage"
	productionStiltRoot     = "/data/stiltweb/stations"
	productionFootprintRoot = "/data/stiltweb/slots"
)

// Default portal endpoints.
const (
	DefaultPortalHost = "https://cpauth.icos-cp.eu"
	DefaultMetaHost   = "https://meta.icos-cp.eu"
	DefaultDataHost   = "https://data.icos-cp.eu"
	DefaultStiltHost  = "https://stilt.icos-cp.eu"
	DefaultHandleURL  = "https://hdl.handle.net/api/handles"
)

// Config is the configuration record shared by the digital-object and STILT
// components.
type Config struct {
	// Mode selects production paths or test fixtures.
	Mode Mode

	// StiltRoot is the directory of per-station symlinks.
	StiltRoot string

	// FootprintRoot is the directory of per-location slot trees.
	FootprintRoot string

	// LocalDataRoot is the directory of locally mirrored .cpb files.
	LocalDataRoot string

	// PortalHost is the authentication host (login, whoami).
	PortalHost string

	// MetaHost serves landing pages and metadata documents.
	MetaHost string

	// DataHost serves the secured tabular endpoint and the usage log.
	DataHost string

	// StiltHost serves the STILT result endpoints.
	StiltHost string

	// HandleURL is the handle resolution service base URL.
	HandleURL string

	// HTTPTimeout bounds individual outbound requests (default 10s).
	HTTPTimeout time.Duration

	// UsageTelemetry enables the usage-log POST after successful data
	// fetches.
	UsageTelemetry bool
}

// Default returns the test-mode configuration with fixture roots relative to
// the working directory.
func Default() Config {
	return Config{
		Mode:           ModeTest,
		StiltRoot:      "testdata/stilt/stations",
		FootprintRoot:  "testdata/stilt/slots",
		LocalDataRoot:  "testdata/data",
		PortalHost:     DefaultPortalHost,
		MetaHost:       DefaultMetaHost,
		DataHost:       DefaultDataHost,
		StiltHost:      DefaultStiltHost,
		HandleURL:      DefaultHandleURL,
		HTTPTimeout:    10 * time.Second,
		UsageTelemetry: true,
	}
}

// FromEnv builds a Config from CPCLIENT_* environment variables, loading a
// .env file first if one is present. MODE=production selects the server-side
// filesystem roots; any other value keeps the fixture roots.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Default()

	if getEnvOrDefault("MODE", "") == string(ModeProduction) {
		cfg.Mode = ModeProduction
		cfg.StiltRoot = productionStiltRoot
		cfg.FootprintRoot = productionFootprintRoot
		cfg.LocalDataRoot = productionLocalDataRoot
	}

	cfg.StiltRoot = getEnvOrDefault("CPCLIENT_STILT_ROOT", cfg.StiltRoot)
	cfg.FootprintRoot = getEnvOrDefault("CPCLIENT_FOOTPRINT_ROOT", cfg.FootprintRoot)
	cfg.LocalDataRoot = getEnvOrDefault("CPCLIENT_LOCAL_DATA_ROOT", cfg.LocalDataRoot)
	cfg.PortalHost = getEnvOrDefault("CPCLIENT_PORTAL_HOST", cfg.PortalHost)
	cfg.MetaHost = getEnvOrDefault("CPCLIENT_META_HOST", cfg.MetaHost)
	cfg.DataHost = getEnvOrDefault("CPCLIENT_DATA_HOST", cfg.DataHost)
	cfg.StiltHost = getEnvOrDefault("CPCLIENT_STILT_HOST", cfg.StiltHost)
	cfg.HandleURL = getEnvOrDefault("CPCLIENT_HANDLE_URL", cfg.HandleURL)

	if v := getEnvOrDefault("CPCLIENT_HTTP_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := getEnvOrDefault("CPCLIENT_USAGE_TELEMETRY", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UsageTelemetry = b
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
