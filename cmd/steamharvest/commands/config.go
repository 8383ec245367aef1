package commands

import (
	"os"
	"path/filepath"
	"time"

	"steamharvest-backend/lib/configutil"
	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/scrapers/steamspy"
	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/lib/upstream"
)

type UpstreamConfig struct {
	BaseURL       string `json:"base_url"`
	MinIntervalMs int    `json:"min_interval_ms"`
	MaxRetries    int    `json:"max_retries"`
}

type Config struct {
	Steam    UpstreamConfig `json:"steam"`
	SteamSpy UpstreamConfig `json:"steamspy"`
	// Workers fetching app details concurrently; they all share the
	// steamspy rate limiter, so this bounds in-flight requests, not
	// request rate.
	Workers     int    `json:"workers"`
	OutputDir   string `json:"output_dir"`
	Database    string `json:"database"`
	PostgresDSN string `json:"postgres_dsn"`
	// DebugDumpDir captures raw HTTP exchanges for inspection.
	DebugDumpDir string `json:"debug_dump_dir"`
}

func readConfig() Config {
	// every field has a default, so a missing config file is fine
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.Steam.BaseURL == "" {
		cfg.Steam.BaseURL = "https://api.steampowered.com"
	}
	if cfg.SteamSpy.BaseURL == "" {
		cfg.SteamSpy.BaseURL = "https://steamspy.com"
	}
	if cfg.SteamSpy.MinIntervalMs <= 0 {
		// SteamSpy asks for at most one request per second.
		cfg.SteamSpy.MinIntervalMs = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "harvest-data"
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.OutputDir, "harvest.db")
	}
	return cfg
}

func (c Config) catalogPath() string {
	return filepath.Join(c.OutputDir, "steam_app_list.csv")
}

func (c Config) rawCachePath() string {
	return filepath.Join(c.OutputDir, "steamspy_raw.jsonl")
}

func newSteamClient(cfg Config) steam.Client {
	return steam.NewClient(upstream.NewClient(upstream.Options{
		BaseURL:     cfg.Steam.BaseURL,
		MinInterval: time.Duration(cfg.Steam.MinIntervalMs) * time.Millisecond,
		MaxRetries:  cfg.Steam.MaxRetries,
		TracerName:  "scrapers/steam",
	}))
}

func newSteamSpyClient(cfg Config) steamspy.Client {
	return steamspy.NewClient(upstream.NewClient(upstream.Options{
		BaseURL:      cfg.SteamSpy.BaseURL,
		MinInterval:  time.Duration(cfg.SteamSpy.MinIntervalMs) * time.Millisecond,
		MaxRetries:   cfg.SteamSpy.MaxRetries,
		TracerName:   "scrapers/steamspy",
		DebugDumpDir: cfg.DebugDumpDir,
	}))
}
