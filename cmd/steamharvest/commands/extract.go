package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/services/harvest"
)

var refreshCatalog *bool

func init() {
	refreshCatalog = extractCmd.Flags().Bool("refresh-catalog", false,
		"Re-download the Steam app list even if a cached copy exists.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetches the Steam catalog and sweeps SteamSpy details into the raw cache.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		store, err := harvest.OpenStore(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer store.Close()

		catalog := fetchCatalog(ctx, cfg, *refreshCatalog)
		summary := sweep(ctx, cfg, store, catalog)
		if len(summary.FailedIDs) > 0 {
			slog.Warn("some apps were not collected", "count", len(summary.FailedIDs))
		}
	},
}

func fetchCatalog(ctx context.Context, cfg Config, refresh bool) []steam.App {
	if !refresh {
		catalog, err := harvest.ReadCatalogCSV(cfg.catalogPath())
		if err == nil {
			slog.Info("using cached catalog", "apps", len(catalog), "path", cfg.catalogPath())
			return catalog
		}
		if !os.IsNotExist(err) {
			slog.Warn("catalog cache unreadable, re-downloading", "err", err)
		}
	}

	catalog, err := newSteamClient(cfg).GetAppList(ctx)
	if err != nil {
		serviceutil.Fatal("failed to fetch steam app list", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		serviceutil.Fatal("failed to create output dir", err)
	}
	if err := harvest.WriteCatalogCSV(cfg.catalogPath(), catalog); err != nil {
		serviceutil.Fatal("failed to cache catalog", err)
	}
	slog.Info("downloaded catalog", "apps", len(catalog))
	return catalog
}

func sweep(ctx context.Context, cfg Config, store *harvest.Store, catalog []steam.App) harvest.Summary {
	cache, err := harvest.OpenRawCache(cfg.rawCachePath())
	if err != nil {
		serviceutil.Fatal("failed to open raw cache", err)
	}
	defer cache.Close()

	collector := &harvest.Collector{
		Source:  newSteamSpyClient(cfg),
		Ledger:  harvest.NewLedger(store.DB()),
		Cache:   cache,
		Workers: cfg.Workers,
	}
	summary, err := collector.Sweep(ctx, catalog)
	if err != nil {
		serviceutil.Fatal("sweep interrupted", err)
	}
	return summary
}
