package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/services/harvest"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the full pipeline: extract, transform and load into the local database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		store, err := harvest.OpenStore(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer store.Close()

		t1 := time.Now()
		catalog := fetchCatalog(ctx, cfg, false)
		summary := sweep(ctx, cfg, store, catalog)

		tables := normalizeCache(ctx, cfg, store)
		if err := harvest.ExportCSV(cfg.OutputDir, tables); err != nil {
			serviceutil.Fatal("failed to export tables", err)
		}
		if err := store.Load(ctx, tables); err != nil {
			fatalLoad(err)
		}

		slog.Info("pipeline finished",
			"seconds", time.Since(t1).Seconds(),
			"collected", summary.Succeeded,
			"failed", len(summary.FailedIDs),
			"apps_loaded", len(tables.Apps),
		)
	},
}
