package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/services/harvest"
)

func init() {
	rootCmd.AddCommand(transformCmd)
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Normalizes the raw cache into relational tables and exports them as CSV.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		store, err := harvest.OpenStore(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer store.Close()

		tables := normalizeCache(ctx, cfg, store)
		if err := harvest.ExportCSV(cfg.OutputDir, tables); err != nil {
			serviceutil.Fatal("failed to export tables", err)
		}
		slog.Info("exported tables", "dir", cfg.OutputDir)
	},
}

// normalizeCache reads the raw cache and normalizes it, seeding
// dimension ids from the sink so repeat runs never reassign them.
func normalizeCache(ctx context.Context, cfg Config, sink harvest.Sink) harvest.Tables {
	recs, err := harvest.ReadRawCache(cfg.rawCachePath())
	if err != nil {
		serviceutil.Fatal("failed to read raw cache", err)
	}
	seed, err := sink.ReadDimensions(ctx)
	if err != nil {
		serviceutil.Fatal("failed to read dimension ids", err)
	}

	normalizer := harvest.NewNormalizer(seed)
	for _, rec := range recs {
		normalizer.Add(rec)
	}
	tables := normalizer.Tables()
	slog.Info("normalized raw cache",
		"records", len(recs),
		"apps", len(tables.Apps),
		"dropped", normalizer.Dropped(),
	)
	return tables
}
