package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/services/harvest"
)

var loadToPostgres *bool

func init() {
	loadToPostgres = loadCmd.Flags().Bool("postgres", false,
		"Load into the postgres_dsn database instead of the local sqlite file.")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load [--postgres]",
	Short: "Normalizes the raw cache and upserts the tables into the database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		if *loadToPostgres {
			loadPostgres(ctx, cfg)
			return
		}

		store, err := harvest.OpenStore(cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer store.Close()

		tables := normalizeCache(ctx, cfg, store)
		if err := store.Load(ctx, tables); err != nil {
			fatalLoad(err)
		}
		slog.Info("load complete", "database", cfg.Database, "apps", len(tables.Apps))
	},
}

func loadPostgres(ctx context.Context, cfg Config) {
	if cfg.PostgresDSN == "" {
		serviceutil.Fatal("invalid config", errors.New("postgres_dsn is not set"))
	}
	pg, err := harvest.OpenPGStore(ctx, cfg.PostgresDSN)
	if err != nil {
		serviceutil.Fatal("failed to connect to postgres", err)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		serviceutil.Fatal("failed to apply schema", err)
	}

	// Seed from postgres itself so its dimension ids stay stable even
	// when it diverges from the local sqlite database.
	tables := normalizeCache(ctx, cfg, pg)

	if err := pg.Load(ctx, tables); err != nil {
		fatalLoad(err)
	}
	slog.Info("load complete", "database", "postgres", "apps", len(tables.Apps))
}

func fatalLoad(err error) {
	var loadErr *harvest.LoadError
	if errors.As(err, &loadErr) {
		slog.Error("load aborted, transaction rolled back", "table", loadErr.Table)
	}
	serviceutil.Fatal("failed to load tables", err)
}
