package harvest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"steamharvest-backend/services/harvest/db"
)

// PGStore loads the normalized tables into Postgres. The upsert
// semantics match the sqlite store; rows go over the wire in batches
// rather than one statement per row.
type PGStore struct {
	pool *pgxpool.Pool
}

func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() { s.pool.Close() }

// EnsureSchema applies the idempotent table definitions.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, db.PostgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (s *PGStore) ReadDimensions(ctx context.Context) (DimensionSeed, error) {
	seed := DimensionSeed{
		Genres:    map[string]int64{},
		Languages: map[string]int64{},
		Tags:      map[string]int64{},
	}
	if err := s.readDim(ctx, "SELECT genre, id_genre FROM genres", seed.Genres); err != nil {
		return seed, err
	}
	if err := s.readDim(ctx, "SELECT normalized_language, id_language FROM languages", seed.Languages); err != nil {
		return seed, err
	}
	if err := s.readDim(ctx, "SELECT tag, id_tag FROM tags", seed.Tags); err != nil {
		return seed, err
	}
	return seed, nil
}

func (s *PGStore) readDim(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var value string
		var id int64
		if err := rows.Scan(&value, &id); err != nil {
			return err
		}
		into[value] = id
	}
	return rows.Err()
}

// Load upserts all seven tables in one transaction, dimensions first.
func (s *PGStore) Load(ctx context.Context, tables Tables) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		table string
		batch *pgx.Batch
	}{
		{"genres", genreBatch(tables.Genres)},
		{"languages", languageBatch(tables.Languages)},
		{"tags", tagBatch(tables.Tags)},
		{"apps", appBatch(tables.Apps)},
		{"apps_genres", appGenreBatch(tables.AppsGenres)},
		{"apps_languages", appLanguageBatch(tables.AppsLanguages)},
		{"apps_tags", appTagBatch(tables.AppsTags)},
	}
	for _, step := range steps {
		if step.batch.Len() == 0 {
			continue
		}
		if err := tx.SendBatch(ctx, step.batch).Close(); err != nil {
			return &LoadError{Table: step.table, Err: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func genreBatch(rows []Dimension) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO genres (id_genre, genre) VALUES ($1, $2) ON CONFLICT (id_genre) DO NOTHING",
			row.ID, row.Value,
		)
	}
	return batch
}

func languageBatch(rows []Language) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO languages (id_language, language, normalized_language) VALUES ($1, $2, $3) ON CONFLICT (id_language) DO NOTHING",
			row.ID, row.Value, row.Normalized,
		)
	}
	return batch
}

func tagBatch(rows []Dimension) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO tags (id_tag, tag) VALUES ($1, $2) ON CONFLICT (id_tag) DO NOTHING",
			row.ID, row.Value,
		)
	}
	return batch
}

func appBatch(rows []App) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO apps (
				id_app, name, developer, publisher,
				owners_min, owners_max,
				average_forever_hs, average_2weeks_hs,
				median_forever_hs, median_2weeks_hs,
				peak_ccu_yesterday, price_usd, initial_price_usd, discount
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id_app) DO UPDATE SET
				name = excluded.name,
				developer = excluded.developer,
				publisher = excluded.publisher,
				owners_min = excluded.owners_min,
				owners_max = excluded.owners_max,
				average_forever_hs = excluded.average_forever_hs,
				average_2weeks_hs = excluded.average_2weeks_hs,
				median_forever_hs = excluded.median_forever_hs,
				median_2weeks_hs = excluded.median_2weeks_hs,
				peak_ccu_yesterday = excluded.peak_ccu_yesterday,
				price_usd = excluded.price_usd,
				initial_price_usd = excluded.initial_price_usd,
				discount = excluded.discount`,
			row.IDApp, row.Name, row.Developer, row.Publisher,
			row.OwnersMin, row.OwnersMax,
			row.AverageForeverHs, row.Average2WeeksHs,
			row.MedianForeverHs, row.Median2WeeksHs,
			row.PeakCCUYesterday, row.PriceUSD, row.InitialPriceUSD, row.Discount,
		)
	}
	return batch
}

func appGenreBatch(rows []AppGenre) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO apps_genres (id_app, id_genre) VALUES ($1, $2) ON CONFLICT (id_app, id_genre) DO NOTHING",
			row.IDApp, row.IDGenre,
		)
	}
	return batch
}

func appLanguageBatch(rows []AppLanguage) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO apps_languages (id_app, id_language) VALUES ($1, $2) ON CONFLICT (id_app, id_language) DO NOTHING",
			row.IDApp, row.IDLanguage,
		)
	}
	return batch
}

func appTagBatch(rows []AppTag) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			"INSERT INTO apps_tags (id_app, id_tag, count) VALUES ($1, $2, $3) ON CONFLICT (id_app, id_tag) DO UPDATE SET count = excluded.count",
			row.IDApp, row.IDTag, row.Count,
		)
	}
	return batch
}
