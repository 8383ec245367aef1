package harvest

import (
	"context"
	"database/sql"
	"fmt"

	"steamharvest-backend/lib/sqliteutil"
	"steamharvest-backend/services/harvest/db"
)

// Store is the sqlite sink for the normalized tables. Loads are
// idempotent: dimension ids are never reassigned and re-loading the
// same tables leaves the database unchanged.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	sqlDB, err := sqliteutil.OpenDB(db.Schema, path)
	if err != nil {
		return nil, fmt.Errorf("open harvest store: %w", err)
	}
	return &Store{db: sqlDB}, nil
}

func NewStore(sqlDB *sql.DB) *Store { return &Store{db: sqlDB} }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// ReadDimensions loads the dimension values already persisted, keyed
// the way the normalizer deduplicates them. Languages key on the
// canonical name, not the stored first-seen spelling.
func (s *Store) ReadDimensions(ctx context.Context) (DimensionSeed, error) {
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

func (s *Store) readDim(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query)
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

// Load upserts all seven tables in one transaction, dimensions first
// so junction foreign keys always resolve. Existing dimension rows are
// left untouched; app facts and tag vote counts take the new values.
func (s *Store) Load(ctx context.Context, tables Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		table string
		run   func() error
	}{
		{"genres", func() error { return loadGenres(ctx, tx, tables.Genres) }},
		{"languages", func() error { return loadLanguages(ctx, tx, tables.Languages) }},
		{"tags", func() error { return loadTags(ctx, tx, tables.Tags) }},
		{"apps", func() error { return loadApps(ctx, tx, tables.Apps) }},
		{"apps_genres", func() error { return loadAppsGenres(ctx, tx, tables.AppsGenres) }},
		{"apps_languages", func() error { return loadAppsLanguages(ctx, tx, tables.AppsLanguages) }},
		{"apps_tags", func() error { return loadAppsTags(ctx, tx, tables.AppsTags) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return &LoadError{Table: step.table, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func loadGenres(ctx context.Context, tx *sql.Tx, rows []Dimension) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO genres (id_genre, genre) VALUES (?, ?) ON CONFLICT (id_genre) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Value); err != nil {
			return err
		}
	}
	return nil
}

func loadLanguages(ctx context.Context, tx *sql.Tx, rows []Language) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO languages (id_language, language, normalized_language) VALUES (?, ?, ?) ON CONFLICT (id_language) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Value, row.Normalized); err != nil {
			return err
		}
	}
	return nil
}

func loadTags(ctx context.Context, tx *sql.Tx, rows []Dimension) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO tags (id_tag, tag) VALUES (?, ?) ON CONFLICT (id_tag) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Value); err != nil {
			return err
		}
	}
	return nil
}

func loadApps(ctx context.Context, tx *sql.Tx, rows []App) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO apps (
			id_app, name, developer, publisher,
			owners_min, owners_max,
			average_forever_hs, average_2weeks_hs,
			median_forever_hs, median_2weeks_hs,
			peak_ccu_yesterday, price_usd, initial_price_usd, discount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
			discount = excluded.discount`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.IDApp, row.Name, row.Developer, row.Publisher,
			row.OwnersMin, row.OwnersMax,
			row.AverageForeverHs, row.Average2WeeksHs,
			row.MedianForeverHs, row.Median2WeeksHs,
			row.PeakCCUYesterday, row.PriceUSD, row.InitialPriceUSD, row.Discount,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadAppsGenres(ctx context.Context, tx *sql.Tx, rows []AppGenre) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO apps_genres (id_app, id_genre) VALUES (?, ?) ON CONFLICT (id_app, id_genre) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.IDApp, row.IDGenre); err != nil {
			return err
		}
	}
	return nil
}

func loadAppsLanguages(ctx context.Context, tx *sql.Tx, rows []AppLanguage) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO apps_languages (id_app, id_language) VALUES (?, ?) ON CONFLICT (id_app, id_language) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.IDApp, row.IDLanguage); err != nil {
			return err
		}
	}
	return nil
}

func loadAppsTags(ctx context.Context, tx *sql.Tx, rows []AppTag) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO apps_tags (id_app, id_tag, count) VALUES (?, ?, ?) ON CONFLICT (id_app, id_tag) DO UPDATE SET count = excluded.count")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.IDApp, row.IDTag, row.Count); err != nil {
			return err
		}
	}
	return nil
}
