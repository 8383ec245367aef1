package harvest

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ledger records which apps have already been collected so an
// interrupted sweep resumes from where it stopped instead of starting
// over.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordCollected marks an app as done. Marking twice is a no-op.
func (l *Ledger) RecordCollected(ctx context.Context, appID int64) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collected_apps (id_app, collected_at) VALUES (?, ?)",
		appID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record collected app %d: %w", appID, err)
	}
	return nil
}

func (l *Ledger) IsCollected(ctx context.Context, appID int64) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM collected_apps WHERE id_app = ?", appID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query collected app %d: %w", appID, err)
	}
	return true, nil
}

// CollectedIDs returns the full set of already-collected app ids.
func (l *Ledger) CollectedIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id_app FROM collected_apps")
	if err != nil {
		return nil, fmt.Errorf("query collected apps: %w", err)
	}
	defer rows.Close()

	ids := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
