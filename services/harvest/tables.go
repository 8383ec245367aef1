// Package harvest drives the Steam catalog pipeline: sweeping per-app
// records from SteamSpy, normalizing them into fact/dimension/junction
// tables and upserting the result into a relational sink.
package harvest

import (
	"context"
	"fmt"
)

// App is one row of the fact table. Numeric fields are pointers
// because the upstream omits them or reports non-numeric sentinels;
// absent values load as SQL NULLs.
type App struct {
	IDApp            int64
	Name             string
	Developer        string
	Publisher        string
	OwnersMin        *int64
	OwnersMax        *int64
	AverageForeverHs *float64
	Average2WeeksHs  *float64
	MedianForeverHs  *float64
	Median2WeeksHs   *float64
	PeakCCUYesterday *int64
	PriceUSD         *float64
	InitialPriceUSD  *float64
	Discount         *int64
}

// Dimension is a deduplicated categorical value with its surrogate id.
type Dimension struct {
	ID    int64
	Value string
}

// Language rows additionally carry the canonical name used for
// deduplication; Value keeps the first-seen upstream spelling.
type Language struct {
	ID         int64
	Value      string
	Normalized string
}

type AppGenre struct {
	IDApp   int64
	IDGenre int64
}

type AppLanguage struct {
	IDApp      int64
	IDLanguage int64
}

// AppTag links an app to a tag with the upstream vote count. Count is
// never null: missing counts default to 0 so downstream ranking can
// sort on it unconditionally.
type AppTag struct {
	IDApp int64
	IDTag int64
	Count int64
}

// Tables is the complete normalized output of one pipeline run.
type Tables struct {
	Apps          []App
	Genres        []Dimension
	Languages     []Language
	Tags          []Dimension
	AppsGenres    []AppGenre
	AppsLanguages []AppLanguage
	AppsTags      []AppTag
}

// DimensionSeed maps normalized values to the surrogate ids already
// persisted in the sink. Seeding the normalizer with it guarantees ids
// are never reassigned across runs.
type DimensionSeed struct {
	Genres    map[string]int64
	Languages map[string]int64
	Tags      map[string]int64
}

// Sink is a destination for the normalized tables. Both the sqlite
// and the Postgres stores satisfy it.
type Sink interface {
	ReadDimensions(ctx context.Context) (DimensionSeed, error)
	Load(ctx context.Context, tables Tables) error
}

// LoadError reports which table a sink rejected. The whole load call
// aborts on the first failing table.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed on table %q: %s", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
