package harvest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/scrapers/steamspy"
	"steamharvest-backend/lib/sqliteutil"
	"steamharvest-backend/lib/telemetry"
	"steamharvest-backend/lib/upstream"
	"steamharvest-backend/services/harvest/db"
)

type fakeDetailer struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]error
}

func (f *fakeDetailer) AppDetails(ctx context.Context, appID int64) (steamspy.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, appID)
	f.mu.Unlock()
	if err := f.fail[appID]; err != nil {
		return steamspy.Record{}, err
	}
	return steamspy.Record{
		AppID:     appID,
		Name:      fmt.Sprintf("App %d", appID),
		Developer: "dev",
		Publisher: "pub",
	}, nil
}

func (f *fakeDetailer) calledIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int64(nil), f.calls...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func testCollector(t *testing.T, source Detailer) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()

	ledgerDB, err := sqliteutil.OpenDB(db.Schema, filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledgerDB.Close() })

	cachePath := filepath.Join(dir, "raw.jsonl")
	cache, err := OpenRawCache(cachePath)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return &Collector{
		Source:  source,
		Ledger:  NewLedger(ledgerDB),
		Cache:   cache,
		Workers: 2,
	}, cachePath
}

func TestSweepPermanentFailure(t *testing.T) {
	defer telemetry.SetupForTesting("harvest-collector")()
	ctx := context.Background()

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(prev)

	fake := &fakeDetailer{fail: map[int64]error{
		2: &upstream.FetchError{Kind: upstream.KindPermanent, Status: 404, Err: steamspy.ErrAppNotFound},
	}}
	collector, cachePath := testCollector(t, fake)

	catalog := []steam.App{{AppID: 1, Name: "A"}, {AppID: 2, Name: "B"}, {AppID: 3, Name: "C"}}
	summary, err := collector.Sweep(ctx, catalog)
	require.NoError(t, err)

	require.Equal(t, 3, summary.Attempted)
	require.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 1, summary.SkippedPermanent)
	require.Zero(t, summary.SkippedTransient)
	require.Equal(t, []int64{2}, summary.FailedIDs)

	recs, err := ReadRawCache(cachePath)
	require.NoError(t, err)
	var cached []int64
	for _, rec := range recs {
		cached = append(cached, rec.AppID)
	}
	sort.Slice(cached, func(i, j int) bool { return cached[i] < cached[j] })
	require.Equal(t, []int64{1, 3}, cached)

	collected, err := collector.Ledger.CollectedIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, map[int64]bool{1: true, 3: true}, collected)

	// permanent failures are errors, not warnings
	require.Contains(t, logs.String(), "level=ERROR")
	require.Contains(t, logs.String(), "app permanently unavailable")
}

func TestSweepResumesFromLedger(t *testing.T) {
	defer telemetry.SetupForTesting("harvest-collector")()
	ctx := context.Background()

	fake := &fakeDetailer{}
	collector, _ := testCollector(t, fake)

	require.NoError(t, collector.Ledger.RecordCollected(ctx, 1))
	require.NoError(t, collector.Ledger.RecordCollected(ctx, 4))

	catalog := []steam.App{{AppID: 1}, {AppID: 2}, {AppID: 3}, {AppID: 4}}
	summary, err := collector.Sweep(ctx, catalog)
	require.NoError(t, err)

	// Only the complement of the collected set is fetched.
	require.Equal(t, []int64{2, 3}, fake.calledIDs())
	require.Equal(t, 2, summary.Attempted)
	require.Equal(t, 2, summary.Succeeded)
}

func TestSweepTransientFailureRetriedNextRun(t *testing.T) {
	defer telemetry.SetupForTesting("harvest-collector")()
	ctx := context.Background()

	fake := &fakeDetailer{fail: map[int64]error{
		2: &upstream.FetchError{Kind: upstream.KindTransient, Status: 500, Err: fmt.Errorf("bad gateway")},
	}}
	collector, _ := testCollector(t, fake)

	catalog := []steam.App{{AppID: 1}, {AppID: 2}}
	summary, err := collector.Sweep(ctx, catalog)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedTransient)
	require.Equal(t, []int64{2}, summary.FailedIDs)

	collected, err := collector.Ledger.CollectedIDs(ctx)
	require.NoError(t, err)
	require.False(t, collected[2])

	// Next run the upstream recovered; only app 2 is pending.
	fake.mu.Lock()
	delete(fake.fail, 2)
	fake.calls = nil
	fake.mu.Unlock()

	summary, err = collector.Sweep(ctx, catalog)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, fake.calledIDs())
	require.Equal(t, 1, summary.Succeeded)
	require.Empty(t, summary.FailedIDs)
}

func TestSweepCancellation(t *testing.T) {
	defer telemetry.SetupForTesting("harvest-collector")()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeDetailer{}
	collector, _ := testCollector(t, fake)

	_, err := collector.Sweep(ctx, []steam.App{{AppID: 1}, {AppID: 2}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLedgerRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledgerDB, err := sqliteutil.OpenDB(db.Schema, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer ledgerDB.Close()

	ledger := NewLedger(ledgerDB)
	require.NoError(t, ledger.RecordCollected(ctx, 42))
	require.NoError(t, ledger.RecordCollected(ctx, 42))

	ok, err := ledger.IsCollected(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ledger.IsCollected(ctx, 43)
	require.NoError(t, err)
	require.False(t, ok)

	ids, err := ledger.CollectedIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, map[int64]bool{42: true}, ids)
}
