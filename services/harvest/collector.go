package harvest

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/scrapers/steamspy"
	"steamharvest-backend/lib/upstream"
)

var tracer = otel.Tracer("services/harvest")

// Detailer fetches the per-app detail record. steamspy.Client
// satisfies it; tests substitute fakes.
type Detailer interface {
	AppDetails(ctx context.Context, appID int64) (steamspy.Record, error)
}

// Collector sweeps the catalog, fetching the detail record for every
// app not yet in the ledger and appending it to the raw cache. The
// cache write always happens before the ledger write, so a crash
// between the two re-fetches the app rather than losing it.
type Collector struct {
	Source  Detailer
	Ledger  *Ledger
	Cache   *RawCache
	Workers int
}

// Summary counts the outcome of one sweep.
type Summary struct {
	Attempted        int
	Succeeded        int
	SkippedTransient int
	SkippedPermanent int
	FailedIDs        []int64
}

// Sweep collects every catalog app absent from the ledger. Transient
// failures are left uncollected so the next run retries them;
// permanent failures are likewise reported but cost one request per
// run to re-confirm. Sweep stops early only on context cancellation.
func (c *Collector) Sweep(ctx context.Context, catalog []steam.App) (Summary, error) {
	ctx, span := tracer.Start(ctx, "harvest.Sweep")
	defer span.End()

	collected, err := c.Ledger.CollectedIDs(ctx)
	if err != nil {
		return Summary{}, err
	}
	var pending []int64
	for _, app := range catalog {
		if !collected[app.AppID] {
			pending = append(pending, app.AppID)
		}
	}
	span.SetAttributes(
		attribute.Int("catalog_size", len(catalog)),
		attribute.Int("pending", len(pending)),
	)
	slog.Info("starting sweep",
		"catalog_size", len(catalog),
		"already_collected", len(catalog)-len(pending),
		"pending", len(pending),
	)

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	ids := make(chan int64)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				outcome := c.collectOne(ctx, id)
				mu.Lock()
				switch outcome {
				case outcomeOK:
					summary.Succeeded++
				case outcomeTransient:
					summary.SkippedTransient++
					summary.FailedIDs = append(summary.FailedIDs, id)
				case outcomePermanent:
					summary.SkippedPermanent++
					summary.FailedIDs = append(summary.FailedIDs, id)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, id := range pending {
		select {
		case ids <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(ids)
	wg.Wait()

	sort.Slice(summary.FailedIDs, func(i, j int) bool {
		return summary.FailedIDs[i] < summary.FailedIDs[j]
	})
	summary.Attempted = summary.Succeeded + summary.SkippedTransient + summary.SkippedPermanent

	slog.Info("sweep finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"skipped_transient", summary.SkippedTransient,
		"skipped_permanent", summary.SkippedPermanent,
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeTransient
	outcomePermanent
)

func (c *Collector) collectOne(ctx context.Context, appID int64) outcome {
	rec, err := c.Source.AppDetails(ctx, appID)
	if err != nil {
		if upstream.IsPermanent(err) {
			slog.Error("app permanently unavailable", "appid", appID, "err", err)
			return outcomePermanent
		}
		slog.Warn("app fetch failed, will retry next run", "appid", appID, "err", err)
		return outcomeTransient
	}
	if err := c.Cache.Append(&rec); err != nil {
		slog.Error("raw cache append failed", "appid", appID, "err", err)
		return outcomeTransient
	}
	if err := c.Ledger.RecordCollected(ctx, appID); err != nil {
		// The record is cached; the next run re-fetches and
		// re-appends, and the cache reader keeps the last line.
		slog.Error("ledger write failed", "appid", appID, "err", err)
		return outcomeTransient
	}
	return outcomeOK
}
