// Package steamspy fetches per-app playtime/ownership records from the
// SteamSpy API, one app per request.
package steamspy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"steamharvest-backend/lib/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/steamspy")

// ErrAppNotFound marks ids SteamSpy has no record for. It arrives
// wrapped in a permanent *upstream.FetchError.
var ErrAppNotFound = errors.New("steamspy has no record for this app")

type Client struct {
	http *upstream.Client
}

func NewClient(http *upstream.Client) Client {
	return Client{http: http}
}

// AppDetails fetches the raw record for one app id. Not-found and
// empty responses are permanent failures for that id; the caller is
// expected to skip and move on.
func (c Client) AppDetails(ctx context.Context, appid int64) (Record, error) {
	ctx, span := tracer.Start(ctx, "client:AppDetails")
	defer span.End()

	var rec Record
	err := c.http.GetJSON(ctx, "/api.php", map[string]string{
		"request": "appdetails",
		"appid":   strconv.FormatInt(appid, 10),
	}, &rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch app details")
		return Record{}, err
	}

	// unknown ids come back as an all-null record carrying only the appid
	if strings.TrimSpace(rec.Name) == "" {
		span.SetStatus(codes.Error, "empty record")
		return Record{}, &upstream.FetchError{
			Kind: upstream.KindPermanent,
			Err:  fmt.Errorf("app %d: %w", appid, ErrAppNotFound),
		}
	}
	if rec.AppID == 0 {
		rec.AppID = appid
	}
	return rec, nil
}
