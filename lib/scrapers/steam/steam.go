// Package steam enumerates the full app catalog from the Steam web API.
package steam

import (
	"context"
	"strings"

	"steamharvest-backend/lib/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/steam")

// App is one catalog entry: the upstream-assigned id and display name.
type App struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

type Client struct {
	http *upstream.Client
}

func NewClient(http *upstream.Client) Client {
	return Client{http: http}
}

// GetAppList fetches the complete (appid, name) universe in one call.
// There is no partial catalog: any terminal fetch failure is returned
// to the caller and the run is expected to abort. Apps with blank
// names are dropped and duplicate ids keep their first occurrence.
func (c Client) GetAppList(ctx context.Context) ([]App, error) {
	ctx, span := tracer.Start(ctx, "client:GetAppList")
	defer span.End()

	var payload struct {
		Applist struct {
			Apps []App `json:"apps"`
		} `json:"applist"`
	}
	err := c.http.GetJSON(ctx, "/ISteamApps/GetAppList/v2/", nil, &payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch app list")
		return nil, err
	}

	apps := make([]App, 0, len(payload.Applist.Apps))
	seen := make(map[int64]struct{}, len(payload.Applist.Apps))
	for _, app := range payload.Applist.Apps {
		app.Name = strings.TrimSpace(app.Name)
		if app.Name == "" {
			continue
		}
		if _, ok := seen[app.AppID]; ok {
			continue
		}
		seen[app.AppID] = struct{}{}
		apps = append(apps, app)
	}
	return apps, nil
}
