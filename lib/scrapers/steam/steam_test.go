package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"steamharvest-backend/lib/telemetry"
	"steamharvest-backend/lib/upstream"

	"github.com/stretchr/testify/require"
)

func TestGetAppList(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/steam")
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ISteamApps/GetAppList/v2/", r.URL.Path)
		fmt.Fprint(w, `{
			"applist": {
				"apps": [
					{"appid": 10, "name": "Counter-Strike"},
					{"appid": 20, "name": "  "},
					{"appid": 10, "name": "Counter-Strike (duplicate)"},
					{"appid": 30, "name": "Day of Defeat"}
				]
			}
		}`)
	}))
	defer srv.Close()

	client := NewClient(upstream.NewClient(upstream.Options{
		BaseURL:      srv.URL,
		MaxRetries:   1,
		RetryWaitMin: time.Millisecond,
	}))

	apps, err := client.GetAppList(context.Background())
	require.NoError(t, err)
	require.Equal(t, []App{
		{AppID: 10, Name: "Counter-Strike"},
		{AppID: 30, Name: "Day of Defeat"},
	}, apps)
}

func TestGetAppListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(upstream.NewClient(upstream.Options{
		BaseURL:      srv.URL,
		MaxRetries:   1,
		RetryWaitMin: time.Millisecond,
	}))

	_, err := client.GetAppList(context.Background())
	require.Error(t, err)
	require.True(t, upstream.IsTransient(err))
}
