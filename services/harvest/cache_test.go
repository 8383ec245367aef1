package harvest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/scrapers/steamspy"
)

func TestRawCacheLastWriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.jsonl")

	cache, err := OpenRawCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Append(&steamspy.Record{AppID: 1, Name: "old"}))
	require.NoError(t, cache.Append(&steamspy.Record{AppID: 2, Name: "other"}))
	require.NoError(t, cache.Close())

	// A resumed run re-opens the file in append mode and may re-fetch
	// an app it cached before the crash.
	cache, err = OpenRawCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Append(&steamspy.Record{AppID: 1, Name: "new"}))
	require.NoError(t, cache.Close())

	recs, err := ReadRawCache(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.EqualValues(t, 1, recs[0].AppID)
	require.Equal(t, "new", recs[0].Name)
	require.EqualValues(t, 2, recs[1].AppID)
}

func TestRawCachePreservesRecordFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.jsonl")

	in := &steamspy.Record{
		AppID:     570,
		Name:      "Dota 2",
		Developer: "Valve",
		Publisher: "Valve",
		Owners:    "100,000,000 .. 200,000,000",
		Price:     steamspy.FlexInt{Value: 0, Valid: true},
		Tags:      steamspy.TagVotes{{Name: "MOBA", Votes: 5233}, {Name: "Free to Play", Votes: 4212}},
	}
	cache, err := OpenRawCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Append(in))
	require.NoError(t, cache.Close())

	recs, err := ReadRawCache(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, in, recs[0])
}

func TestCatalogCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steam_app_list.csv")

	apps := []steam.App{
		{AppID: 10, Name: "Counter-Strike"},
		{AppID: 570, Name: "Dota 2"},
		{AppID: 990, Name: "name, with comma"},
	}
	require.NoError(t, WriteCatalogCSV(path, apps))

	got, err := ReadCatalogCSV(path)
	require.NoError(t, err)
	require.Equal(t, apps, got)
}

func TestReadCatalogCSVMissingFile(t *testing.T) {
	_, err := ReadCatalogCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
