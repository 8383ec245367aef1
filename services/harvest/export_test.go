package harvest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportCSV(dir, sampleTables()))

	for _, name := range []string{
		"apps", "genres", "languages", "tags",
		"apps_genres", "apps_languages", "apps_tags",
	} {
		_, err := os.Stat(filepath.Join(dir, name+".csv"))
		require.NoError(t, err, "missing %s.csv", name)
	}

	file, err := os.Open(filepath.Join(dir, "apps.csv"))
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "id_app", rows[0][0])

	// App 3 has no price; the cell is empty, not "0".
	require.Equal(t, "3", rows[2][0])
	require.Equal(t, "", rows[2][11])
}
