package harvest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExportCSV writes each normalized table to <dir>/<table>.csv. Null
// numeric fields are written as empty cells.
func ExportCSV(dir string, tables Tables) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"apps", []string{
			"id_app", "name", "developer", "publisher",
			"owners_min", "owners_max",
			"average_forever_hs", "average_2weeks_hs",
			"median_forever_hs", "median_2weeks_hs",
			"peak_ccu_yesterday", "price_usd", "initial_price_usd", "discount",
		}, appRows(tables.Apps)},
		{"genres", []string{"id_genre", "genre"}, dimensionRows(tables.Genres)},
		{"languages", []string{"id_language", "language", "normalized_language"}, languageRows(tables.Languages)},
		{"tags", []string{"id_tag", "tag"}, dimensionRows(tables.Tags)},
		{"apps_genres", []string{"id_app", "id_genre"}, appGenreRows(tables.AppsGenres)},
		{"apps_languages", []string{"id_app", "id_language"}, appLanguageRows(tables.AppsLanguages)},
		{"apps_tags", []string{"id_app", "id_tag", "count"}, appTagRows(tables.AppsTags)},
	}
	for _, f := range files {
		if err := writeCSV(filepath.Join(dir, f.name+".csv"), f.header, f.rows); err != nil {
			return fmt.Errorf("export %s: %w", f.name, err)
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func appRows(apps []App) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, []string{
			strconv.FormatInt(a.IDApp, 10), a.Name, a.Developer, a.Publisher,
			intCell(a.OwnersMin), intCell(a.OwnersMax),
			floatCell(a.AverageForeverHs), floatCell(a.Average2WeeksHs),
			floatCell(a.MedianForeverHs), floatCell(a.Median2WeeksHs),
			intCell(a.PeakCCUYesterday), floatCell(a.PriceUSD),
			floatCell(a.InitialPriceUSD), intCell(a.Discount),
		})
	}
	return rows
}

func dimensionRows(dims []Dimension) [][]string {
	rows := make([][]string, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, []string{strconv.FormatInt(d.ID, 10), d.Value})
	}
	return rows
}

func languageRows(langs []Language) [][]string {
	rows := make([][]string, 0, len(langs))
	for _, l := range langs {
		rows = append(rows, []string{strconv.FormatInt(l.ID, 10), l.Value, l.Normalized})
	}
	return rows
}

func appGenreRows(links []AppGenre) [][]string {
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{strconv.FormatInt(l.IDApp, 10), strconv.FormatInt(l.IDGenre, 10)})
	}
	return rows
}

func appLanguageRows(links []AppLanguage) [][]string {
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{strconv.FormatInt(l.IDApp, 10), strconv.FormatInt(l.IDLanguage, 10)})
	}
	return rows
}

func appTagRows(links []AppTag) [][]string {
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{
			strconv.FormatInt(l.IDApp, 10),
			strconv.FormatInt(l.IDTag, 10),
			strconv.FormatInt(l.Count, 10),
		})
	}
	return rows
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
