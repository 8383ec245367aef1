package harvest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"steamharvest-backend/lib/scrapers/steam"
	"steamharvest-backend/lib/scrapers/steamspy"
)

// RawCache appends raw SteamSpy records to a JSONL file. Appends are
// synced before returning so a record acknowledged as cached survives
// a crash; the resume ledger is only written after the cache.
type RawCache struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func OpenRawCache(path string) (*RawCache, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open raw cache: %w", err)
	}
	return &RawCache{file: file, enc: json.NewEncoder(file)}, nil
}

func (c *RawCache) Append(rec *steamspy.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("append raw cache: %w", err)
	}
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("sync raw cache: %w", err)
	}
	return nil
}

func (c *RawCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// ReadRawCache streams every record out of a JSONL cache file. Later
// lines for the same appid win: the sweep may have re-fetched an app
// across interrupted runs.
func ReadRawCache(path string) ([]*steamspy.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw cache: %w", err)
	}
	defer file.Close()

	byID := map[int64]int{}
	var out []*steamspy.Record
	dec := json.NewDecoder(bufio.NewReader(file))
	for {
		rec := &steamspy.Record{}
		if err := dec.Decode(rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode raw cache: %w", err)
		}
		if i, ok := byID[rec.AppID]; ok {
			out[i] = rec
			continue
		}
		byID[rec.AppID] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

// WriteCatalogCSV caches the Steam app list so reruns within a session
// skip the full catalog download.
func WriteCatalogCSV(path string, apps []steam.App) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write catalog cache: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"appid", "name"}); err != nil {
		return err
	}
	for _, app := range apps {
		if err := w.Write([]string{strconv.FormatInt(app.AppID, 10), app.Name}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ReadCatalogCSV(path string) ([]steam.App, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog cache: %w", err)
	}
	var apps []steam.App
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) != 2 {
			return nil, fmt.Errorf("read catalog cache: malformed row %d", i)
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read catalog cache: row %d: %w", i, err)
		}
		apps = append(apps, steam.App{AppID: id, Name: row[1]})
	}
	return apps, nil
}
