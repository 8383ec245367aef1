package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Url     string `json:"url"`
	Workers int    `json:"workers"`
	Token   string `json:"token"`
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "config.json5"),
		[]byte(`{url: "https://example.invalid", workers: 4}`),
		0644,
	)
	require.NoError(t, err)
	err = os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{workers: 16}`),
		0644,
	)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.invalid", cfg.Url)
	require.Equal(t, 16, cfg.Workers)
}

func TestReadConfigExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEAMHARVEST_TEST_TOKEN", "s3cret")

	err := os.WriteFile(
		filepath.Join(dir, "config.json5"),
		[]byte(`{token: "${STEAMHARVEST_TEST_TOKEN}"}`),
		0644,
	)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.Token)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
