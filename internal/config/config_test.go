package config

import (
	"os"
	"path/filepath"
	"testing"

	"dataingest/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeParams(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func observed() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.FromZap(zap.New(core)).Get(logging.CategoryConfig), logs
}

func TestLoad(t *testing.T) {
	path := writeParams(t, `
data_ingestion:
  test_size: 0.2
feature_engineering:
  max_features: 50
`)
	log, logs := observed()

	p, err := Load(path, log)
	require.NoError(t, err)
	assert.Equal(t, 0.2, p.DataIngestion.TestSize)
	assert.Equal(t, DefaultSourceURL, p.Source(""))

	entries := logs.FilterMessage("Parameters retrieved from " + path).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestLoad_NotFound(t *testing.T) {
	log, logs := observed()
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(path, log)
	require.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), path)
	assert.Equal(t, 1, logs.FilterMessage("File not found: "+path).Len())
}

func TestLoad_ParseError(t *testing.T) {
	path := writeParams(t, "data_ingestion:\n  test_size: [0.2\n")
	log, logs := observed()

	_, err := Load(path, log)
	require.ErrorIs(t, err, ErrConfigParse)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty document":  "",
		"missing section": "other:\n  x: 1\n",
		"zero":            "data_ingestion:\n  test_size: 0\n",
		"one":             "data_ingestion:\n  test_size: 1\n",
		"negative":        "data_ingestion:\n  test_size: -0.3\n",
		"wrong type":      "data_ingestion:\n  test_size: lots\n",
		"scalar section":  "data_ingestion: 5\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestParams_Source(t *testing.T) {
	p := &Params{DataIngestion: DataIngestionParams{TestSize: 0.25, SourceURL: "file:///tmp/spam.csv"}}

	assert.Equal(t, "file:///tmp/spam.csv", p.Source(""))
	assert.Equal(t, "other.csv", p.Source("other.csv"))
}

func TestParams_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	p := &Params{DataIngestion: DataIngestionParams{TestSize: 0.3}}
	require.NoError(t, p.Save(path))

	loaded, err := Load(path, logging.Nop().Get(logging.CategoryConfig))
	require.NoError(t, err)
	assert.Equal(t, *p, *loaded)
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	assert.Equal(t, []string{"Unnamed: 2", "Unnamed: 3", "Unnamed: 4", "v1", "v2"}, s.Columns())
	assert.Equal(t, Rename{From: "v1", To: "target"}, s.Renames[0])
	assert.Equal(t, Rename{From: "v2", To: "text"}, s.Renames[1])
}
