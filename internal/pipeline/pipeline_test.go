package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"dataingest/internal/config"
	"dataingest/internal/fetch"
	"dataingest/internal/history"
	"dataingest/internal/logging"
	"dataingest/internal/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// spamRows builds a dataset in the upstream layout with n messages.
func spamRows(n int) string {
	var b strings.Builder
	b.WriteString("v1,v2,,,\n")
	for i := 0; i < n; i++ {
		label := "ham"
		if i%3 == 0 {
			label = "spam"
		}
		fmt.Fprintf(&b, "%s,\"message %d, with comma\",,,\n", label, i)
	}
	return b.String()
}

type fixture struct {
	dir      string
	params   string
	dataRoot string
	hits     *atomic.Int32
	url      string
}

func newFixture(t *testing.T, csv string, params string) *fixture {
	t.Helper()
	dir := t.TempDir()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(csv))
	}))
	t.Cleanup(srv.Close)

	paramsPath := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(paramsPath, []byte(params), 0644))
	return &fixture{
		dir:      dir,
		params:   paramsPath,
		dataRoot: filepath.Join(dir, "data"),
		hits:     hits,
		url:      srv.URL + "/spam.csv",
	}
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	opts := DefaultOptions()
	opts.ParamsPath = f.params
	opts.DataRoot = f.dataRoot
	opts.Source = f.url
	return New(opts, logging.Nop(), nil)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRun_TenRows(t *testing.T) {
	f := newFixture(t, spamRows(10), "data_ingestion:\n  test_size: 0.2\n")

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, 8, res.TrainRows)
	assert.Equal(t, 2, res.TestRows)
	assert.Equal(t, f.url, res.Source)

	train := readLines(t, filepath.Join(f.dataRoot, "raw", "train.csv"))
	test := readLines(t, filepath.Join(f.dataRoot, "raw", "test.csv"))
	require.Len(t, train, 9)
	require.Len(t, test, 3)
	assert.Equal(t, "target,text", train[0])
	assert.Equal(t, "target,text", test[0])

	seen := map[string]bool{}
	for _, line := range append(train[1:], test[1:]...) {
		assert.False(t, seen[line], "row %q appears twice", line)
		seen[line] = true
	}
	assert.Len(t, seen, 10)
}

func TestRun_ByteIdenticalAcrossRuns(t *testing.T) {
	f := newFixture(t, spamRows(57), "data_ingestion:\n  test_size: 0.25\n")

	first, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	trainA, err := os.ReadFile(first.Artifacts.TrainPath)
	require.NoError(t, err)

	second, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	trainB, err := os.ReadFile(second.Artifacts.TrainPath)
	require.NoError(t, err)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, first.Artifacts.TrainSHA256, second.Artifacts.TrainSHA256)
	assert.Equal(t, first.Artifacts.TestSHA256, second.Artifacts.TestSHA256)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_MalformedParamsSkipsFetch(t *testing.T) {
	f := newFixture(t, spamRows(10), "data_ingestion: [test_size: 0.2\n")

	_, err := f.pipeline(t).Run(context.Background())
	require.ErrorIs(t, err, config.ErrConfigParse)
	assert.Equal(t, KindConfigParse, Kind(err))
	assert.Zero(t, f.hits.Load(), "no fetch may happen after a config failure")
	assert.NoDirExists(t, f.dataRoot)
}

func TestRun_MissingParams(t *testing.T) {
	f := newFixture(t, spamRows(10), "")
	require.NoError(t, os.Remove(f.params))

	_, err := f.pipeline(t).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Zero(t, f.hits.Load())
}

func TestRun_MissingColumnWritesNothing(t *testing.T) {
	f := newFixture(t, "v2,,,\nhello,,,\nworld,,,\n", "data_ingestion:\n  test_size: 0.5\n")

	_, err := f.pipeline(t).Run(context.Background())
	require.ErrorIs(t, err, normalize.ErrSchema)
	assert.Equal(t, KindSchema, Kind(err))
	assert.Equal(t, int32(1), f.hits.Load())
	assert.NoFileExists(t, filepath.Join(f.dataRoot, "raw", "train.csv"))
	assert.NoFileExists(t, filepath.Join(f.dataRoot, "raw", "test.csv"))
}

func TestRun_SourceFromParams(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "spam.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(spamRows(4)), 0644))
	paramsPath := filepath.Join(dir, "params.yaml")
	p := &config.Params{DataIngestion: config.DataIngestionParams{TestSize: 0.5, SourceURL: csvPath}}
	require.NoError(t, p.Save(paramsPath))

	opts := DefaultOptions()
	opts.ParamsPath = paramsPath
	opts.DataRoot = filepath.Join(dir, "data")
	res, err := New(opts, logging.Nop(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, csvPath, res.Source)
	assert.Equal(t, 2, res.TestRows)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture(t, spamRows(10), "data_ingestion:\n  test_size: 0.2\n")
	ctx := context.Background()

	h, err := history.Open(ctx, filepath.Join(f.dir, "history.db"), logging.Nop().Get(logging.CategoryHistory))
	require.NoError(t, err)
	defer h.Close()

	p := f.pipeline(t).WithHistory(h)
	res, err := p.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.params, []byte("data_ingestion:\n  test_size: 2\n"), 0644))
	_, err = p.Run(ctx)
	require.ErrorIs(t, err, config.ErrConfigInvalid)

	runs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	failed, ok := runs[0], runs[1]
	assert.Equal(t, history.StatusFailed, failed.Status)
	assert.Equal(t, KindConfigInvalid, failed.ErrorKind)
	assert.Contains(t, failed.Error, "test_size")

	assert.Equal(t, res.RunID, ok.ID)
	assert.Equal(t, history.StatusSucceeded, ok.Status)
	assert.Equal(t, 10, ok.Rows)
	assert.Equal(t, 8, ok.TrainRows)
	assert.Equal(t, 2, ok.TestRows)
	assert.Equal(t, int64(2), ok.Seed)
	assert.Equal(t, 0.2, ok.TestSize)
	assert.Equal(t, res.Artifacts.TrainSHA256, ok.TrainSHA256)
	assert.Equal(t, f.url, ok.Source)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: params.yaml", config.ErrConfigNotFound), KindConfigNotFound},
		{fmt.Errorf("%w: bad", config.ErrConfigParse), KindConfigParse},
		{fmt.Errorf("%w: 404", fetch.ErrFetch), KindFetch},
		{fmt.Errorf("%w from x: %w", fetch.ErrFetch, context.DeadlineExceeded), KindFetch},
		{fmt.Errorf("%w: quote", fetch.ErrParse), KindParse},
		{&normalize.SchemaError{Missing: []string{"v1"}}, KindSchema},
		{errors.New("boom"), KindUnexpected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}
