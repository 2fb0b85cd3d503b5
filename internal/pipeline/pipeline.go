// Package pipeline runs the ingestion stages in order:
// params -> fetch -> normalize -> split -> write.
package pipeline

import (
	"context"
	"time"

	"dataingest/internal/config"
	"dataingest/internal/fetch"
	"dataingest/internal/history"
	"dataingest/internal/logging"
	"dataingest/internal/normalize"
	"dataingest/internal/split"
	"dataingest/internal/store"

	"go.uber.org/zap"
)

// Options are the fixed inputs of a run.
type Options struct {
	ParamsPath string        // params.yaml location
	Source     string        // overrides data_ingestion.source_url when set
	DataRoot   string        // outputs go to <DataRoot>/raw
	Seed       int64         // split seed
	Schema     config.Schema // columns to drop and rename
}

// DefaultOptions returns the options of the standard ingestion step.
func DefaultOptions() Options {
	return Options{
		ParamsPath: config.DefaultParamsPath,
		DataRoot:   config.DefaultDataRoot,
		Seed:       split.DefaultSeed,
		Schema:     config.DefaultSchema(),
	}
}

// Result summarizes a successful run.
type Result struct {
	RunID     string
	Source    string
	TestSize  float64
	Rows      int
	TrainRows int
	TestRows  int
	Artifacts *store.Artifacts
}

// Pipeline wires the stages together.
type Pipeline struct {
	opts    Options
	logs    *logging.Context
	fetcher *fetch.Fetcher
	history *history.Store
}

// New creates a Pipeline. A nil fetcher means one backed by http.DefaultClient.
func New(opts Options, logs *logging.Context, fetcher *fetch.Fetcher) *Pipeline {
	if fetcher == nil {
		fetcher = fetch.New(nil, logs.Get(logging.CategoryFetch))
	}
	return &Pipeline{opts: opts, logs: logs, fetcher: fetcher}
}

// WithHistory records every run in h.
func (p *Pipeline) WithHistory(h *history.Store) *Pipeline {
	p.history = h
	return p
}

// Run executes every stage once. The first failing stage ends the run and its
// error is returned as is.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run := history.Run{
		ID:         history.NewRunID(),
		StartedAt:  time.Now(),
		ParamsPath: p.opts.ParamsPath,
		Seed:       p.opts.Seed,
	}
	res, err := p.run(ctx, &run)
	p.record(ctx, run, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, run *history.Run) (*Result, error) {
	log := p.logs.Get(logging.CategoryPipeline).With(zap.String("run", run.ID))

	params, err := config.Load(p.opts.ParamsPath, p.logs.Get(logging.CategoryConfig))
	if err != nil {
		return nil, err
	}
	testSize := params.DataIngestion.TestSize
	source := params.Source(p.opts.Source)
	run.TestSize = testSize
	run.Source = source

	raw, err := p.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	normalized, err := normalize.New(p.opts.Schema, p.logs.Get(logging.CategoryNormalize)).Normalize(raw)
	if err != nil {
		return nil, err
	}
	run.Rows = normalized.Len()

	parts, err := split.Split(normalized, testSize, p.opts.Seed)
	if err != nil {
		p.logs.Get(logging.CategorySplit).Error("Failed to split %d rows: %v", normalized.Len(), err)
		return nil, err
	}
	run.TrainRows = parts.Train.Len()
	run.TestRows = parts.Test.Len()
	p.logs.Get(logging.CategorySplit).Debug("Split %d rows into %d train and %d test (test_size=%v, seed=%d)",
		normalized.Len(), run.TrainRows, run.TestRows, testSize, p.opts.Seed)

	art, err := store.NewWriter(p.opts.DataRoot, p.logs.Get(logging.CategoryStore)).Write(parts)
	if err != nil {
		return nil, err
	}
	run.TrainSHA256 = art.TrainSHA256
	run.TestSHA256 = art.TestSHA256

	log.Info("Data ingestion completed: %d rows, %d train, %d test", run.Rows, run.TrainRows, run.TestRows)
	return &Result{
		RunID:     run.ID,
		Source:    source,
		TestSize:  testSize,
		Rows:      run.Rows,
		TrainRows: run.TrainRows,
		TestRows:  run.TestRows,
		Artifacts: art,
	}, nil
}

// record stores the run in the history ledger, if one is configured.
// A ledger failure is logged and never changes the outcome of the run.
func (p *Pipeline) record(ctx context.Context, run history.Run, runErr error) {
	if p.history == nil {
		return
	}
	run.FinishedAt = time.Now()
	run.Status = history.StatusSucceeded
	if runErr != nil {
		run.Status = history.StatusFailed
		run.ErrorKind = Kind(runErr)
		run.Error = runErr.Error()
	}
	// Record even when ctx was cancelled mid-run.
	if err := p.history.Record(context.WithoutCancel(ctx), run); err != nil {
		p.logs.Get(logging.CategoryHistory).Warn("Run %s was not recorded: %v", run.ID, err)
	}
}
