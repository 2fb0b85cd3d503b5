package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataingest/internal/config"
	"dataingest/internal/history"
	"dataingest/internal/logging"
	"dataingest/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	paramsPath  string
	source      string
	dataRoot    string
	logDir      string
	logLevel    string
	historyPath string
	timeout     time.Duration

	// Logging context shared by every command, attached once in PersistentPreRunE.
	logs *logging.Context
)

// rootCmd runs the ingestion step once.
var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the spam dataset and write the train/test split",
	Long: `Runs the data ingestion step:
  1. Read data_ingestion.test_size from params.yaml
  2. Fetch the CSV dataset from a URL or local path
  3. Drop the empty columns and rename v1/v2 to target/text
  4. Split into train and test sets (seed 2)
  5. Write data/raw/train.csv and data/raw/test.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logs, err = logging.New(logging.Options{
			Dir:     logDir,
			Level:   logLevel,
			Console: cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		return logs.Attach()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		_, err := runOnce(ctx, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&paramsPath, "params", "p", config.DefaultParamsPath, "Parameters file")
	rootCmd.PersistentFlags().StringVarP(&source, "source", "s", "", "Dataset URL or path (default: data_ingestion.source_url, then the public spam dataset)")
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data-root", config.DefaultDataRoot, "Output root; files are written to <data-root>/raw")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", logging.DefaultDir, "Log file directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "debug", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "SQLite run history database (disabled if empty)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Run timeout (0 means none)")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	os.Exit(execute(rootCmd, os.Args[1:]))
}

// execute runs cmd and returns the process exit status.
func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if logs != nil {
		_ = logs.Close()
		logs = nil
	}
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", err)
		return 1
	}
	return 0
}

// commandContext applies --timeout and cancels on SIGINT/SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// newPipeline builds a pipeline from the global flags. The returned close func
// releases the history database, if any.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	opts := pipeline.DefaultOptions()
	opts.ParamsPath = paramsPath
	opts.Source = source
	opts.DataRoot = dataRoot

	p := pipeline.New(opts, logs, nil)
	if historyPath == "" {
		return p, func() {}, nil
	}
	h, err := history.Open(ctx, historyPath, logs.Get(logging.CategoryHistory))
	if err != nil {
		return nil, nil, err
	}
	return p.WithHistory(h), func() { _ = h.Close() }, nil
}

// runOnce runs the pipeline and reports the outcome. Every failure is logged
// here once before it reaches the caller.
func runOnce(ctx context.Context, out io.Writer) (*pipeline.Result, error) {
	log := logs.Get(logging.CategoryBoot)

	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		log.ErrorErr("Failed to complete the data ingestion process", err, zap.String("kind", pipeline.KindUnexpected))
		return nil, err
	}
	defer closeFn()

	res, err := p.Run(ctx)
	if err != nil {
		kind := pipeline.Kind(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn("Run stopped: %v", err)
		}
		log.ErrorErr("Failed to complete the data ingestion process", err, zap.String("kind", kind))
		return nil, err
	}
	fmt.Fprintf(out, "%d rows -> %s (%d), %s (%d)\n",
		res.Rows, res.Artifacts.TrainPath, res.TrainRows, res.Artifacts.TestPath, res.TestRows)
	return res, nil
}
