// Package store persists the train/test partitions under the data root.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dataingest/internal/dataset"
	"dataingest/internal/logging"
	"dataingest/internal/split"

	"go.uber.org/zap"
)

// ErrWrite is returned for any filesystem failure while saving.
var ErrWrite = errors.New("failed to save the data")

// Layout under the data root expected by the downstream pipeline.
const (
	RawDir    = "raw"
	TrainFile = "train.csv"
	TestFile  = "test.csv"
)

// Artifacts describes the files written by one run.
type Artifacts struct {
	TrainPath   string
	TestPath    string
	TrainSHA256 string
	TestSHA256  string
}

// Writer saves partitions to <root>/raw.
type Writer struct {
	root string
	log  *logging.Logger
}

// NewWriter creates a Writer for the data root.
func NewWriter(root string, log *logging.Logger) *Writer {
	return &Writer{root: root, log: log}
}

// Dir returns the directory the partitions are written to.
func (w *Writer) Dir() string {
	return filepath.Join(w.root, RawDir)
}

// Write creates the raw directory if needed and saves both partitions as CSV.
// Each file is written next to its destination and renamed into place.
func (w *Writer) Write(res *split.Result) (*Artifacts, error) {
	dir := w.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, w.fail(dir, err)
	}

	art := &Artifacts{
		TrainPath: filepath.Join(dir, TrainFile),
		TestPath:  filepath.Join(dir, TestFile),
	}
	// Train first; a failure leaves test.csv as it was.
	var err error
	if art.TrainSHA256, err = writeTable(art.TrainPath, res.Train); err != nil {
		return nil, w.fail(art.TrainPath, err)
	}
	if art.TestSHA256, err = writeTable(art.TestPath, res.Test); err != nil {
		return nil, w.fail(art.TestPath, err)
	}

	w.log.Debug("Train and test data saved to %s", dir)
	return art, nil
}

func (w *Writer) fail(path string, err error) error {
	w.log.ErrorErr("Unexpected error occurred while saving the data", err, zap.String("path", path))
	return fmt.Errorf("%w to %s: %v", ErrWrite, path, err)
}

// writeTable writes t to path atomically and returns the hex SHA-256 of the file.
func writeTable(path string, t *dataset.Table) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if err := dataset.WriteCSV(io.MultiWriter(tmp, h), t); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
