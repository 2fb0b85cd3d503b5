package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dataingest/internal/logging"

	"gopkg.in/yaml.v3"
)

// Fixed locations of the ingestion step.
const (
	DefaultParamsPath = "params.yaml"
	DefaultDataRoot   = "data"
	DefaultSourceURL  = "https://raw.githubusercontent.com/vikashishere/Datasets/main/spam.csv"
)

var (
	// ErrConfigNotFound is returned when the params file does not exist.
	ErrConfigNotFound = errors.New("config not found")
	// ErrConfigParse is returned when the params file is not valid YAML.
	ErrConfigParse = errors.New("config parse error")
	// ErrConfigInvalid is returned when the YAML is well formed but unusable.
	ErrConfigInvalid = errors.New("invalid config")
)

// Params holds the parameters of the pipeline read from params.yaml.
// Sections owned by other pipeline stages are ignored.
type Params struct {
	DataIngestion DataIngestionParams `yaml:"data_ingestion"`
}

// DataIngestionParams configures this step.
type DataIngestionParams struct {
	TestSize  float64 `yaml:"test_size"`            // fraction of rows in the test partition
	SourceURL string  `yaml:"source_url,omitempty"` // dataset location; DefaultSourceURL if empty
}

// Load reads and validates the params file at path.
func Load(path string, log *logging.Logger) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Error("File not found: %s", path)
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		log.Error("Failed to read %s: %v", path, err)
		return nil, fmt.Errorf("failed to read params %s: %w", path, err)
	}

	params, err := Parse(data)
	if err != nil {
		log.Error("YAML error in %s: %v", path, err)
		return nil, err
	}

	log.Debug("Parameters retrieved from %s", path)
	return params, nil
}

// Parse decodes and validates params from YAML bytes.
func Parse(data []byte) (*Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the split fraction is usable.
func (p *Params) Validate() error {
	ts := p.DataIngestion.TestSize
	if !(ts > 0 && ts < 1) {
		return fmt.Errorf("%w: data_ingestion.test_size must be in (0, 1), got %v", ErrConfigInvalid, ts)
	}
	return nil
}

// Source returns the dataset location: override if set, then source_url, then DefaultSourceURL.
func (p *Params) Source(override string) string {
	if override != "" {
		return override
	}
	if p.DataIngestion.SourceURL != "" {
		return p.DataIngestion.SourceURL
	}
	return DefaultSourceURL
}

// Save writes params as YAML. Used to seed a params file.
func (p *Params) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write params: %w", err)
	}
	return nil
}
