// Package normalize prunes placeholder columns and gives the label and message
// columns their semantic names.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"dataingest/internal/config"
	"dataingest/internal/dataset"
	"dataingest/internal/logging"
)

// ErrSchema matches every *SchemaError.
var ErrSchema = errors.New("schema error")

// SchemaError reports the columns the schema expects but the table lacks.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing column in the dataframe: %s", strings.Join(quoteAll(e.Missing), ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}

// Normalizer applies a fixed schema to raw tables.
type Normalizer struct {
	schema config.Schema
	log    *logging.Logger
}

// New creates a Normalizer for schema.
func New(schema config.Schema, log *logging.Logger) *Normalizer {
	return &Normalizer{schema: schema, log: log}
}

// Normalize drops the schema's placeholder columns and applies its renames.
// Every column the schema names must be present; other columns pass through in order.
// t is not modified.
func (n *Normalizer) Normalize(t *dataset.Table) (*dataset.Table, error) {
	if missing := t.Missing(n.schema.Columns()...); len(missing) > 0 {
		err := &SchemaError{Missing: missing}
		n.log.Error("Missing column in the dataframe: %s", strings.Join(missing, ", "))
		return nil, err
	}

	out, err := t.Drop(n.schema.DropColumns...)
	if err != nil {
		return nil, err
	}
	for _, r := range n.schema.Renames {
		if out, err = out.Rename(r.From, r.To); err != nil {
			return nil, err
		}
	}

	n.log.Debug("Data preprocessing completed")
	return out, nil
}
