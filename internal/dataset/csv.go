package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned when the input is not well-formed CSV.
	ErrMalformed = errors.New("malformed CSV")
	// ErrEmpty is returned when the input has no header line.
	ErrEmpty = errors.New("no columns to parse")
)

const bom = "\ufeff"

// ReadCSV parses a CSV document whose first line is the header.
//
// Header cells that are empty are named "Unnamed: <index>" and repeated names get
// ".1", ".2", ... suffixes. Short rows are padded with empty cells; a row with more
// cells than the header is malformed, as is a quoted field that never closes.
// Blank lines are skipped.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	recs, err := newTokenizer(strings.TrimPrefix(string(data), bom)).all()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrEmpty
	}

	columns := headerNames(recs[0].fields)
	rows := make([][]string, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		row := rec.fields
		if len(row) > len(columns) {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d", ErrMalformed, len(columns), rec.line, len(row))
		}
		for len(row) < len(columns) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

// headerNames fills in blank names and de-duplicates repeated ones.
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	for i, n := range raw {
		if n == "" {
			n = "Unnamed: " + strconv.Itoa(i)
		}
		names[i] = n
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = false
	}
	counts := make(map[string]int, len(names))
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			continue
		}
		k := counts[n] + 1
		candidate := n + "." + strconv.Itoa(k)
		for {
			if _, taken := seen[candidate]; !taken {
				break
			}
			k++
			candidate = n + "." + strconv.Itoa(k)
		}
		counts[n] = k
		seen[candidate] = true
		names[i] = candidate
	}
	return names
}

// WriteCSV writes the header and every row, without an index column.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
