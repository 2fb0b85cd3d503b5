// Package fetch retrieves the raw CSV dataset from a URL or a local path.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"dataingest/internal/dataset"
	"dataingest/internal/logging"

	"golang.org/x/net/html/charset"
	"go.uber.org/zap"
)

var (
	// ErrParse is returned when the retrieved content is not well-formed CSV.
	ErrParse = errors.New("failed to parse the CSV file")
	// ErrFetch is returned for every other retrieval or decoding failure.
	ErrFetch = errors.New("failed to load the data")
)

// Fetcher loads CSV documents into tables.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       *logging.Logger
}

// New creates a Fetcher. A nil client means http.DefaultClient.
func New(client *http.Client, log *logging.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:    client,
		userAgent: "dataingest/1.0",
		log:       log,
	}
}

// Fetch retrieves source and parses it as CSV with a header line.
// source is an http(s) URL, a file:// URL or a filesystem path.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*dataset.Table, error) {
	body, contentType, err := f.read(ctx, source)
	if err == nil {
		body, err = decode(body, contentType)
	}
	if err != nil {
		f.log.ErrorErr("Unexpected error occurred while loading the data", err, zap.String("source", source))
		return nil, fmt.Errorf("%w from %s: %w", ErrFetch, source, err)
	}

	tbl, err := dataset.ReadCSV(bytes.NewReader(body))
	switch {
	case errors.Is(err, dataset.ErrMalformed):
		f.log.ErrorErr("Failed to parse the CSV file", err, zap.String("source", source))
		return nil, fmt.Errorf("%w from %s: %w", ErrParse, source, err)
	case err != nil:
		f.log.ErrorErr("Unexpected error occurred while loading the data", err, zap.String("source", source))
		return nil, fmt.Errorf("%w from %s: %w", ErrFetch, source, err)
	}

	f.log.With(zap.Int("rows", tbl.Len()), zap.Int("columns", len(tbl.Columns))).
		Debug("Data loaded from %s", source)
	return tbl, nil
}

func (f *Fetcher) read(ctx context.Context, source string) ([]byte, string, error) {
	u, err := url.Parse(source)
	// A one-letter scheme is a Windows drive, not a URL.
	if err != nil || len(u.Scheme) <= 1 {
		return readFile(source)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, u.String())
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return readFile(path)
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func readFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// decode converts body to UTF-8 using the charset declared in contentType.
// Without a declaration the body must already be UTF-8.
func decode(body []byte, contentType string) ([]byte, error) {
	if contentType != "" {
		_, params, err := mime.ParseMediaType(contentType)
		if err == nil && params["charset"] != "" {
			label := params["charset"]
			enc, name := charset.Lookup(label)
			if enc == nil {
				return nil, fmt.Errorf("unknown charset %q", label)
			}
			if name != "utf-8" {
				decoded, err := enc.NewDecoder().Bytes(body)
				if err != nil {
					return nil, fmt.Errorf("failed to decode %s content: %w", name, err)
				}
				body = decoded
			}
		}
	}
	if !utf8.Valid(body) {
		return nil, errors.New("content is not valid UTF-8")
	}
	return body, nil
}
