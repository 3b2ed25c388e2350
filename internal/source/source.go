// Package source provides the dataset sources the data service walks in
// order: JSON documents, CSV exports, spreadsheet range responses and the
// dataset embedded in the binary.
//
// Every source reads either a local file or an http(s) URL. Sources never
// retry; a failure is returned to the caller, which moves on to the next
// source in the chain.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

var (
	// ErrNotConfigured is returned by a source with no location.
	ErrNotConfigured = errors.New("source not configured")

	// ErrEmptyDataset is returned when a source parsed but yielded no vehicles.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrHTTPStatus is wrapped for non-2xx responses.
	ErrHTTPStatus = errors.New("unexpected http status")
)

// DefaultTimeout bounds a single fetch when no client is supplied.
const DefaultTimeout = 10 * time.Second

// Fetcher opens local files and http(s) URLs.
type Fetcher struct {
	Client *http.Client
}

func (f Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Open returns the content at location. The caller closes it.
func (f Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, ErrNotConfigured
	}

	if !IsRemote(location) {
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/csv;q=0.9, */*;q=0.5")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redact(location), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w %d", redact(location), ErrHTTPStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

// redact drops the query string, which may carry an API key.
func redact(location string) string {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		return location[:i]
	}
	return location
}

// Options carries settings shared by file based sources.
type Options struct {
	Fetcher  Fetcher
	Encoding string // CSV text encoding: "utf-8" (default) or "euc-kr"
}

// FromLocation picks a source for location by its extension: ".csv" is read
// as a CSV export, anything else as a JSON document.
func FromLocation(name, location string, opts Options) core.Source {
	if strings.EqualFold(filepath.Ext(stripQuery(location)), ".csv") {
		return &CSV{name: name, location: location, fetcher: opts.Fetcher, encoding: opts.Encoding}
	}
	return &JSON{name: name, location: location, fetcher: opts.Fetcher}
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}

// checkNotEmpty turns a dataset without vehicles into ErrEmptyDataset.
func checkNotEmpty(name string, ds *core.Dataset) (*core.Dataset, error) {
	if ds.Empty() {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDataset)
	}
	return ds, nil
}
