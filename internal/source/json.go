package source

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// JSON reads a dataset document.
type JSON struct {
	name     string
	location string
	fetcher  Fetcher
}

// NewJSON creates a JSON document source.
func NewJSON(name, location string, fetcher Fetcher) *JSON {
	return &JSON{name: name, location: location, fetcher: fetcher}
}

func (s *JSON) Name() string { return s.name }

func (s *JSON) Load(ctx context.Context) (*core.Dataset, error) {
	body, err := s.fetcher.Open(ctx, s.location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ds, err := core.DecodeDataset(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.location, err)
	}
	return checkNotEmpty(s.location, ds)
}
