package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/dataset"
	"github.com/JonMunkholm/evsubsidy/internal/schema"
)

// Text encodings accepted for CSV exports.
const (
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

// CSV reads a per-region subsidy export with Korean headers.
type CSV struct {
	name     string
	location string
	fetcher  Fetcher
	encoding string
}

// NewCSV creates a CSV export source.
func NewCSV(name, location string, opts Options) *CSV {
	return &CSV{name: name, location: location, fetcher: opts.Fetcher, encoding: opts.Encoding}
}

func (s *CSV) Name() string { return s.name }

// Load reads the export and aggregates it. Regions without rows keep the
// records of the embedded dataset.
func (s *CSV) Load(ctx context.Context) (*core.Dataset, error) {
	body, err := s.fetcher.Open(ctx, s.location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := ReadCSV(body, s.encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.location, err)
	}

	ds := dataset.NewBuilder(
		dataset.WithDefaults(FallbackRegions()),
		dataset.WithSource(s.name),
	).Build(rows)
	return checkNotEmpty(s.location, ds)
}

// NewTextReader decodes r to UTF-8. A UTF-8 byte order mark always wins and
// is stripped; without one the text is read in the given encoding. Invalid
// UTF-8 sequences become U+FFFD.
func NewTextReader(r io.Reader, encoding string) (io.Reader, error) {
	var fallback transform.Transformer
	switch strings.ToLower(strings.ReplaceAll(encoding, "_", "-")) {
	case "", EncodingUTF8, "utf8":
		fallback = unicode.UTF8.NewDecoder()
	case EncodingEUCKR, "euckr", "cp949":
		fallback = korean.EUCKR.NewDecoder()
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", encoding)
	}
	return transform.NewReader(r, unicode.BOMOverride(fallback)), nil
}

// ReadCSV parses a subsidy export into rows. The header must carry the
// required columns of schema.SubsidyCSV; blank lines and short rows are
// tolerated.
func ReadCSV(r io.Reader, encoding string) ([]core.Row, error) {
	text, err := NewTextReader(r, encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx, err := schema.ValidateHeaders(header, schema.SubsidyCSV)
	if err != nil {
		return nil, err
	}

	var rows []core.Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		national := idx.Cell(record, schema.NationalColumn)
		rows = append(rows, core.Row{
			Region:       idx.Cell(record, schema.RegionColumn),
			Manufacturer: idx.Cell(record, schema.ManufacturerColumn),
			Model:        idx.Cell(record, schema.ModelColumn),
			National:     schema.ParseInt(national),
			Local:        idx.Int(record, schema.LocalColumn),
			HasNational:  national != "",
		})
	}
	return rows, nil
}
