package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/schema"
)

// Spreadsheet defaults.
const (
	DefaultSheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	DefaultSheetName     = "2025 서울특별시"
	DefaultSheetColumns  = "A:G"
)

// SheetsConfig locates a spreadsheet range.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	APIKey        string
	Sheet         string // e.g. "2025 서울특별시"; the region is the part after the year
	Columns       string // e.g. "A:G"
	Layout        *schema.SheetLayout
}

// Sheets reads a spreadsheet range response ({"values": [[...], ...]}).
// The first row is a header and is skipped. Region records come from the
// embedded dataset, since a single sheet carries no region statistics.
type Sheets struct {
	name    string
	cfg     SheetsConfig
	fetcher Fetcher
}

// NewSheets creates a spreadsheet source. Empty settings take the defaults.
func NewSheets(name string, cfg SheetsConfig, fetcher Fetcher) *Sheets {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSheetsBaseURL
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheetName
	}
	if cfg.Columns == "" {
		cfg.Columns = DefaultSheetColumns
	}
	return &Sheets{name: name, cfg: cfg, fetcher: fetcher}
}

func (s *Sheets) Name() string { return s.name }

// URL returns the range request URL, API key included.
func (s *Sheets) URL() string {
	rng := s.cfg.Sheet + "!" + s.cfg.Columns
	return fmt.Sprintf("%s/%s/values/%s?key=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.PathEscape(s.cfg.SpreadsheetID),
		url.PathEscape(rng),
		url.QueryEscape(s.cfg.APIKey),
	)
}

func (s *Sheets) Load(ctx context.Context) (*core.Dataset, error) {
	if s.cfg.SpreadsheetID == "" || s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", s.name, ErrNotConfigured)
	}

	body, err := s.fetcher.Open(ctx, s.URL())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read sheets response: %w", err)
	}

	layout := schema.DefaultSheetLayout
	if s.cfg.Layout != nil {
		layout = *s.cfg.Layout
	}
	rows, err := ParseSheetValues(raw, SheetRegion(s.cfg.Sheet), layout)
	if err != nil {
		return nil, err
	}

	draft := core.Draft{
		Rows:     rows,
		Regions:  FallbackRegions(),
		Metadata: core.Metadata{Source: s.name},
	}
	return checkNotEmpty(s.name, draft.Build())
}

// ParseSheetValues turns a range response into rows. A row is kept when its
// manufacturer, model and national cells are non-empty.
func ParseSheetValues(raw []byte, region string, layout schema.SheetLayout) ([]core.Row, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("decode sheets response: invalid json")
	}

	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return nil, fmt.Errorf("sheets api error: %s", msg.String())
	}

	var rows []core.Row
	for i, value := range gjson.GetBytes(raw, "values").Array() {
		if i == 0 {
			continue
		}

		var cells []string
		for _, c := range value.Array() {
			cells = append(cells, c.String())
		}

		manufacturer := layout.Cell(cells, layout.Manufacturer)
		model := layout.Cell(cells, layout.Model)
		national := layout.Cell(cells, layout.National)
		if manufacturer == "" || model == "" || national == "" {
			continue
		}

		rows = append(rows, core.Row{
			Region:       region,
			Manufacturer: manufacturer,
			Model:        model,
			National:     schema.ParseInt(national),
			Local:        schema.ParseInt(layout.Cell(cells, layout.Local)),
			HasNational:  true,
		})
	}
	return rows, nil
}

// SheetRegion strips a leading year from a sheet name:
// "2025 서울특별시" -> "서울특별시".
func SheetRegion(sheet string) string {
	sheet = strings.TrimSpace(sheet)
	year, rest, ok := strings.Cut(sheet, " ")
	if !ok || len(year) != 4 || strings.Trim(year, "0123456789") != "" {
		return sheet
	}
	return strings.TrimSpace(rest)
}
