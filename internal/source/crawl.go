package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// crawlCell accepts a JSON string or number.
type crawlCell string

func (c *crawlCell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = crawlCell(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	*c = crawlCell(b)
	return nil
}

// amount parses "1,234" or "686.0". Anything else fails.
func (c crawlCell) amount() (int, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(c)), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

type crawlVehicle struct {
	Manufacturer    string    `json:"manufacturer"`
	Model           string    `json:"model"`        // vehicle class
	ModelDetail     string    `json:"model_detail"` // model name
	NationalSubsidy crawlCell `json:"national_subsidy"`
	LocalSubsidy    crawlCell `json:"local_subsidy"`
}

// ReadCrawl parses a crawl result: an object mapping each region to its list
// of vehicles. Region order is kept. A vehicle whose amounts do not parse
// still counts toward its region but carries no national amount, so it never
// becomes a vehicle.
func ReadCrawl(r io.Reader) ([]core.Row, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode crawl result: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode crawl result: expected object, got %v", tok)
	}

	var rows []core.Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode crawl result: %w", err)
		}
		region, _ := tok.(string)

		var vehicles []crawlVehicle
		if err := dec.Decode(&vehicles); err != nil {
			return nil, fmt.Errorf("decode crawl region %q: %w", region, err)
		}

		for _, v := range vehicles {
			national, okN := v.NationalSubsidy.amount()
			local, okL := v.LocalSubsidy.amount()
			row := core.Row{
				Region:       region,
				Manufacturer: strings.TrimSpace(v.Manufacturer),
				Model:        strings.TrimSpace(v.ModelDetail),
				Category:     strings.TrimSpace(v.Model),
				HasNational:  okN && okL,
			}
			if row.HasNational {
				row.National = national
				row.Local = local
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ReadRows reads builder input from location: a CSV export when the name
// ends in ".csv", a crawl result otherwise.
func ReadRows(ctx context.Context, location string, opts Options) ([]core.Row, error) {
	body, err := opts.Fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var rows []core.Row
	if strings.EqualFold(filepath.Ext(stripQuery(location)), ".csv") {
		rows, err = ReadCSV(body, opts.Encoding)
	} else {
		rows, err = ReadCrawl(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return rows, nil
}
